package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_RoutesByExtension(t *testing.T) {
	var gotPath, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  Glucose: 140 mg/dL\n"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)

	text, err := c.Extract(context.Background(), writeFile(t, "labs.PDF", "%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Glucose: 140 mg/dL", text)
	assert.Equal(t, "/extract-pdf", gotPath)
	assert.Equal(t, "labs.PDF", gotName)
	assert.Equal(t, "%PDF-1.4", gotBody)

	_, err = c.Extract(context.Background(), writeFile(t, "scan.jpeg", "jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/extract-image", gotPath)
}

func TestExtract_Unsupported(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	_, err := c.Extract(context.Background(), writeFile(t, "notes.docx", "x"))
	require.ErrorIs(t, err, ErrUnsupportedFile)

	assert.True(t, Supported("a/b/c.webp"))
	assert.False(t, Supported("c.txt"))
}

func TestExtract_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"MISTRAL_API_KEY missing"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Extract(context.Background(), writeFile(t, "scan.png", "png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "MISTRAL_API_KEY missing")
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", time.Second).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open attachment")
}
