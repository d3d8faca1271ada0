// Package ocr is a client for the text-extraction service that turns
// uploaded images and PDFs into plain text.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedFile is returned for extensions the service cannot read.
var ErrUnsupportedFile = errors.New("unsupported file type")

// maxUpload bounds the size of a file sent for extraction.
const maxUpload = 20 << 20

var endpoints = map[string]string{
	".png":  "/extract-image",
	".jpg":  "/extract-image",
	".jpeg": "/extract-image",
	".bmp":  "/extract-image",
	".tiff": "/extract-image",
	".webp": "/extract-image",
	".pdf":  "/extract-pdf",
}

// Client uploads files to the extraction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client; timeout defaults to two minutes.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Supported reports whether path has an extension the service accepts.
func Supported(path string) bool {
	_, ok := endpoints[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract uploads the file at path and returns the extracted text.
func (c *Client) Extract(ctx context.Context, path string) (string, error) {
	endpoint, ok := endpoints[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	return c.upload(ctx, endpoint, filepath.Base(path), io.LimitReader(f, maxUpload+1))
}

func (c *Client) upload(ctx context.Context, endpoint, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(part, r)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if n > maxUpload {
		return "", fmt.Errorf("attachment %s exceeds %d MB", filename, maxUpload>>20)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read ocr response: %w", err)
	}

	var out struct {
		Text   string `json:"text"`
		Detail any    `json:"detail"`
	}
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(data))
		if decodeErr == nil && out.Detail != nil {
			detail = fmt.Sprint(out.Detail)
		}
		return "", fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode ocr response: %w", decodeErr)
	}
	return strings.TrimSpace(out.Text), nil
}
