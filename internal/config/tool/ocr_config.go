package tool

// OCRConfig points at the text-extraction service used for attachments.
type OCRConfig struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"` // seconds
}

func DefaultOCRConfig() OCRConfig {
	return OCRConfig{URL: "http://127.0.0.1:8004", Timeout: 120}
}
