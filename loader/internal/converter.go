package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// DoclingConverter posts a PDF to the docling sidecar and returns the
// extracted markdown. Conversion of a large document is slow, hence the
// generous timeout.
type DoclingConverter struct {
	url   string
	httpc *http.Client
}

func NewDoclingConverter(url string) *DoclingConverter {
	return &DoclingConverter{
		url:   url,
		httpc: &http.Client{Timeout: 10 * time.Minute},
	}
}

type doclingResponse struct {
	Document struct {
		MdContent string `json:"md_content"`
	} `json:"document"`
}

func (c *DoclingConverter) Convert(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("converter request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("converter error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var d doclingResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return "", fmt.Errorf("unmarshal converter response: %w", err)
	}
	if d.Document.MdContent == "" {
		return "", fmt.Errorf("converter returned empty document")
	}
	return d.Document.MdContent, nil
}
