// Package index is the narrow contract to the search/index collaborator.
// The index schema and its lifecycle are owned elsewhere; papyrus only
// pushes OCR text and progress notes into it.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrTimeout marks an index call that exceeded its deadline. Timeouts are
// fatal for the attempt, never a silent hang.
var ErrTimeout = errors.New("index call timed out")

// Client is what the extraction pipeline needs from the index service.
type Client interface {
	// AddDocumentOCR stores extracted text for a blob in one language.
	// A nil text records that OCR ran and produced no text.
	AddDocumentOCR(ctx context.Context, blobID string, text *string, language string) error

	// SetProgressNote publishes a heartbeat for a running extraction.
	SetProgressNote(ctx context.Context, blobID, extractor, note string) error
}

// HTTPClient talks to the index service over its JSON API.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPClient builds a client. Every call is bounded by timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type ocrDocument struct {
	Language string  `json:"language"`
	Text     *string `json:"text,omitempty"`
}

type progressNote struct {
	Extractor string `json:"extractor"`
	Note      string `json:"note"`
}

// AddDocumentOCR implements Client.
func (c *HTTPClient) AddDocumentOCR(ctx context.Context, blobID string, text *string, language string) error {
	url := fmt.Sprintf("%s/blobs/%s/ocr", c.baseURL, blobID)
	return c.post(ctx, url, ocrDocument{Language: language, Text: text})
}

// SetProgressNote implements Client.
func (c *HTTPClient) SetProgressNote(ctx context.Context, blobID, extractor, note string) error {
	url := fmt.Sprintf("%s/blobs/%s/progress", c.baseURL, blobID)
	return c.post(ctx, url, progressNote{Extractor: extractor, Note: note})
}

func (c *HTTPClient) post(ctx context.Context, url string, body any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal index payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return fmt.Errorf("index call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("index call %s: status %d", url, resp.StatusCode)
	}
	return nil
}
