package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/resilience"
)

// Client calls the document extraction service. The service runs OCR and
// parsing for a document already uploaded to storage and returns the
// structured payload.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// ProcessDocument asks the extraction service to process one document and
// returns the structured payload it produced.
func (c *Client) ProcessDocument(ctx context.Context, documentID string) (*domain.ExtractedPayload, error) {
	id := strings.TrimSpace(documentID)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extraction.process", fmt.Errorf("document id is empty"))
	}

	var payload domain.ExtractedPayload
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/process-document/"+id, struct{}{}, &payload, "process-document")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "extraction.process", call, classifyExtractionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("extraction.process", mapStatusError(err))
	}
	return &payload, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("extraction %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
