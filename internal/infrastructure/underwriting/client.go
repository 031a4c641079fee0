package underwriting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/resilience"
)

// Client pushes underwriter verdicts back to the policy administration
// system that owns the proposer record.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type statusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UpdateStatus records the review outcome for one proposer.
func (c *Client) UpdateStatus(ctx context.Context, proposerID string, status domain.VerdictStatus, message string) error {
	id := strings.TrimSpace(proposerID)
	if id == "" {
		return domain.WrapError(domain.ErrInvalidInput, "underwriting.status", fmt.Errorf("proposer id is empty"))
	}

	payload := statusRequest{Status: string(status), Message: message}
	call := func(ctx context.Context) error {
		return c.patchJSON(ctx, "/proposers/"+id+"/status", payload, "update-status")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "underwriting.status", call, classifyStatusError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return domain.WrapError(domain.ErrProposerNotFound, "underwriting.status", err)
		}
		if classifyStatusError(err).Retryable || resilience.IsCircuitOpen(err) {
			return domain.WrapError(domain.ErrTemporary, "underwriting.status", err)
		}
		return err
	}
	return nil
}

func (c *Client) patchJSON(ctx context.Context, path string, payload any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("underwriting %s request: %w", operation, err)
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
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "underwriting status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("underwriting %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("underwriting %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyStatusError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
