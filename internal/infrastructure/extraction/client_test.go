package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/resilience"
)

func TestProcessDocumentDecodesPayload(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		_, _ = w.Write([]byte(`{"document_type":"payslip","extracted_data":{"name":"Anita Rao","salary":54000}}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	payload, err := client.ProcessDocument(context.Background(), "doc-42")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if capturedPath != "/process-document/doc-42" {
		t.Fatalf("unexpected path: %s", capturedPath)
	}
	if payload.DocumentType != string(domain.DocTypePayslip) {
		t.Fatalf("unexpected document type: %s", payload.DocumentType)
	}
	if payload.Fields.Name != "Anita Rao" || payload.Fields.Salary != 54000 {
		t.Fatalf("unexpected fields: %+v", payload.Fields)
	}
}

func TestProcessDocumentIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ocr engine crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	_, err := client.ProcessDocument(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "ocr engine crashed") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 500 to be wrapped as temporary, got %v", err)
	}
}

func TestProcessDocumentMapsTerminalStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.Error(w, "no such document", http.StatusNotFound)
			return
		}
		http.Error(w, "unreadable scan", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	if _, err := client.ProcessDocument(context.Background(), "missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected document-not-found, got %v", err)
	}
	if _, err := client.ProcessDocument(context.Background(), "doc-2"); !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected extraction-failed, got %v", err)
	}
}

func TestProcessDocumentRetriesThroughExecutor(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"document_type":"pan_card","extracted_data":{"pan_number":"ABCDE1234F"}}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      false,
	})
	client := New(server.URL, 5*time.Second, executor)

	payload, err := client.ProcessDocument(context.Background(), "doc-3")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	if payload.Fields.PANNumber != "ABCDE1234F" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestProcessDocumentRejectsEmptyID(t *testing.T) {
	client := New("http://unused", 5*time.Second, nil)
	if _, err := client.ProcessDocument(context.Background(), "  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input, got %v", err)
	}
}
