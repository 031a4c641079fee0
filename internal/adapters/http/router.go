package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/core/ports"
	"github.com/aravindkv/underwriter-review/internal/core/usecase"
	"github.com/aravindkv/underwriter-review/internal/observability/metrics"
)

const (
	serviceName     = "api"
	proposersPrefix = "/v1/proposers/"
)

// RunCoordinator triggers, cancels and observes review runs.
type RunCoordinator interface {
	Launch(ctx context.Context, proposerID string) error
	Cancel(ctx context.Context, proposerID string) bool
	Progress(proposerID string) domain.RunProgress
}

type Router struct {
	runs     RunCoordinator
	reader   ports.ReviewReader
	exporter ports.ReportExporter
	verdicts *usecase.VerdictService
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	runs RunCoordinator,
	reader ports.ReviewReader,
	exporter ports.ReportExporter,
	verdicts *usecase.VerdictService,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		runs:     runs,
		reader:   reader,
		exporter: exporter,
		verdicts: verdicts,
		metrics:  httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc(proposersPrefix, rt.proposerRoutes)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// proposerRoutes dispatches /v1/proposers/{id}/<action> paths.
func (rt *Router) proposerRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, proposersPrefix)
	proposerID, action, _ := strings.Cut(rest, "/")
	if strings.TrimSpace(proposerID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "proposer id is required"})
		return
	}

	switch {
	case action == "review/run" && r.Method == http.MethodPost:
		rt.startRun(w, r, proposerID)
	case action == "review/run" && r.Method == http.MethodDelete:
		rt.cancelRun(w, r, proposerID)
	case action == "review/progress" && r.Method == http.MethodGet:
		rt.runProgress(w, proposerID)
	case action == "review" && r.Method == http.MethodGet:
		rt.getReview(w, r, proposerID)
	case action == "report" && r.Method == http.MethodGet:
		rt.exportReport(w, r, proposerID)
	case action == "verdict" && r.Method == http.MethodPost:
		rt.submitVerdict(w, r, proposerID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown route"})
	}
}

func (rt *Router) startRun(w http.ResponseWriter, r *http.Request, proposerID string) {
	if err := rt.runs.Launch(r.Context(), proposerID); err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRunRequest(serviceName)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "proposer_id": proposerID})
}

func (rt *Router) cancelRun(w http.ResponseWriter, r *http.Request, proposerID string) {
	cancelled := rt.runs.Cancel(r.Context(), proposerID)
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": cancelled, "proposer_id": proposerID})
}

func (rt *Router) runProgress(w http.ResponseWriter, proposerID string) {
	writeJSON(w, http.StatusOK, rt.runs.Progress(proposerID))
}

func (rt *Router) getReview(w http.ResponseWriter, r *http.Request, proposerID string) {
	summary, err := rt.reader.Review(r.Context(), proposerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordReviewRead(serviceName)
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) exportReport(w http.ResponseWriter, r *http.Request, proposerID string) {
	summary, err := rt.reader.Review(r.Context(), proposerID)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := rt.exporter.Export(r.Context(), summary)
	if rt.metrics != nil {
		rt.metrics.RecordReportExport(serviceName, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "review-"+proposerID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) submitVerdict(w http.ResponseWriter, r *http.Request, proposerID string) {
	var req struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.verdicts.Submit(r.Context(), proposerID, domain.VerdictStatus(req.Status), req.Message); err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordVerdict(serviceName, req.Status)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
