package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"mailsched/internal/service"
)

// RouteHandler exposes the job-management operations over HTTP. Transport
// concerns only; all validation lives in the JobService.
type RouteHandler struct {
	jobs    *service.JobService
	metrics http.Handler
	port    uint
}

func NewRouteHandler(jobs *service.JobService, metricsHandler http.Handler, port uint) *RouteHandler {
	return &RouteHandler{
		jobs:    jobs,
		metrics: metricsHandler,
		port:    port,
	}
}

func (h *RouteHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/email-schedule", h.handleCreate)
	mux.HandleFunc("/email-schedule/", h.handleJob)
	mux.HandleFunc("/healthz", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics)
	}
	return mux
}

// Serve blocks until ctx is done, then drains the listener.
func (h *RouteHandler) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", h.port),
		Handler: h.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("web: shutdown: %v", err)
		}
	}()

	log.Printf("web: listening on :%d", h.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *RouteHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "MissingFields")
		return
	}

	result, err := h.jobs.Create(r.Context(), &req)
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "MissingFields")
	case errors.Is(err, service.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "InvalidTime")
	case err != nil:
		log.Printf("web: create job: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"jobId":   result.JobID,
			"runAt":   result.RunAt.Format(time.RFC3339),
		})
	}
}

// handleJob routes /email-schedule/{id}, /email-schedule/{id}/cancel and
// /email-schedule/stats.
func (h *RouteHandler) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/email-schedule/")
	if rest == "" || rest == r.URL.Path {
		writeError(w, http.StatusNotFound, "NotFound")
		return
	}

	if rest == "stats" {
		h.handleStats(w, r)
		return
	}

	if id, found := strings.CutSuffix(rest, "/cancel"); found {
		h.handleCancel(w, r, id)
		return
	}

	h.handleGet(w, r, rest)
}

func (h *RouteHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view, err := h.jobs.Get(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "NotFound")
	case err != nil:
		log.Printf("web: get job %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Internal")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (h *RouteHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := h.jobs.Cancel(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "NotFound")
	case errors.Is(err, service.ErrAlreadyTerminal):
		writeError(w, http.StatusBadRequest, "AlreadyTerminal")
	case err != nil:
		log.Printf("web: cancel job %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Internal")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (h *RouteHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.jobs.Stats(r.Context())
	if err != nil {
		log.Printf("web: stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *RouteHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
