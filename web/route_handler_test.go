package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsched/internal/metrics"
	"mailsched/internal/service"
	"mailsched/internal/store"
	"mailsched/internal/window"
)

func newTestHandler(t *testing.T) (*RouteHandler, *store.MemoryStore) {
	t.Helper()
	jobStore := store.NewMemoryStore()
	collector := metrics.NewCollector()
	svc := service.NewJobService(jobStore, window.NewPolicy(), collector, "", 0)
	return NewRouteHandler(svc, collector.Handler(), 8080), jobStore
}

func createBody(t *testing.T, overrides map[string]any) string {
	t.Helper()
	body := map[string]any{
		"host":       "smtp.example.com",
		"port":       587,
		"user":       "mailer@example.com",
		"pass":       "hunter2",
		"to":         "lead@example.com",
		"subject":    "hello",
		"body":       "hi there",
		"runAt":      time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"sendWindow": "immediate",
	}
	for k, v := range overrides {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return string(raw)
}

func doRequest(h *RouteHandler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func createJob(t *testing.T, h *RouteHandler) string {
	t.Helper()
	rec := doRequest(h, http.MethodPost, "/email-schedule", createBody(t, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		JobID   string `json:"jobId"`
		RunAt   string `json:"runAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.JobID)
	return resp.JobID
}

func TestCreateJob(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/email-schedule", createBody(t, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["jobId"])
	assert.NotEmpty(t, resp["runAt"])
}

func TestCreateJobMissingFields(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/email-schedule", createBody(t, map[string]any{"to": ""}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MissingFields")
}

func TestCreateJobMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/email-schedule", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MissingFields")
}

func TestCreateJobInvalidTime(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/email-schedule", createBody(t, map[string]any{"runAt": "whenever"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "InvalidTime")
}

func TestCreateJobMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/email-schedule", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetJobNeverLeaksPayload(t *testing.T) {
	h, jobStore := newTestHandler(t)
	jobID := createJob(t, h)

	check := func() {
		rec := doRequest(h, http.MethodGet, "/email-schedule/"+jobID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.NotContains(t, body, "hunter2")
		assert.NotContains(t, body, "smtp.example.com")
		assert.NotContains(t, body, "payload")
	}

	check()

	ctx := context.Background()
	_, err := jobStore.MarkSending(ctx, jobID)
	require.NoError(t, err)
	check()

	require.NoError(t, jobStore.MarkSent(ctx, jobID, "msg-1@mail.invalid"))
	check()

	rec := doRequest(h, http.MethodGet, "/email-schedule/"+jobID, "")
	assert.Contains(t, rec.Body.String(), "msg-1@mail.invalid")
}

func TestGetJobFields(t *testing.T) {
	h, _ := newTestHandler(t)
	jobID := createJob(t, h)

	rec := doRequest(h, http.MethodGet, "/email-schedule/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, jobID, view["id"])
	assert.Equal(t, "scheduled", view["status"])
	assert.Equal(t, "America/Sao_Paulo", view["timeZone"])
	assert.Equal(t, float64(0), view["attempts"])
}

func TestGetJobNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/email-schedule/unknown-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NotFound")
}

func TestCancelJob(t *testing.T) {
	h, _ := newTestHandler(t)
	jobID := createJob(t, h)

	rec := doRequest(h, http.MethodPost, "/email-schedule/"+jobID+"/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	rec = doRequest(h, http.MethodGet, "/email-schedule/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"canceled"`)
}

func TestCancelSentJob(t *testing.T) {
	h, jobStore := newTestHandler(t)
	jobID := createJob(t, h)

	ctx := context.Background()
	_, err := jobStore.MarkSending(ctx, jobID)
	require.NoError(t, err)
	require.NoError(t, jobStore.MarkSent(ctx, jobID, "msg-1"))

	rec := doRequest(h, http.MethodPost, "/email-schedule/"+jobID+"/cancel", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "AlreadyTerminal")
}

func TestCancelUnknownJob(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/email-schedule/unknown-id/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	createJob(t, h)
	createJob(t, h)

	rec := doRequest(h, http.MethodGet, "/email-schedule/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, 2, counts["scheduled"])
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	createJob(t, h)

	rec := doRequest(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailsched_jobs_scheduled_total")
}
