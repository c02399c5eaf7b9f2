package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mailsched/internal/metrics"
	"mailsched/internal/models"
	"mailsched/internal/state"
	"mailsched/internal/store"
	"mailsched/internal/window"
)

const (
	DefaultTimeZone    = "America/Sao_Paulo"
	DefaultMaxAttempts = 3
)

var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidTime     = errors.New("invalid run time")
	ErrJobNotFound     = errors.New("job not found")
	ErrAlreadyTerminal = errors.New("job already completed")
)

// CreateRequest carries the client-supplied fields for one scheduled email.
type CreateRequest struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	Pass       string `json:"pass"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	RunAt      string `json:"runAt"`
	TimeZone   string `json:"timeZone"`
	SendWindow string `json:"sendWindow"`
}

type CreateResult struct {
	JobID string
	RunAt time.Time
}

// JobService is the request-facing side of the scheduler: it validates
// creation requests, resolves the effective run time through the window
// policy, and translates reads and cancellations into store operations.
// It never sends anything synchronously.
type JobService struct {
	store       store.JobStore
	policy      *window.Policy
	collector   *metrics.Collector
	timeZone    string
	maxAttempts int
}

func NewJobService(st store.JobStore, policy *window.Policy, collector *metrics.Collector, defaultTimeZone string, maxAttempts int) *JobService {
	if defaultTimeZone == "" {
		defaultTimeZone = DefaultTimeZone
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &JobService{
		store:       st,
		policy:      policy,
		collector:   collector,
		timeZone:    defaultTimeZone,
		maxAttempts: maxAttempts,
	}
}

func (s *JobService) Create(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	if req.Host == "" || req.Port == 0 || req.User == "" || req.Pass == "" ||
		req.To == "" || req.Subject == "" || req.Body == "" || req.RunAt == "" {
		return nil, ErrMissingFields
	}

	timeZone := req.TimeZone
	if timeZone == "" {
		timeZone = s.timeZone
	}
	sendWindow := models.SendWindow(req.SendWindow)
	if sendWindow == "" {
		sendWindow = models.SendWindowBusiness
	}
	if sendWindow != models.SendWindowBusiness && sendWindow != models.SendWindowImmediate {
		return nil, fmt.Errorf("%w: unknown send window %q", ErrInvalidTime, req.SendWindow)
	}

	runAt, err := s.policy.Resolve(req.RunAt, timeZone, sendWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:          uuid.NewString(),
		Status:      state.StatusScheduled,
		MaxAttempts: s.maxAttempts,
		RunAt:       runAt,
		TimeZone:    timeZone,
		SendWindow:  sendWindow,
		Payload: models.Payload{
			Host:    req.Host,
			Port:    req.Port,
			User:    req.User,
			Pass:    req.Pass,
			To:      req.To,
			Subject: req.Subject,
			Body:    req.Body,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	s.collector.RecordScheduled()
	log.Printf("job_id=%s: scheduled, run_at=%s, window=%s, tz=%s", job.ID, runAt.Format(time.RFC3339), sendWindow, timeZone)
	return &CreateResult{JobID: job.ID, RunAt: runAt}, nil
}

// Get returns the job minus its payload. Credentials and message content
// are never echoed back.
func (s *JobService) Get(ctx context.Context, id string) (*models.JobView, error) {
	job, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	view := job.View()
	return &view, nil
}

// Cancel stops a scheduled job before dispatch. A sent job reports
// ErrAlreadyTerminal; canceling an already failed or canceled job is a
// no-op success. A job caught mid-dispatch is also accepted as a no-op:
// the in-flight send cannot be interrupted and the state machine simply
// ignores the request.
func (s *JobService) Cancel(ctx context.Context, id string) error {
	job, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if job.Status == state.StatusSent {
		return ErrAlreadyTerminal
	}

	applied, err := s.store.MarkCanceled(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrJobNotFound
	}
	if err != nil {
		return err
	}
	if applied {
		s.collector.RecordCanceled()
		log.Printf("job_id=%s: canceled", id)
	}
	return nil
}

// Stats returns the job counts grouped by status.
func (s *JobService) Stats(ctx context.Context) (map[state.JobStatus]int, error) {
	return s.store.CountByStatus(ctx)
}
