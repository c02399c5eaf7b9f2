package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mailsched/internal/models"
	"mailsched/internal/state"
)

// MemoryStore keeps the job table in process memory behind a single mutex.
// Nothing survives a restart; process lifetime is the retention window.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

func (s *MemoryStore) Insert(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("duplicate job id %s", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryStore) ListDue(ctx context.Context, now time.Time) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.Job
	for _, job := range s.jobs {
		if job.Status == state.StatusScheduled && !job.RunAt.After(now) {
			due = append(due, *job)
		}
	}
	return due, nil
}

func (s *MemoryStore) MarkSending(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if !state.IsValidTransition(job.Status, state.StatusSending) {
		return false, nil
	}
	job.Status = state.StatusSending
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !state.IsValidTransition(job.Status, state.StatusScheduled) {
		return fmt.Errorf("cannot release %s job", job.Status)
	}
	job.Status = state.StatusScheduled
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id string, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !state.IsValidTransition(job.Status, state.StatusSent) {
		return fmt.Errorf("cannot mark %s job as sent", job.Status)
	}
	job.Status = state.StatusSent
	job.MessageID = &messageID
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) MarkFailure(ctx context.Context, id string, errMsg string, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Attempts++
	job.LastError = &errMsg
	job.UpdatedAt = time.Now().UTC()

	if job.Attempts >= job.MaxAttempts {
		if !state.IsValidTransition(job.Status, state.StatusFailed) {
			return fmt.Errorf("cannot mark %s job as failed", job.Status)
		}
		job.Status = state.StatusFailed
		return nil
	}
	if !state.IsValidTransition(job.Status, state.StatusScheduled) {
		return fmt.Errorf("cannot reschedule %s job", job.Status)
	}
	job.Status = state.StatusScheduled
	job.RunAt = nextRun
	return nil
}

func (s *MemoryStore) MarkCanceled(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if !state.IsValidTransition(job.Status, state.StatusCanceled) {
		return false, nil
	}
	job.Status = state.StatusCanceled
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[state.JobStatus]int, len(state.AllStatuses))
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts, nil
}
