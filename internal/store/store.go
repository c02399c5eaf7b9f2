package store

import (
	"context"
	"errors"
	"time"

	"mailsched/internal/models"
	"mailsched/internal/state"
)

var ErrNotFound = errors.New("job not found")

// JobStore owns every job lifecycle mutation. Apart from cancellation, which
// arrives through the API, status changes are driven exclusively by the
// scheduler sweep.
type JobStore interface {
	Insert(ctx context.Context, job *models.Job) error

	FindByID(ctx context.Context, id string) (*models.Job, error)

	// ListDue returns copies of all scheduled jobs whose RunAt is at or
	// before now. Order is unspecified.
	ListDue(ctx context.Context, now time.Time) ([]models.Job, error)

	// MarkSending claims a job for dispatch. It reports false when the job
	// is no longer scheduled; a false claim is what keeps a job from ever
	// being dispatched twice concurrently.
	MarkSending(ctx context.Context, id string) (bool, error)

	// Release returns a claimed job to scheduled without recording an
	// attempt, undoing MarkSending when no dispatch was issued.
	Release(ctx context.Context, id string) error

	MarkSent(ctx context.Context, id string, messageID string) error

	// MarkFailure records a failed attempt. Below the attempt ceiling the
	// job goes back to scheduled with RunAt set to nextRun; at the ceiling
	// it becomes terminally failed and nextRun is ignored.
	MarkFailure(ctx context.Context, id string, errMsg string, nextRun time.Time) error

	// MarkCanceled cancels a scheduled job. It reports false without error
	// when the job exists but is past cancellation.
	MarkCanceled(ctx context.Context, id string) (bool, error)

	CountByStatus(ctx context.Context) (map[state.JobStatus]int, error)
}
