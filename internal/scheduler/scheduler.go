package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"mailsched/internal/mailer"
	"mailsched/internal/metrics"
	"mailsched/internal/models"
	"mailsched/internal/store"
)

const (
	DefaultSweepInterval = 5 * time.Second
	DefaultMaxInFlight   = 5
)

// Backoff returns the delay before retry attempt n (1-based): 1, 5, then
// 15 minutes.
func Backoff(attempt int) time.Duration {
	switch {
	case attempt <= 1:
		return time.Minute
	case attempt == 2:
		return 5 * time.Minute
	default:
		return 15 * time.Minute
	}
}

// Scheduler runs the periodic due-job sweep: it claims due jobs, hands them
// to the sender concurrently, and applies each outcome back to the store.
type Scheduler struct {
	store     store.JobStore
	sender    mailer.Sender
	collector *metrics.Collector

	interval    time.Duration
	sendTimeout time.Duration
	sem         *semaphore.Weighted
	cron        *cron.Cron
	wg          sync.WaitGroup

	now func() time.Time
}

func New(st store.JobStore, sender mailer.Sender, collector *metrics.Collector, interval, sendTimeout time.Duration, maxInFlight int64) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if sendTimeout <= 0 {
		sendTimeout = mailer.DefaultSendTimeout
	}
	if maxInFlight < 1 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Scheduler{
		store:       st,
		sender:      sender,
		collector:   collector,
		interval:    interval,
		sendTimeout: sendTimeout,
		sem:         semaphore.NewWeighted(maxInFlight),
		now:         time.Now,
	}
}

// Start begins sweeping on the configured interval. Stop must be called to
// release the timer.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}
	s.cron = c
	c.Start()
	log.Printf("scheduler: sweeping every %s", s.interval)
	return nil
}

// Stop halts the sweep timer and waits for in-flight dispatches to settle.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
}

// Sweep runs one due-job scan against a snapshot of "now". Claiming a job
// (scheduled -> sending) happens synchronously here, so a job whose send is
// still pending is invisible to later sweeps.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	s.collector.RecordSweep()

	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		log.Printf("scheduler: list due jobs: %v", err)
		return
	}

	for _, job := range due {
		claimed, err := s.store.MarkSending(ctx, job.ID)
		if err != nil || !claimed {
			continue
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			// Shutdown between claim and dispatch: put the job back so
			// the claim does not outlive the sweep.
			if relErr := s.store.Release(context.Background(), job.ID); relErr != nil {
				log.Printf("job_id=%s: release claim: %v", job.ID, relErr)
			}
			return
		}
		s.wg.Add(1)
		go func(job models.Job) {
			defer s.sem.Release(1)
			defer s.wg.Done()
			s.dispatch(ctx, job)
		}(job)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, job models.Job) {
	s.collector.DispatchStarted()
	defer s.collector.DispatchDone()

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	started := s.now()
	messageID, err := s.sender.Send(sendCtx, job.Payload)
	if err == nil {
		if markErr := s.store.MarkSent(ctx, job.ID, messageID); markErr != nil {
			log.Printf("job_id=%s: mark sent: %v", job.ID, markErr)
			return
		}
		s.collector.RecordSent(s.now().Sub(started).Seconds())
		log.Printf("job_id=%s: sent, message_id=%s", job.ID, messageID)
		return
	}

	attempts := job.Attempts + 1
	nextRun := s.now().Add(Backoff(attempts))
	if markErr := s.store.MarkFailure(ctx, job.ID, err.Error(), nextRun); markErr != nil {
		log.Printf("job_id=%s: mark failure: %v", job.ID, markErr)
		return
	}
	if attempts >= job.MaxAttempts {
		s.collector.RecordFailed()
		log.Printf("job_id=%s: permanently failed after %d attempts: %v", job.ID, attempts, err)
		return
	}
	s.collector.RecordRetry()
	log.Printf("job_id=%s: attempt %d failed, retry at %s: %v", job.ID, attempts, nextRun.Format(time.RFC3339), err)
}
