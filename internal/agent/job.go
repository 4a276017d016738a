package agent

import (
	"context"
	"sync"
	"time"

	"github.com/partocare/partosync/internal/logger"
)

// syncJob schedules sync cycles in the background. Successful cycles repeat
// on the configured interval; after a failure the next attempt is delayed by
// jittered exponential backoff instead.
type syncJob struct {
	runner  SyncRunner
	backoff *Backoff

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logger.Logger
}

// NewSyncJob creates a syncJob that calls runner.RunCycle on a schedule.
// The job is idle until Start is called.
func NewSyncJob(runner SyncRunner, logger *logger.Logger) SyncJob {
	return &syncJob{
		runner:  runner,
		backoff: NewBackoff(5*time.Second, 5*time.Minute, 2.0),
		logger:  logger,
	}
}

// Start implements [SyncJob]. It stops any previously running job, then
// launches a background goroutine that runs a cycle every interval. If
// interval is zero or negative it defaults to 5 minutes. The goroutine
// exits when ctx is cancelled or Stop is called.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()

		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-timer.C:
			}

			if err := j.runner.RunCycle(jobCtx); err != nil {
				delay := j.backoff.Next()
				j.logger.Err(err).
					Dur("retry_in", delay).
					Int("attempts", j.backoff.Attempts()).
					Msg("sync cycle failed")
				timer.Reset(delay)
				continue
			}

			j.backoff.Reset()
			timer.Reset(interval)
		}
	}()
}

// Stop implements [SyncJob]. It cancels the background goroutine's context
// and blocks until the goroutine has fully exited. Safe to call when the
// job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
