// Package jobs runs the periodic pipeline tasks (message planning, queue
// management) on fixed intervals. Each run is single-flighted through a
// redis lease so overlapping runs are skipped rather than raced.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Leaser grants single-flight leases by job name. Acquire returns ok=false
// when another run currently holds the lease.
type Leaser interface {
	Acquire(ctx context.Context, name string) (release func(), ok bool, err error)
}

type Runner struct {
	lease Leaser
	log   zerolog.Logger
	wg    sync.WaitGroup
}

func NewRunner(lease Leaser, log zerolog.Logger) *Runner {
	return &Runner{lease: lease, log: log}
}

// Every schedules fn on the given interval until ctx is canceled. Job
// failures are logged and swallowed: each run is independent and the next
// tick retries from scratch.
func (r *Runner) Every(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runOnce(ctx, name, fn)
			}
		}
	}()
}

// Wait blocks until all job loops have exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runOnce(ctx context.Context, name string, fn func(ctx context.Context) error) {
	release, ok, err := r.lease.Acquire(ctx, name)
	if err != nil {
		r.log.Error().Err(err).Str("job", name).Msg("failed to acquire job lease")
		return
	}
	if !ok {
		r.log.Debug().Str("job", name).Msg("job lease held elsewhere, skipping run")
		return
	}
	defer release()

	r.log.Info().Str("job", name).Msg("job started")
	if err := fn(ctx); err != nil {
		r.log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	r.log.Info().Str("job", name).Msg("job finished")
}
