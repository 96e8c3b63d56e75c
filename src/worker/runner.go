package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Job is a unit of background work. It should return promptly once ctx is
// cancelled, although nothing depends on it doing so.
type Job func(ctx context.Context)

// PanicHandler is invoked from the job goroutine when the job panics.
type PanicHandler func(v any)

// Runner starts jobs on their own goroutines without back-pressure. Each job
// gets a context derived from the runner's, cancelled either through the
// returned CancelFunc or by Close.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	active atomic.Int32
}

// New creates a runner. The logger receives start/stop and panic records.
func New(log zerolog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "worker").Logger(),
	}
}

// Go starts job in a new goroutine. A panic inside job is recovered, logged
// and passed to onPanic. The returned bool is false if the runner is closed.
func (r *Runner) Go(name string, job Job, onPanic PanicHandler) (context.CancelFunc, bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return func() {}, false
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.wg.Add(1)
	r.mu.Unlock()

	r.active.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)
		defer cancel()
		defer func() {
			if v := recover(); v != nil {
				r.log.Error().
					Str("job", name).
					Str("panic", fmt.Sprint(v)).
					Bytes("stack", debug.Stack()).
					Msg("Worker: job panicked")
				if onPanic != nil {
					onPanic(v)
				}
			}
		}()

		start := time.Now()
		r.log.Debug().Str("job", name).Msg("Worker: starting job")
		job(ctx)
		r.log.Debug().Str("job", name).Dur("elapsed", time.Since(start)).Msg("Worker: job returned")
	}()
	return cancel, true
}

// Active reports the number of running jobs.
func (r *Runner) Active() int { return int(r.active.Load()) }

// Wait blocks until every job has returned or timeout elapses. It reports
// whether all jobs returned. A non-positive timeout waits forever.
func (r *Runner) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close cancels every job context, refuses new jobs and waits up to timeout.
func (r *Runner) Close(timeout time.Duration) bool {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	ok := r.Wait(timeout)
	if !ok {
		r.log.Warn().Int("active", r.Active()).Dur("timeout", timeout).Msg("Worker: jobs still running after close")
	}
	return ok
}
