package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Scheduler drives a dispatcher. The threaded variant steps the active
// calculator on its own goroutine between requests; the inline variant runs
// each request's work to completion before returning.
type Scheduler interface {
	Send(Request)
	Close()
}

// ThreadedScheduler evaluates in the background. Incoming requests take
// priority over stepping, so pause and filter changes apply within one
// batch boundary.
type ThreadedScheduler struct {
	d        *Dispatcher
	requests chan Request
	limiter  *rate.Limiter
	cancel   context.CancelFunc
	done     chan struct{}
	log      zerolog.Logger
}

// NewThreadedScheduler starts the scheduling loop. batchInterval paces the
// stepping so the process stays responsive under load; zero disables pacing.
func NewThreadedScheduler(d *Dispatcher, batchInterval time.Duration, log zerolog.Logger) *ThreadedScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ThreadedScheduler{
		d:        d,
		requests: make(chan Request, 16),
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      log,
	}
	if batchInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(batchInterval), 1)
	}
	go s.run(ctx)
	return s
}

// Send queues one request for the scheduling loop
func (s *ThreadedScheduler) Send(req Request) {
	s.requests <- req
}

// Close stops the loop and waits for it to exit
func (s *ThreadedScheduler) Close() {
	s.cancel()
	<-s.done
}

func (s *ThreadedScheduler) run(ctx context.Context) {
	defer close(s.done)
	for {
		// Requests outrank stepping
		select {
		case req := <-s.requests:
			s.handle(req)
			continue
		case <-ctx.Done():
			return
		default:
		}

		if s.d.ActiveRunnable() {
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}
			}
			s.d.StepActive()
			continue
		}

		// Idle until the next request
		select {
		case req := <-s.requests:
			s.handle(req)
		case <-ctx.Done():
			return
		}
	}
}

func (s *ThreadedScheduler) handle(req Request) {
	if err := s.d.Handle(req); err != nil {
		s.log.Warn().Err(err).Msg("request failed")
	}
}

// InlineScheduler runs synchronously: every Send returns only after the
// dispatcher has no runnable work left. Pause requests still take effect
// because the drive loop re-checks runnability per step.
type InlineScheduler struct {
	d   *Dispatcher
	log zerolog.Logger
}

// NewInlineScheduler creates a synchronous scheduler
func NewInlineScheduler(d *Dispatcher, log zerolog.Logger) *InlineScheduler {
	return &InlineScheduler{d: d, log: log}
}

// Send handles the request and drives the active calculator to completion
func (s *InlineScheduler) Send(req Request) {
	if err := s.d.Handle(req); err != nil {
		s.log.Warn().Err(err).Msg("request failed")
		return
	}
	for s.d.ActiveRunnable() {
		if s.d.StepActive() {
			break
		}
	}
}

// Close is a no-op; the inline scheduler holds no resources
func (s *InlineScheduler) Close() {}
