package router

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"routeScope/internal/metrics"
	"routeScope/internal/model"
)

const defaultDebounce = 600 * time.Millisecond

// Outcome is one completed query delivered by the Scheduler. Err carries
// ErrNoRoute, ErrInvalidInput or a transport error; Seq identifies the
// dispatch that produced it.
type Outcome struct {
	Seq     uint64
	Request QuoteRequest
	Route   *model.BestRoute
	Err     error
}

// Scheduler debounces rapid input changes and fences results with a
// monotonic sequence number: each dispatch takes the next sequence, and a
// result is delivered only while its sequence is still the latest. In-flight
// queries are not cancelled; a superseded result is discarded silently so a
// late arrival can never overwrite a newer quote.
type Scheduler struct {
	engine *Engine
	delay  time.Duration
	logger *zap.Logger

	results chan Outcome
	seq     atomic.Uint64

	mu      sync.Mutex
	timer   *time.Timer
	pending QuoteRequest
	stopped bool
}

// NewScheduler builds a scheduler around the engine. A non-positive delay
// falls back to the default debounce window.
func NewScheduler(engine *Engine, delay time.Duration, logger *zap.Logger) *Scheduler {
	if delay <= 0 {
		delay = defaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		engine:  engine,
		delay:   delay,
		logger:  logger,
		results: make(chan Outcome, 1),
	}
}

// Submit records the latest input and restarts the debounce window. The
// query runs only after the window elapses with no newer Submit.
func (s *Scheduler) Submit(ctx context.Context, req QuoteRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.pending = req
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.dispatch(ctx) })
}

// Results delivers completed outcomes, newest wins: an undelivered outcome
// is replaced rather than queued behind a newer one. The channel is closed
// by Stop so consumers ranging over it terminate.
func (s *Scheduler) Results() <-chan Outcome {
	return s.results
}

// Stop cancels any pending dispatch and closes the results channel.
// Results still in flight are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.results)
}

func (s *Scheduler) dispatch(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	req := s.pending
	// The sequence must be taken in the same critical section as the
	// pending read: otherwise two dispatches can read their requests in
	// one order and claim sequences in the other, and the fence would
	// keep the older result.
	seq := s.seq.Add(1)
	s.mu.Unlock()

	go func() {
		route, err := s.engine.GetQuote(ctx, req)
		if seq != s.seq.Load() {
			metrics.StaleQuotesDiscarded.Inc()
			s.logger.Debug("stale quote discarded", zap.Uint64("seq", seq), zap.Uint64("latest", s.seq.Load()))
			return
		}
		s.deliver(Outcome{Seq: seq, Request: req, Route: route, Err: err})
	}()
}

// deliver never blocks: the mutex serializes it against Stop closing the
// channel, and the capacity-1 buffer means the loop terminates after at
// most one drain.
func (s *Scheduler) deliver(outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	for {
		select {
		case s.results <- outcome:
			return
		default:
		}
		select {
		case stale := <-s.results:
			// Two deliveries can race; keep the higher sequence.
			if stale.Seq > outcome.Seq {
				outcome = stale
			}
		default:
		}
	}
}
