package batching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	// DefaultBatchSize is the largest number of requests processed per batch.
	DefaultBatchSize = 32
)

// BatchFunc processes a batch of inputs and returns one output per input, in
// input order. An error fails every request in the batch.
type BatchFunc[In, Out any] func(ctx context.Context, items []In) ([]Out, error)

// Option configures a Service.
type Option func(*config) error

type config struct {
	name          string
	batchSize     int
	queueSize     int
	cancelOnClose bool
	logger        *slog.Logger
}

// WithBatchSize sets the maximum batch size.
func WithBatchSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return ErrInvalidBatchSize
		}
		c.batchSize = n
		return nil
	}
}

// WithQueueSize sets how many requests may wait for the worker before Submit
// blocks. Defaults to twice the batch size.
func WithQueueSize(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return ErrInvalidQueueSize
		}
		c.queueSize = n
		return nil
	}
}

// WithCancelOnClose makes Close cancel in-flight work and fail pending
// requests with ErrClosed instead of draining them.
func WithCancelOnClose() Option {
	return func(c *config) error {
		c.cancelOnClose = true
		return nil
	}
}

// WithName labels log records, e.g. "embedding" or "extraction".
func WithName(name string) Option {
	return func(c *config) error {
		c.name = name
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// Stats counts processed work.
type Stats struct {
	Batches int64 // batch function invocations
	Items   int64 // requests handed to the batch function
}

type request[In, Out any] struct {
	ctx    context.Context
	in     In
	future *Future[Out]
}

// Service coalesces single-item requests into batches handled by one worker.
type Service[In, Out any] struct {
	fn            BatchFunc[In, Out]
	queue         chan *request[In, Out]
	batchSize     int
	cancelOnClose bool
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup

	batches atomic.Int64
	items   atomic.Int64
}

// New starts a service around fn.
func New[In, Out any](fn BatchFunc[In, Out], opts ...Option) (*Service[In, Out], error) {
	if fn == nil {
		return nil, ErrBatchFuncRequired
	}

	cfg := &config{
		name:      "inference",
		batchSize: DefaultBatchSize,
		queueSize: -1,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.queueSize < 0 {
		cfg.queueSize = cfg.batchSize * 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service[In, Out]{
		fn:            fn,
		queue:         make(chan *request[In, Out], cfg.queueSize),
		batchSize:     cfg.batchSize,
		cancelOnClose: cfg.cancelOnClose,
		logger:        cfg.logger.With("component", "batching", "service", cfg.name),
		ctx:           ctx,
		cancel:        cancel,
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// Submit enqueues one item. It blocks while the queue is full, until ctx is
// done or the service closes.
func (s *Service[In, Out]) Submit(ctx context.Context, in In) (*Future[Out], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	req := &request[In, Out]{ctx: ctx, in: in, future: newFuture[Out]()}
	select {
	case s.queue <- req:
		return req.future, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrClosed
	}
}

// Do submits one item and waits for its result.
func (s *Service[In, Out]) Do(ctx context.Context, in In) (Out, error) {
	future, err := s.Submit(ctx, in)
	if err != nil {
		var zero Out
		return zero, err
	}
	return future.Wait(ctx)
}

// Close stops accepting submissions, drains or cancels pending work, and
// waits for the worker to exit. It is safe to call more than once.
func (s *Service[In, Out]) Close() error {
	s.closeOnce.Do(func() {
		if s.cancelOnClose {
			s.cancel()
		}

		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		s.wg.Wait()
		s.cancel()

		stats := s.Stats()
		s.logger.Debug("batching service closed", "batches", stats.Batches, "items", stats.Items)
	})
	return nil
}

// Stats returns counters for processed work.
func (s *Service[In, Out]) Stats() Stats {
	return Stats{
		Batches: s.batches.Load(),
		Items:   s.items.Load(),
	}
}

func (s *Service[In, Out]) run() {
	defer s.wg.Done()

	for {
		first, ok := <-s.queue
		if !ok {
			return
		}

		batch := make([]*request[In, Out], 1, s.batchSize)
		batch[0] = first

	fill:
		for len(batch) < s.batchSize {
			select {
			case req, ok := <-s.queue:
				if !ok {
					break fill
				}
				batch = append(batch, req)
			default:
				break fill
			}
		}

		s.process(batch)
	}
}

func (s *Service[In, Out]) process(batch []*request[In, Out]) {
	var zero Out

	live := batch[:0]
	for _, req := range batch {
		if err := req.ctx.Err(); err != nil {
			req.future.resolve(zero, err)
			continue
		}
		live = append(live, req)
	}
	if len(live) == 0 {
		return
	}

	if s.ctx.Err() != nil {
		for _, req := range live {
			req.future.resolve(zero, ErrClosed)
		}
		return
	}

	inputs := make([]In, len(live))
	for i, req := range live {
		inputs[i] = req.in
	}

	s.batches.Add(1)
	s.items.Add(int64(len(live)))
	s.logger.Debug("processing batch", "batch", len(live))

	outputs, err := s.invoke(inputs)
	if err == nil && len(outputs) != len(live) {
		err = fmt.Errorf("%w: %d results for %d items", ErrResultCount, len(outputs), len(live))
	}
	if err != nil {
		if s.ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrClosed, err)
		}
		s.logger.Warn("batch failed", "batch", len(live), "err", err)
		for _, req := range live {
			req.future.resolve(zero, err)
		}
		return
	}

	for i, req := range live {
		req.future.resolve(outputs[i], nil)
	}
}

// invoke calls the batch function, converting a panic into an error so one
// bad batch cannot kill the worker.
func (s *Service[In, Out]) invoke(inputs []In) (outputs []Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch function panicked: %v", r)
		}
	}()
	return s.fn(s.ctx, inputs)
}
