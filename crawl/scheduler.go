package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/knownet/core"
)

// Defaults for Scheduler options.
const (
	DefaultMaxConcurrency = 20
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
	DefaultBufferSize     = 16
	DefaultTimeout        = 30 * time.Second
	DefaultMaxBodyBytes   = 10 << 20
	DefaultUserAgent      = "knownet/1.0 (+https://github.com/poiesic/knownet)"
)

// ErrHTTPStatus marks responses with an error status code.
var ErrHTTPStatus = errors.New("unexpected http status")

// Scheduler fetches a seed page and then every link selected from it, with
// at most maxConcurrency fetches in flight. Each Scheduler owns its pool;
// nothing is shared between instances.
type Scheduler struct {
	client         *http.Client
	linkFilter     LinkFilter
	parser         ContentParser
	pool           *ants.Pool
	maxConcurrency int
	maxRetries     int
	retryBaseDelay time.Duration
	bufferSize     int
	maxBodyBytes   int64
	userAgent      string
	retryClientErr bool
	logger         *slog.Logger
	released       atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithMaxConcurrency bounds the number of fetches in flight.
func WithMaxConcurrency(n int) Option {
	return func(s *Scheduler) error {
		if n < 1 {
			return ErrInvalidConcurrency
		}
		s.maxConcurrency = n
		return nil
	}
}

// WithMaxRetries sets the total number of attempts per URL.
func WithMaxRetries(n int) Option {
	return func(s *Scheduler) error {
		if n < 1 {
			return ErrInvalidMaxAttempts
		}
		s.maxRetries = n
		return nil
	}
}

// WithRetryBaseDelay sets the delay before the second attempt. It doubles
// with every further attempt.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(s *Scheduler) error {
		s.retryBaseDelay = d
		return nil
	}
}

// WithRetryClientErrors retries every 4xx response up to the attempt limit.
// By default only 408 and 429 are retried.
func WithRetryClientErrors() Option {
	return func(s *Scheduler) error {
		s.retryClientErr = true
		return nil
	}
}

// WithBufferSize sets the stream channel capacity.
func WithBufferSize(n int) Option {
	return func(s *Scheduler) error {
		if n < 0 {
			return ErrInvalidBufferSize
		}
		s.bufferSize = n
		return nil
	}
}

// WithLinkFilter replaces the default anchor-text heuristic.
func WithLinkFilter(f LinkFilter) Option {
	return func(s *Scheduler) error {
		if f == nil {
			return errors.New("link filter cannot be nil")
		}
		s.linkFilter = f
		return nil
	}
}

// WithContentParser replaces the default paragraph parser.
func WithContentParser(p ContentParser) Option {
	return func(s *Scheduler) error {
		if p == nil {
			return errors.New("content parser cannot be nil")
		}
		s.parser = p
		return nil
	}
}

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scheduler) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		s.client = c
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scheduler) error {
		s.userAgent = ua
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler. Call Release when done with it.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		client:         &http.Client{Timeout: DefaultTimeout},
		linkFilter:     DefaultLinkFilter(),
		parser:         DefaultContentParser(),
		maxConcurrency: DefaultMaxConcurrency,
		maxRetries:     DefaultMaxRetries,
		retryBaseDelay: DefaultRetryBaseDelay,
		bufferSize:     DefaultBufferSize,
		maxBodyBytes:   DefaultMaxBodyBytes,
		userAgent:      DefaultUserAgent,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "crawler")

	pool, err := ants.NewPool(s.maxConcurrency)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// MaxConcurrency returns the fetch concurrency limit.
func (s *Scheduler) MaxConcurrency() int {
	return s.maxConcurrency
}

// Crawl fetches the seed page and streams the content of every selected link.
// Failing to fetch the seed is the only fatal error; links that exhaust their
// retries are logged, recorded in Stream.Failures and skipped.
func (s *Scheduler) Crawl(ctx context.Context, seedURL string) (*Stream, error) {
	if s.released.Load() {
		return nil, ErrSchedulerReleased
	}

	s.logger.Info("crawling seed", "url", seedURL)
	page, err := s.fetchWithRetry(ctx, seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedFetch, err)
	}

	links, err := s.linkFilter.Links(page, seedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract links from %s: %w", seedURL, err)
	}
	s.logger.Info("links discovered", "url", seedURL, "count", len(links))

	crawlCtx, cancel := context.WithCancel(ctx)
	stream := newStream(seedURL, links, s.bufferSize, cancel)
	go s.produce(crawlCtx, cancel, stream, links)
	return stream, nil
}

// Collect runs a crawl to completion and returns every fetched item.
func (s *Scheduler) Collect(ctx context.Context, seedURL string) ([]core.ContentItem, error) {
	stream, err := s.Crawl(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	var items []core.ContentItem
	for item := range stream.Items() {
		items = append(items, item)
	}
	<-stream.Done()
	return items, stream.Err()
}

// Release frees the worker pool. The scheduler cannot be used afterwards.
func (s *Scheduler) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.pool.Release()
	}
}

func (s *Scheduler) produce(ctx context.Context, cancel context.CancelFunc, stream *Stream, links []string) {
	defer close(stream.done)
	defer close(stream.items)
	defer cancel()

	var wg sync.WaitGroup
	var delivered atomic.Int64
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()

			item, err := s.fetchItem(ctx, link)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				var fetchErr *FetchError
				if errors.As(err, &fetchErr) {
					stream.addFailure(fetchErr)
				}
				s.logger.Warn("dropping link", "url", link, "err", err)
				return
			}

			select {
			case stream.items <- item:
				delivered.Add(1)
			case <-ctx.Done():
			}
		})
		if err != nil {
			wg.Done()
			s.logger.Error("failed to schedule fetch", "url", link, "err", err)
			break
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		stream.setErr(err)
	}
	s.logger.Info("crawl finished",
		"url", stream.seed,
		"links", len(links),
		"delivered", delivered.Load(),
		"dropped", len(stream.Failures()))
}

func (s *Scheduler) fetchItem(ctx context.Context, link string) (core.ContentItem, error) {
	page, err := s.fetchWithRetry(ctx, link)
	if err != nil {
		return core.ContentItem{}, err
	}

	text, err := s.parser.Parse(page)
	if err != nil {
		s.logger.Warn("failed to parse content", "url", link, "err", err)
		text = ""
	}

	s.logger.Debug("fetched", "url", link, "chars", len(text))
	return core.ContentItem{
		Text:      text,
		SourceURL: link,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (s *Scheduler) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	var status int
	attempts, err := RetryWithBackoff(ctx, func(attempt int) error {
		b, code, err := s.fetch(ctx, u)
		status = code
		if err != nil {
			s.logger.Debug("fetch attempt failed", "url", u, "attempt", attempt, "err", err)
			return err
		}
		body = b
		return nil
	}, s.maxRetries, s.retryBaseDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: u, StatusCode: status, Attempts: attempts, Err: err}
	}
	return body, nil
}

// fetch performs one GET. 4xx responses other than 408 and 429 are permanent
// unless client errors are retried.
func (s *Scheduler) fetch(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, Permanent(err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
		if s.retryClientErr || retryableStatus(resp.StatusCode) {
			return nil, resp.StatusCode, err
		}
		return nil, resp.StatusCode, Permanent(err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}
