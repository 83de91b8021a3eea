package crawl

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidConcurrency indicates a concurrency limit below 1.
	ErrInvalidConcurrency = errors.New("max concurrency must be greater than 0")

	// ErrInvalidBufferSize indicates a negative stream buffer.
	ErrInvalidBufferSize = errors.New("stream buffer size must not be negative")

	// ErrSeedFetch indicates the seed page could not be fetched. It is the
	// only fetch failure that aborts a crawl.
	ErrSeedFetch = errors.New("failed to fetch seed page")

	// ErrSchedulerReleased is returned by Crawl after Release.
	ErrSchedulerReleased = errors.New("scheduler released")
)

// FetchError describes a URL that could not be fetched.
type FetchError struct {
	URL        string
	StatusCode int // zero for transport failures
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so RetryWithBackoff returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
