package summary

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/Stone-IT-Cloud/devreport/internal/log"
)

// RetryConfig controls how a failed summarization attempt is repeated.
type RetryConfig struct {
	// Attempts is the number of retries after the first try.
	Attempts int
	// Timeout bounds each single attempt. Zero means no bound.
	Timeout     time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetryConfig retries once after a transient failure.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:    1,
		Timeout:     5 * time.Minute,
		BackoffBase: time.Second,
		BackoffMax:  8 * time.Second,
	}
}

// IsTransient reports whether err is worth another attempt: timeouts, network
// failures, rate limiting and server-side errors.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.Code)
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return transientStatus(coded.HTTPCode())
	}

	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func backoff(cfg RetryConfig, attempt int) time.Duration {
	d := time.Duration(float64(cfg.BackoffBase) * math.Pow(2, float64(attempt-1)))
	if cfg.BackoffMax > 0 && d > cfg.BackoffMax {
		d = cfg.BackoffMax
	}
	return d
}

// withRetry runs fn under a per-attempt timeout and repeats it while it fails
// transiently and retries remain.
func withRetry[T any](ctx context.Context, cfg RetryConfig, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		started := time.Now()
		result, err := fn(attemptCtx)
		cancel()
		log.DebugDuration(op, time.Since(started))

		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt > cfg.Attempts || !IsTransient(err) {
			return zero, err
		}

		wait := backoff(cfg, attempt)
		log.Warn("%s failed (%v), retrying in %s", op, err, wait)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}
}
