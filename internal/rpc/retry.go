package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/pkg/config"
)

// limitExceededCode is the JSON-RPC error code nodes use for request rate limits.
const limitExceededCode = -32005

var transientMarkers = []string{
	"timeout",
	"deadline exceeded",
	"429",
	"too many requests",
	"rate limit",
	"502",
	"503",
	"504",
	"bad gateway",
	"service unavailable",
	"connection pool",
	"no available connection",
	"connection reset",
}

// retryableError reports whether err is transient and the request may be repeated.
// Range-too-large responses are not transient: the caller has to shrink the request.
func retryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return false
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == limitExceededCode {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// calculateBackoff computes the wait before the given attempt, with +/-25% jitter.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	backoff := float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-2))
	backoff = math.Min(backoff, float64(cfg.MaxBackoff.Duration))

	jitterRange := backoff * 0.25 //nolint:mnd
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange

	return time.Duration(math.Max(backoff, 0))
}

// retryPolicy repeats a request while it fails with transient errors.
// Each attempt gets its own timeout when timeout is positive.
type retryPolicy struct {
	cfg     *config.RetryConfig
	timeout time.Duration
	log     *logger.Logger
}

// do runs fn until it succeeds, fails permanently or runs out of attempts.
func (p *retryPolicy) do(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	maxAttempts := 1
	if p.cfg != nil && p.cfg.MaxAttempts > 1 {
		maxAttempts = p.cfg.MaxAttempts
	}

	var lastErr error
	start := time.Now()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := calculateBackoff(attempt, p.cfg)
			p.log.Debugf("retrying %s in %v (attempt %d/%d): %v", method, wait, attempt, maxAttempts, lastErr)
			RPCRetryInc(method)

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("%s: context cancelled during backoff (attempt %d/%d): %w",
					method, attempt-1, maxAttempts, ctx.Err())
			}
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context cancelled before attempt %d: %w", method, attempt, err)
		}

		lastErr = p.attempt(ctx, fn)
		if lastErr == nil {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context cancelled after attempt %d: %w", method, attempt, err)
		}

		if !retryableError(lastErr) {
			if maxAttempts == 1 {
				return lastErr
			}
			return fmt.Errorf("%s: non-retryable error on attempt %d/%d: %w", method, attempt, maxAttempts, lastErr)
		}
	}

	if maxAttempts == 1 {
		return lastErr
	}

	return fmt.Errorf("%s: all %d attempts failed after %v (last error: %w)",
		method, maxAttempts, time.Since(start), lastErr)
}

func (p *retryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return fn(attemptCtx)
}
