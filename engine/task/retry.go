package task

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/compozy/flowcore/engine/workflow"
)

const maxBackoff = 30 * time.Second

// newBackoff builds the exponential backoff policy a task's retry policy
// describes: min(backoffMs * 2^(attempt-1), 30s), with no jitter since the
// formula is deterministic. maxAttempts bounds the total number of calls,
// including the first.
func newBackoff(backoffMs, maxAttempts int) retry.Backoff {
	b := retry.NewExponential(time.Duration(backoffMs) * time.Millisecond)
	b = retry.WithCappedDuration(maxBackoff, b)
	retries := maxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}

// runWithRetry drives attempt through retryPolicy's backoff, checking
// hostname's circuit before every call, and stops at the first success or
// non-retryable failure. attempt is handed the 1-indexed call number.
func (r *Runner) runWithRetry(
	ctx context.Context,
	hostname string,
	started time.Time,
	retryPolicy workflow.RetryPolicy,
	attempt func(ctx context.Context, n int) (TaskResult, *ErrorInfo),
) TaskResult {
	backoff := newBackoff(retryPolicy.BackoffMs, retryPolicy.MaxAttempts)
	n := 0
	var result TaskResult
	var lastErr *ErrorInfo

	retryErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n++
		allowed, done := r.circuits.Allow(hostname)
		if !allowed {
			r.metrics.CircuitOpen(ctx, hostname)
			lastErr = &ErrorInfo{
				ErrorType:            ErrorTypeCircuitOpen,
				RetryAttempts:        n - 1,
				IsRetryable:          false,
				DurationUntilErrorMs: time.Since(started).Milliseconds(),
				Suggestion:           suggestionFor(ErrorTypeCircuitOpen, 0),
			}
			return nil
		}

		attemptResult, errInfo := attempt(ctx, n)
		if errInfo == nil {
			done(true)
			attemptResult.RetryCount = n - 1
			result = attemptResult
			return nil
		}
		done(false)
		errInfo.RetryAttempts = n
		lastErr = errInfo
		if !errInfo.IsRetryable {
			return nil
		}
		return retry.RetryableError(fmt.Errorf("attempt %d failed: %s", n, lastErr.ErrorType))
	})

	if retryErr != nil && (ctx.Err() != nil || lastErr == nil) {
		return TaskResult{
			StartedAt:   started,
			CompletedAt: time.Now(),
			RetryCount:  n - 1,
			Error: &ErrorInfo{
				ErrorType:            ErrorTypeTimeout,
				RetryAttempts:        n - 1,
				DurationUntilErrorMs: time.Since(started).Milliseconds(),
			},
		}
	}
	if result.Success {
		return result
	}
	return TaskResult{StartedAt: started, CompletedAt: time.Now(), RetryCount: lastErr.RetryAttempts, Error: lastErr}
}

// backoffDelay computes the delay before the given 1-indexed attempt:
// min(backoffMs * 2^(attempt-1), 30s). Used by the WebSocket task, which
// drives its own retry loop rather than runWithRetry since it must hold a
// single connection open across the read loop.
func backoffDelay(backoffMs, attempt int) time.Duration {
	if attempt <= 1 {
		d := time.Duration(backoffMs) * time.Millisecond
		if d > maxBackoff {
			return maxBackoff
		}
		return d
	}
	shift := attempt - 1
	if shift > 32 {
		return maxBackoff
	}
	d := time.Duration(backoffMs) * time.Millisecond << uint(shift)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// isRetryableHTTPStatus reports whether an HTTP response status should be
// retried: 5xx, 408 (request timeout), and 429 (too many requests).
func isRetryableHTTPStatus(status int) bool {
	if status == 408 || status == 429 {
		return true
	}
	return status >= 500 && status <= 599
}
