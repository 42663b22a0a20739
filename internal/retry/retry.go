// Package retry bounds operations that are expected to fail transiently, like coaxing well-formed output out of a
// text generator.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/polluterofminds/parallax-server/internal/errors"
)

// ErrBudgetExhausted is returned when every attempt allowed by a [Policy] failed.
var ErrBudgetExhausted = errors.NewSentinel("retry budget exhausted")

// Policy is the retry budget for one operation.
type Policy struct {
	// MaxTries caps the number of attempts including the first one. Zero means no cap.
	MaxTries uint
	// MaxElapsed caps the total time spent. Zero means [DefaultMaxElapsed].
	MaxElapsed time.Duration
	// NewBackOff returns the wait strategy between attempts. Defaults to exponential backoff.
	NewBackOff func() backoff.BackOff
}

// DefaultMaxElapsed is the time cap of a policy that doesn't set one. It matches the backoff package's default.
const DefaultMaxElapsed = 15 * time.Minute

// Elapsed returns the effective cap on the total time spent.
func (p Policy) Elapsed() time.Duration {
	if p.MaxElapsed > 0 {
		return p.MaxElapsed
	}
	return DefaultMaxElapsed
}

// NoWait returns a backoff without delays between attempts.
func NoWait() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

// Permanent marks err as not worth retrying. [Do] returns it unchanged.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, fails permanently, the context is done or the policy is exhausted.
//
// Every failed attempt is logged at warning level with its attempt number. When the budget runs out, the returned
// error matches both [ErrBudgetExhausted] and the last failure.
func Do[T any](ctx context.Context, logger *slog.Logger, policy Policy, op func(ctx context.Context, attempt uint) (T, error)) (T, error) {
	var (
		attempt   uint
		permanent bool
	)
	newBackOff := policy.NewBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	operation := func() (T, error) {
		attempt++
		res, err := op(ctx, attempt)
		if err != nil {
			var perr *backoff.PermanentError
			if errors.As(err, &perr) {
				permanent = true
				return res, err
			}
			logger.LogAttrs(ctx, slog.LevelWarn, "attempt failed",
				slog.Uint64("attempt", uint64(attempt)), errors.SlogError(err))
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxElapsedTime(policy.Elapsed()),
	}
	if policy.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(policy.MaxTries))
	}

	res, err := backoff.Retry(ctx, operation, opts...)
	switch {
	case err == nil:
		return res, nil
	case permanent:
		return res, err
	case ctx.Err() != nil:
		return res, errors.Wrap(err, "retry cancelled", slog.Uint64("attempts", uint64(attempt)))
	default:
		return res, errors.Wrap(errors.Join(ErrBudgetExhausted, err), "give up",
			slog.Uint64("attempts", uint64(attempt)))
	}
}
