// Package failover executes operations against the best available account
// and retries across the pool until one succeeds or all are exhausted.
package failover

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/pool"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

// Operation runs one logical call on an authenticated session. Typed errors
// from individual attempts are absorbed by Run; only the terminal failure
// reaches the caller.
type Operation[T any] func(ctx context.Context, sess ports.Session, account domain.Account) (T, error)

// SessionEnsurer is the narrow slice of the session cache the orchestrator
// needs.
type SessionEnsurer interface {
	Ensure(ctx context.Context, account domain.Account) (ports.Session, error)
}

type Orchestrator struct {
	pool     *pool.Pool
	sessions SessionEnsurer
	log      *slog.Logger
}

func New(accounts *pool.Pool, sessions SessionEnsurer, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{pool: accounts, sessions: sessions, log: log}
}

// Run tries the operation on the best account for the category, falling
// through to the next best on every failure. First success wins; each
// account is attempted at most once per call.
func Run[T any](ctx context.Context, o *Orchestrator, category domain.EndpointCategory, op Operation[T]) (T, error) {
	var zero T

	size := o.pool.Size()
	if size == 0 {
		return zero, domain.ErrNoAccountAvailable
	}

	attempted := make(map[string]struct{}, size)
	var lastErr error

	for len(attempted) < size {
		account, ok := o.pool.AcquireBest(category, attempted)
		if !ok {
			break
		}
		attempted[account.Username] = struct{}{}

		result, err := attempt(ctx, o, category, account, op)
		if err == nil {
			return result, nil
		}
		lastErr = err
		o.log.Warn("attempt failed, trying next account",
			"username", account.Username,
			"category", string(category),
			"error", err)
	}

	if lastErr == nil {
		return zero, fmt.Errorf("%w: no eligible account for category %q", domain.ErrPoolExhausted, category)
	}
	return zero, fmt.Errorf("%w after %d attempts: %s", domain.ErrPoolExhausted, len(attempted), lastErr)
}

// attempt holds the reservation for exactly one try; the deferred release
// covers success, failure, and panics alike.
func attempt[T any](ctx context.Context, o *Orchestrator, category domain.EndpointCategory, account domain.Account, op Operation[T]) (_ T, err error) {
	defer o.pool.Release(account.Username)

	var zero T

	sess, err := o.sessions.Ensure(ctx, account)
	if err != nil {
		// Ensure already recorded the auth failure against the account.
		return zero, err
	}

	result, err := op(ctx, sess, account)
	rateLimit := sess.RateLimit(category)

	if err != nil {
		if recErr := o.pool.RecordOutcome(ctx, account.Username, false, err.Error(), category, rateLimit); recErr != nil {
			o.log.Error("record failure", "username", account.Username, "error", recErr)
		}
		return zero, err
	}

	if recErr := o.pool.RecordOutcome(ctx, account.Username, true, "", category, rateLimit); recErr != nil {
		o.log.Error("record success", "username", account.Username, "error", recErr)
	}
	return result, nil
}

// PoolSize exposes the current pool size for fan-out ceilings.
func (o *Orchestrator) PoolSize() int {
	return o.pool.Size()
}
