package failover

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/pool"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

type stubSession struct {
	rateLimit *domain.RateLimitInfo
}

func (s *stubSession) IsLoggedIn(context.Context) (bool, error) { return true, nil }
func (s *stubSession) Logout(context.Context) error             { return nil }
func (s *stubSession) Profile(context.Context, string) (domain.Profile, error) {
	return domain.Profile{}, nil
}
func (s *stubSession) Tweet(context.Context, string) (*domain.Tweet, error) { return nil, nil }
func (s *stubSession) UserTweets(context.Context, string, int) iter.Seq2[domain.Tweet, error] {
	return func(func(domain.Tweet, error) bool) {}
}
func (s *stubSession) LatestTweet(context.Context, string, bool) (*domain.Tweet, error) {
	return nil, nil
}
func (s *stubSession) Search(context.Context, string, int, ports.SearchMode) iter.Seq2[domain.Tweet, error] {
	return func(func(domain.Tweet, error) bool) {}
}
func (s *stubSession) RateLimit(domain.EndpointCategory) *domain.RateLimitInfo {
	return s.rateLimit
}

type stubEnsurer struct {
	sessions map[string]ports.Session
	authErr  map[string]error
	pool     *pool.Pool
}

func (e *stubEnsurer) Ensure(ctx context.Context, account domain.Account) (ports.Session, error) {
	if err := e.authErr[account.Username]; err != nil {
		// The real cache records auth failures before propagating.
		_ = e.pool.RecordOutcome(ctx, account.Username, false, err.Error(), "", nil)
		return nil, err
	}
	if sess, ok := e.sessions[account.Username]; ok {
		return sess, nil
	}
	return &stubSession{}, nil
}

type nopStore struct{}

func (nopStore) LoadAll(context.Context) ([]domain.Account, error) { return nil, nil }
func (nopStore) Upsert(context.Context, domain.Account) error { return nil }
func (nopStore) Delete(context.Context, string) error { return nil }
func (nopStore) SaveState(context.Context, domain.Account) error { return nil }

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

func newTestPool(t *testing.T, usernames ...string) *pool.Pool {
	t.Helper()
	p := pool.New(nopStore{}, fixedClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}, nil)
	for _, username := range usernames {
		require.NoError(t, p.Add(context.Background(), domain.Account{Username: username}))
	}
	return p
}

func TestRunFirstSuccessWins(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, "one", "two", "three")
	ensurer := &stubEnsurer{pool: p}
	o := New(p, ensurer, nil)

	attempts := []string{}
	result, err := Run(context.Background(), o, domain.CategoryTweets, func(_ context.Context, _ ports.Session, account domain.Account) (string, error) {
		attempts = append(attempts, account.Username)
		if account.Username == "three" {
			return "payload", nil
		}
		return "", errors.New("upstream error")
	})

	require.NoError(t, err)
	assert.Equal(t, "payload", result)
	assert.Len(t, attempts, 3, "each failing account tried once, success stops the loop")

	var successes, failures int
	for _, account := range p.Snapshot() {
		successes += account.Health.SuccessCount
		failures += account.Health.FailureCount
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, failures)
}

func TestRunExhaustsPoolAfterPoolSizeAttempts(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, "one", "two", "three")
	o := New(p, &stubEnsurer{pool: p}, nil)

	attempts := 0
	_, err := Run(context.Background(), o, domain.CategoryTweets, func(_ context.Context, _ ports.Session, _ domain.Account) (int, error) {
		attempts++
		return 0, errors.New("always down")
	})

	require.ErrorIs(t, err, domain.ErrPoolExhausted)
	assert.Contains(t, err.Error(), "always down", "aggregate error carries the last cause")
	assert.Equal(t, 3, attempts)
}

func TestRunEmptyPoolFailsWithoutAttempting(t *testing.T) {
	t.Parallel()

	p := newTestPool(t)
	o := New(p, &stubEnsurer{pool: p}, nil)

	_, err := Run(context.Background(), o, "", func(_ context.Context, _ ports.Session, _ domain.Account) (int, error) {
		t.Fatal("operation must not run")
		return 0, nil
	})
	assert.ErrorIs(t, err, domain.ErrNoAccountAvailable)
}

func TestRunAuthFailureFallsThrough(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, "broken", "working")
	ensurer := &stubEnsurer{
		pool:    p,
		authErr: map[string]error{"broken": errors.New("bad credentials")},
	}
	o := New(p, ensurer, nil)

	result, err := Run(context.Background(), o, domain.CategoryProfiles, func(_ context.Context, _ ports.Session, account domain.Account) (string, error) {
		return account.Username, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "working", result)

	broken, err := p.Get("broken")
	require.NoError(t, err)
	assert.Equal(t, 1, broken.Health.FailureCount, "auth failure recorded exactly once")
}

func TestRunClearsReservationOnAllPaths(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, "solo")
	o := New(p, &stubEnsurer{pool: p}, nil)

	_, err := Run(context.Background(), o, "", func(_ context.Context, _ ports.Session, _ domain.Account) (int, error) {
		return 0, errors.New("boom")
	})
	require.ErrorIs(t, err, domain.ErrPoolExhausted)

	account, err := p.Get("solo")
	require.NoError(t, err)
	assert.False(t, account.Reserved)

	_, err = Run(context.Background(), o, "", func(_ context.Context, _ ports.Session, _ domain.Account) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	account, err = p.Get("solo")
	require.NoError(t, err)
	assert.False(t, account.Reserved)
}

func TestRunRecordsObservedRateLimit(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, "alpha")
	limit := &domain.RateLimitInfo{Remaining: 7, ResetAt: 12345, Limit: 50}
	ensurer := &stubEnsurer{
		pool:     p,
		sessions: map[string]ports.Session{"alpha": &stubSession{rateLimit: limit}},
	}
	o := New(p, ensurer, nil)

	_, err := Run(context.Background(), o, domain.CategoryTweets, func(_ context.Context, _ ports.Session, _ domain.Account) (struct{}, error) {
		return struct{}{}, nil
	})
	require.NoError(t, err)

	account, err := p.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, *limit, account.RateLimits[domain.CategoryTweets])
}
