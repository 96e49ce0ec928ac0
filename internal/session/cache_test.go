package session

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

type fakeSession struct {
	loggedIn  bool
	probeErr  error
	logoutErr error
	loggedOut bool
}

func (s *fakeSession) IsLoggedIn(context.Context) (bool, error) { return s.loggedIn, s.probeErr }
func (s *fakeSession) Logout(context.Context) error {
	s.loggedOut = true
	return s.logoutErr
}
func (s *fakeSession) Profile(context.Context, string) (domain.Profile, error) {
	return domain.Profile{}, nil
}
func (s *fakeSession) Tweet(context.Context, string) (*domain.Tweet, error) { return nil, nil }
func (s *fakeSession) UserTweets(context.Context, string, int) iter.Seq2[domain.Tweet, error] {
	return func(func(domain.Tweet, error) bool) {}
}
func (s *fakeSession) LatestTweet(context.Context, string, bool) (*domain.Tweet, error) {
	return nil, nil
}
func (s *fakeSession) Search(context.Context, string, int, ports.SearchMode) iter.Seq2[domain.Tweet, error] {
	return func(func(domain.Tweet, error) bool) {}
}
func (s *fakeSession) RateLimit(domain.EndpointCategory) *domain.RateLimitInfo { return nil }

type fakeSource struct {
	logins   int
	loginErr error
	next     *fakeSession
}

func (f *fakeSource) Login(context.Context, ports.Credentials) (ports.Session, error) {
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.next == nil {
		f.next = &fakeSession{loggedIn: true}
	}
	return f.next, nil
}

type memStore struct {
	saved int
}

func (s *memStore) LoadAll(context.Context) ([]domain.Account, error) { return nil, nil }
func (s *memStore) Upsert(context.Context, domain.Account) error { return nil }
func (s *memStore) Delete(context.Context, string) error { return nil }
func (s *memStore) SaveState(context.Context, domain.Account) error {
	s.saved++
	return nil
}

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

func newTestPool(t *testing.T, store ports.AccountStore, usernames ...string) *pool.Pool {
	t.Helper()
	p := pool.New(store, fixedClock{now: time.Unix(1_700_000_000, 0)}, nil)
	for _, username := range usernames {
		require.NoError(t, p.Add(context.Background(), domain.Account{Username: username, Password: "pw"}))
	}
	return p
}

func TestEnsureCachesLiveSession(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	p := newTestPool(t, &memStore{}, "alpha")
	cache := NewCache(source, p, nil)
	account, err := p.Get("alpha")
	require.NoError(t, err)

	first, err := cache.Ensure(context.Background(), account)
	require.NoError(t, err)
	second, err := cache.Ensure(context.Background(), account)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, source.logins, "live cached handle is reused")
	assert.True(t, cache.Has("alpha"))
}

func TestEnsureReauthenticatesWhenProbeSaysLoggedOut(t *testing.T) {
	t.Parallel()

	source := &fakeSource{next: &fakeSession{loggedIn: false}}
	p := newTestPool(t, &memStore{}, "alpha")
	cache := NewCache(source, p, nil)
	account, err := p.Get("alpha")
	require.NoError(t, err)

	_, err = cache.Ensure(context.Background(), account)
	require.NoError(t, err)

	// The cached handle now probes as logged out, so a fresh login happens.
	source.next = &fakeSession{loggedIn: true}
	_, err = cache.Ensure(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, 2, source.logins)
}

func TestEnsureRecordsAuthFailure(t *testing.T) {
	t.Parallel()

	source := &fakeSource{loginErr: errors.New("bad credentials")}
	p := newTestPool(t, &memStore{}, "alpha")
	cache := NewCache(source, p, nil)
	account, err := p.Get("alpha")
	require.NoError(t, err)

	_, err = cache.Ensure(context.Background(), account)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")

	updated, err := p.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Health.FailureCount)
	assert.False(t, cache.Has("alpha"))
}

func TestEnsureMarksSessionActive(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, &memStore{}, "alpha")
	cache := NewCache(&fakeSource{}, p, nil)
	account, err := p.Get("alpha")
	require.NoError(t, err)

	_, err = cache.Ensure(context.Background(), account)
	require.NoError(t, err)

	updated, err := p.Get("alpha")
	require.NoError(t, err)
	assert.True(t, updated.SessionActive)
}

func TestLogoutAllClosesEverySession(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{loggedIn: true}
	source := &fakeSource{next: sess}
	p := newTestPool(t, &memStore{}, "alpha")
	cache := NewCache(source, p, nil)
	account, err := p.Get("alpha")
	require.NoError(t, err)

	_, err = cache.Ensure(context.Background(), account)
	require.NoError(t, err)
	require.True(t, cache.AnyAuthenticated(context.Background()))

	cache.LogoutAll(context.Background())

	assert.True(t, sess.loggedOut)
	assert.False(t, cache.Has("alpha"))
	assert.False(t, cache.AnyAuthenticated(context.Background()))

	updated, err := p.Get("alpha")
	require.NoError(t, err)
	assert.False(t, updated.SessionActive)
}
