// Package session caches live authenticated handles per account and lazily
// (re-)authenticates them.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/pool"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

type Cache struct {
	source ports.SourceClient
	pool   *pool.Pool
	log    *slog.Logger

	mu       sync.Mutex
	sessions map[string]ports.Session
}

func NewCache(source ports.SourceClient, accounts *pool.Pool, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		source:   source,
		pool:     accounts,
		log:      log,
		sessions: map[string]ports.Session{},
	}
}

// Ensure returns a live session for the account. A cached handle is only
// reused after the liveness probe confirms it; account.SessionActive is
// advisory and never trusted on its own. Authentication failures are
// recorded as pool failures and returned.
func (c *Cache) Ensure(ctx context.Context, account domain.Account) (ports.Session, error) {
	if cached := c.get(account.Username); cached != nil {
		ok, err := cached.IsLoggedIn(ctx)
		if err == nil && ok {
			return cached, nil
		}
		if err != nil {
			c.log.Debug("session probe failed, re-authenticating",
				"username", account.Username, "error", err)
		}
		c.remove(account.Username)
	}

	sess, err := c.source.Login(ctx, ports.Credentials{
		Username: account.Username,
		Password: account.Password,
		Email:    account.Email,
	})
	if err != nil {
		authErr := fmt.Errorf("authenticate %s: %w", account.Username, err)
		if recErr := c.pool.RecordOutcome(ctx, account.Username, false, authErr.Error(), "", nil); recErr != nil {
			c.log.Error("record auth failure", "username", account.Username, "error", recErr)
		}
		return nil, authErr
	}

	c.put(account.Username, sess)
	if err := c.pool.SetSessionActive(ctx, account.Username, true); err != nil {
		c.log.Error("mark session active", "username", account.Username, "error", err)
	}
	c.log.Info("session established", "username", account.Username)
	return sess, nil
}

// Has reports whether a handle is cached for the account.
func (c *Cache) Has(username string) bool {
	return c.get(username) != nil
}

// AnyAuthenticated probes every cached handle and reports whether at least
// one is still live.
func (c *Cache) AnyAuthenticated(ctx context.Context) bool {
	for username, sess := range c.snapshot() {
		ok, err := sess.IsLoggedIn(ctx)
		if err != nil {
			c.log.Debug("session probe failed", "username", username, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// LogoutAll deauthenticates and drops every cached handle.
func (c *Cache) LogoutAll(ctx context.Context) {
	for username, sess := range c.snapshot() {
		if err := sess.Logout(ctx); err != nil {
			c.log.Warn("logout failed", "username", username, "error", err)
		}
		c.remove(username)
		if err := c.pool.SetSessionActive(ctx, username, false); err != nil {
			c.log.Error("mark session inactive", "username", username, "error", err)
		}
	}
}

// Reset drops cached handles without deauthenticating. Test isolation hook.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = map[string]ports.Session{}
}

func (c *Cache) get(username string) ports.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[username]
}

func (c *Cache) put(username string, sess ports.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[username] = sess
}

func (c *Cache) remove(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, username)
}

func (c *Cache) snapshot() map[string]ports.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ports.Session, len(c.sessions))
	for k, v := range c.sessions {
		out[k] = v
	}
	return out
}
