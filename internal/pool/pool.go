// Package pool owns the account collection: selection policy, health and
// rate-limit bookkeeping, and write-through persistence. All mutation of
// account state goes through here.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

// Auto-disable thresholds: an account is pulled from rotation once it has
// failed more than maxFailures times with a success rate under minRate.
const (
	autoDisableMaxFailures = 5
	autoDisableMinRate     = 0.2
)

type Pool struct {
	mu       sync.Mutex
	accounts []*domain.Account // base ordering: ascending priority, stable

	store ports.AccountStore
	clock ports.Clock
	log   *slog.Logger
}

func New(store ports.AccountStore, clock ports.Clock, log *slog.Logger) *Pool {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{store: store, clock: clock, log: log}
}

// Load seeds the pool from the store, replacing current membership.
func (p *Pool) Load(ctx context.Context) error {
	accounts, err := p.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.accounts = p.accounts[:0]
	for i := range accounts {
		account := accounts[i].Clone()
		account.Reserved = false
		if account.Priority < 1 {
			account.Priority = 1
		}
		p.accounts = append(p.accounts, &account)
	}
	p.reorder()
	p.log.Info("account pool loaded", "accounts", len(p.accounts))
	return nil
}

// Reset drops all accounts without touching the store. Test isolation hook.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = nil
}

func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accounts)
}

// Snapshot returns copies of every account in base order.
func (p *Pool) Snapshot() []domain.Account {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.Account, 0, len(p.accounts))
	for _, account := range p.accounts {
		out = append(out, account.Clone())
	}
	return out
}

func (p *Pool) Get(username string) (domain.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account := p.find(username)
	if account == nil {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

// SelectBest returns the eligible account with the highest success rate,
// ties broken by base order. Eligible: not disabled, not excluded, not
// reserved, and rate-limit-usable for the category (no category filter when
// category is empty). Returns false if nothing survives the filter.
func (p *Pool) SelectBest(category domain.EndpointCategory, excluding map[string]struct{}) (domain.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account := p.selectBestLocked(category, excluding)
	if account == nil {
		return domain.Account{}, false
	}
	return account.Clone(), true
}

// AcquireBest selects and reserves in one step so two concurrent callers
// can never reserve the same account.
func (p *Pool) AcquireBest(category domain.EndpointCategory, excluding map[string]struct{}) (domain.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account := p.selectBestLocked(category, excluding)
	if account == nil {
		return domain.Account{}, false
	}
	account.Reserved = true
	return account.Clone(), true
}

// Release clears the reservation flag. Safe to call on any exit path.
func (p *Pool) Release(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if account := p.find(username); account != nil {
		account.Reserved = false
	}
}

func (p *Pool) selectBestLocked(category domain.EndpointCategory, excluding map[string]struct{}) *domain.Account {
	now := p.clock.Now()
	var best *domain.Account
	for _, account := range p.accounts {
		if account.Disabled || account.Reserved {
			continue
		}
		if _, skip := excluding[account.Username]; skip {
			continue
		}
		if !account.RateLimitUsable(category, now) {
			continue
		}
		if best == nil || account.Health.SuccessRate() > best.Health.SuccessRate() {
			best = account
		}
	}
	return best
}

// WaitTime reports how long until some non-disabled account becomes usable
// for the category: zero if one is usable now. An account with no recorded
// entry for the category is unconstrained, hence usable now.
func (p *Pool) WaitTime(category domain.EndpointCategory) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	var (
		minWait time.Duration
		found   bool
	)
	for _, account := range p.accounts {
		if account.Disabled {
			continue
		}
		limit, ok := account.RateLimits[category]
		if !ok || limit.Usable(now) {
			return 0
		}
		wait := time.Duration(limit.ResetAt-now.Unix()) * time.Second
		if wait < 0 {
			wait = 0
		}
		if !found || wait < minWait {
			minWait = wait
			found = true
		}
	}
	if !found {
		return 0
	}
	return minWait
}

// RecordOutcome updates health counters and, when supplied, replaces the
// category's rate-limit entry wholesale, then writes the account through to
// the store. A failure that pushes the account past the auto-disable
// thresholds disables it.
func (p *Pool) RecordOutcome(ctx context.Context, username string, success bool, errMsg string, category domain.EndpointCategory, rateLimit *domain.RateLimitInfo) error {
	p.mu.Lock()
	account := p.find(username)
	if account == nil {
		p.mu.Unlock()
		return domain.ErrAccountNotFound
	}

	now := p.clock.Now()
	if success {
		account.Health.SuccessCount++
		account.Health.LastSuccess = now
	} else {
		account.Health.FailureCount++
		account.Health.LastFailure = now
		account.Health.LastError = errMsg
		if account.Health.FailureCount > autoDisableMaxFailures && account.Health.SuccessRate() < autoDisableMinRate {
			account.Disabled = true
			p.log.Warn("account auto-disabled",
				"username", account.Username,
				"failures", account.Health.FailureCount,
				"success_rate", account.Health.SuccessRate())
		}
	}
	if rateLimit != nil && category != "" {
		if account.RateLimits == nil {
			account.RateLimits = map[domain.EndpointCategory]domain.RateLimitInfo{}
		}
		account.RateLimits[category] = *rateLimit
	}
	snapshot := account.Clone()
	p.mu.Unlock()

	if err := p.store.SaveState(ctx, snapshot); err != nil {
		return fmt.Errorf("persist account state: %w", err)
	}
	return nil
}

// SetSessionActive records the advisory login flag.
func (p *Pool) SetSessionActive(ctx context.Context, username string, active bool) error {
	p.mu.Lock()
	account := p.find(username)
	if account == nil {
		p.mu.Unlock()
		return domain.ErrAccountNotFound
	}
	account.SessionActive = active
	snapshot := account.Clone()
	p.mu.Unlock()

	if err := p.store.SaveState(ctx, snapshot); err != nil {
		return fmt.Errorf("persist account state: %w", err)
	}
	return nil
}

// Add inserts or replaces an account and persists it.
func (p *Pool) Add(ctx context.Context, account domain.Account) error {
	if account.Username == "" {
		return fmt.Errorf("username is required")
	}
	if account.Priority < 1 {
		account.Priority = 1
	}
	account.Reserved = false

	if err := p.store.Upsert(ctx, account); err != nil {
		return fmt.Errorf("persist account: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing := p.find(account.Username); existing != nil {
		clone := account.Clone()
		*existing = clone
	} else {
		clone := account.Clone()
		p.accounts = append(p.accounts, &clone)
	}
	p.reorder()
	return nil
}

func (p *Pool) Remove(ctx context.Context, username string) error {
	if err := p.store.Delete(ctx, username); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, account := range p.accounts {
		if account.Username == username {
			p.accounts = append(p.accounts[:i], p.accounts[i+1:]...)
			break
		}
	}
	p.reorder()
	return nil
}

func (p *Pool) Enable(ctx context.Context, username string) error {
	return p.setDisabled(ctx, username, false)
}

func (p *Pool) Disable(ctx context.Context, username string) error {
	return p.setDisabled(ctx, username, true)
}

func (p *Pool) setDisabled(ctx context.Context, username string, disabled bool) error {
	p.mu.Lock()
	account := p.find(username)
	if account == nil {
		p.mu.Unlock()
		return domain.ErrAccountNotFound
	}
	if account.Disabled == disabled {
		p.mu.Unlock()
		return nil
	}
	account.Disabled = disabled
	snapshot := account.Clone()
	p.mu.Unlock()

	if err := p.store.SaveState(ctx, snapshot); err != nil {
		return fmt.Errorf("persist account state: %w", err)
	}
	return nil
}

func (p *Pool) find(username string) *domain.Account {
	for _, account := range p.accounts {
		if account.Username == username {
			return account
		}
	}
	return nil
}

// reorder re-establishes the base ordering after membership changes: stable
// sort by ascending priority, insertion order preserved within a priority.
func (p *Pool) reorder() {
	sort.SliceStable(p.accounts, func(i, j int) bool {
		return p.accounts[i].Priority < p.accounts[j].Priority
	})
}
