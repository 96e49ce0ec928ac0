package application

import (
	"context"

	"github.com/LiamVDB1/twitter-api/internal/domain"
)

// AccountStatus is the per-account snapshot exposed to outer surfaces.
type AccountStatus struct {
	Username   string
	LoggedIn   bool
	Disabled   bool
	Health     domain.Health
	RateLimits map[domain.EndpointCategory]domain.RateLimitInfo
}

// PoolStatus reports every account in base order.
func (s *Service) PoolStatus() []AccountStatus {
	accounts := s.pool.Snapshot()
	statuses := make([]AccountStatus, 0, len(accounts))
	for _, account := range accounts {
		statuses = append(statuses, AccountStatus{
			Username:   account.Username,
			LoggedIn:   s.sessions.Has(account.Username),
			Disabled:   account.Disabled,
			Health:     account.Health,
			RateLimits: account.RateLimits,
		})
	}
	return statuses
}

func (s *Service) AddAccount(ctx context.Context, account domain.Account) error {
	return s.pool.Add(ctx, account)
}

func (s *Service) RemoveAccount(ctx context.Context, username string) error {
	return s.pool.Remove(ctx, username)
}

func (s *Service) EnableAccount(ctx context.Context, username string) error {
	return s.pool.Enable(ctx, username)
}

func (s *Service) DisableAccount(ctx context.Context, username string) error {
	return s.pool.Disable(ctx, username)
}
