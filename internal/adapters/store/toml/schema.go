package toml

import (
	"fmt"

	"github.com/LiamVDB1/twitter-api/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

type accountSchema struct {
	Username      string                    `toml:"username"`
	Password      string                    `toml:"password"`
	Email         string                    `toml:"email,omitempty"`
	Priority      int                       `toml:"priority"`
	Tags          []string                  `toml:"tags,omitempty"`
	Disabled      bool                      `toml:"disabled"`
	SessionActive bool                      `toml:"session_active"`
	Health        healthSchema              `toml:"health,omitempty"`
	RateLimits    map[string]rateLimitEntry `toml:"rate_limits,omitempty"`
}

type healthSchema struct {
	SuccessCount int    `toml:"success_count"`
	FailureCount int    `toml:"failure_count"`
	LastSuccess  int64  `toml:"last_success,omitempty"`
	LastFailure  int64  `toml:"last_failure,omitempty"`
	LastError    string `toml:"last_error,omitempty"`
}

type rateLimitEntry struct {
	Remaining int   `toml:"remaining"`
	ResetAt   int64 `toml:"reset_at"`
	Limit     int   `toml:"limit"`
}

func toSchema(account domain.Account) accountSchema {
	entry := accountSchema{
		Username:      account.Username,
		Password:      account.Password,
		Email:         account.Email,
		Priority:      account.Priority,
		Tags:          account.Tags,
		Disabled:      account.Disabled,
		SessionActive: account.SessionActive,
		Health: healthSchema{
			SuccessCount: account.Health.SuccessCount,
			FailureCount: account.Health.FailureCount,
			LastSuccess:  epochOrZero(account.Health.LastSuccess),
			LastFailure:  epochOrZero(account.Health.LastFailure),
			LastError:    account.Health.LastError,
		},
	}
	if len(account.RateLimits) > 0 {
		entry.RateLimits = make(map[string]rateLimitEntry, len(account.RateLimits))
		for category, limit := range account.RateLimits {
			entry.RateLimits[string(category)] = rateLimitEntry{
				Remaining: limit.Remaining,
				ResetAt:   limit.ResetAt,
				Limit:     limit.Limit,
			}
		}
	}
	return entry
}

func fromSchema(entry accountSchema) domain.Account {
	account := domain.Account{
		Username:      entry.Username,
		Password:      entry.Password,
		Email:         entry.Email,
		Priority:      entry.Priority,
		Tags:          entry.Tags,
		Disabled:      entry.Disabled,
		SessionActive: entry.SessionActive,
		Health: domain.Health{
			SuccessCount: entry.Health.SuccessCount,
			FailureCount: entry.Health.FailureCount,
			LastSuccess:  timeOrZero(entry.Health.LastSuccess),
			LastFailure:  timeOrZero(entry.Health.LastFailure),
			LastError:    entry.Health.LastError,
		},
	}
	if len(entry.RateLimits) > 0 {
		account.RateLimits = make(map[domain.EndpointCategory]domain.RateLimitInfo, len(entry.RateLimits))
		for category, limit := range entry.RateLimits {
			account.RateLimits[domain.EndpointCategory(category)] = domain.RateLimitInfo{
				Remaining: limit.Remaining,
				ResetAt:   limit.ResetAt,
				Limit:     limit.Limit,
			}
		}
	}
	return account
}
