package ports

import (
	"context"

	"github.com/LiamVDB1/twitter-api/internal/domain"
)

// AccountStore is the persistence collaborator. It seeds the pool at
// startup and receives a write-through copy on every health or rate-limit
// change.
type AccountStore interface {
	LoadAll(ctx context.Context) ([]domain.Account, error)
	Upsert(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, username string) error
	// SaveState persists mutable account state (health, rate limits,
	// disabled, session flag) for an account that already exists.
	SaveState(ctx context.Context, account domain.Account) error
}
