// Package application exposes the outward-facing operations: pooled
// fetches with failover, batch reconciliation, and pool administration.
package application

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/failover"
	"github.com/LiamVDB1/twitter-api/internal/pool"
	"github.com/LiamVDB1/twitter-api/internal/ports"
	"github.com/LiamVDB1/twitter-api/internal/reconcile"
	"github.com/LiamVDB1/twitter-api/internal/session"
)

type Service struct {
	pool     *pool.Pool
	sessions *session.Cache
	orch     *failover.Orchestrator
	engine   *reconcile.Engine
	log      *slog.Logger
}

func NewService(accounts *pool.Pool, sessions *session.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		pool:     accounts,
		sessions: sessions,
		log:      log,
	}
	s.orch = failover.New(accounts, sessions, log)
	s.engine = reconcile.NewEngine(s.fetchTweet, accounts.Size, log)
	return s
}

// Login authenticates at least one pool account, proving the pool can
// serve requests.
func (s *Service) Login(ctx context.Context) error {
	_, err := failover.Run(ctx, s.orch, "", func(ctx context.Context, sess ports.Session, _ domain.Account) (struct{}, error) {
		ok, err := sess.IsLoggedIn(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if !ok {
			return struct{}{}, errors.New("session reported logged out after authentication")
		}
		return struct{}{}, nil
	})
	return err
}

// Logout deauthenticates every cached session.
func (s *Service) Logout(ctx context.Context) {
	s.sessions.LogoutAll(ctx)
}

// IsAuthenticatedAnywhere reports whether any live session remains.
func (s *Service) IsAuthenticatedAnywhere(ctx context.Context) bool {
	return s.sessions.AnyAuthenticated(ctx)
}

func (s *Service) GetProfile(ctx context.Context, handle string) (domain.Profile, error) {
	return failover.Run(ctx, s.orch, domain.CategoryProfiles, func(ctx context.Context, sess ports.Session, _ domain.Account) (domain.Profile, error) {
		return sess.Profile(ctx, handle)
	})
}

func (s *Service) GetTweet(ctx context.Context, id string) (*domain.Tweet, error) {
	tweet, err := s.fetchTweet(ctx, id)
	if err != nil {
		return nil, err
	}
	if tweet == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTweetNotFound, id)
	}
	return tweet, nil
}

// GetTweetsByUser collects the author's timeline up to max tweets, cutting
// off at sinceID when given, then runs the reconciliation passes.
func (s *Service) GetTweetsByUser(ctx context.Context, handle string, max int, sinceID string) ([]domain.Tweet, error) {
	tweets, err := failover.Run(ctx, s.orch, domain.CategoryTweets, func(ctx context.Context, sess ports.Session, _ domain.Account) ([]domain.Tweet, error) {
		return collect(sess.UserTweets(ctx, handle, max), max, sinceID)
	})
	if err != nil {
		return nil, err
	}
	return s.engine.Process(ctx, tweets, handle), nil
}

// GetLatestTweet returns the author's newest tweet, reconciled like any
// other batch.
func (s *Service) GetLatestTweet(ctx context.Context, handle string, includeRetweets bool) (*domain.Tweet, error) {
	tweet, err := failover.Run(ctx, s.orch, domain.CategoryTweets, func(ctx context.Context, sess ports.Session, _ domain.Account) (*domain.Tweet, error) {
		return sess.LatestTweet(ctx, handle, includeRetweets)
	})
	if err != nil {
		return nil, err
	}
	if tweet == nil {
		return nil, fmt.Errorf("%w: no tweets for %s", domain.ErrTweetNotFound, handle)
	}
	processed := s.engine.Process(ctx, []domain.Tweet{*tweet}, handle)
	if len(processed) == 0 {
		return tweet, nil
	}
	return &processed[0], nil
}

func (s *Service) Search(ctx context.Context, query string, max int, mode ports.SearchMode) ([]domain.Tweet, error) {
	if mode == "" {
		mode = ports.SearchTop
	}
	tweets, err := failover.Run(ctx, s.orch, domain.CategorySearch, func(ctx context.Context, sess ports.Session, _ domain.Account) ([]domain.Tweet, error) {
		return collect(sess.Search(ctx, query, max, mode), max, "")
	})
	if err != nil {
		return nil, err
	}
	return s.engine.Process(ctx, tweets, ""), nil
}

// GetThread returns the full conversation for the tweet, head first,
// ascending by timestamp.
func (s *Service) GetThread(ctx context.Context, id string) ([]domain.Tweet, error) {
	return s.engine.Thread(ctx, id)
}

// WaitTime reports how long until the pool can serve the category again.
func (s *Service) WaitTime(category domain.EndpointCategory) float64 {
	return s.pool.WaitTime(category).Seconds()
}

// fetchTweet is the corrective fetch the reconciliation engine uses; nil
// without error means the tweet does not exist.
func (s *Service) fetchTweet(ctx context.Context, id string) (*domain.Tweet, error) {
	return failover.Run(ctx, s.orch, domain.CategoryTweets, func(ctx context.Context, sess ports.Session, _ domain.Account) (*domain.Tweet, error) {
		return sess.Tweet(ctx, id)
	})
}

// collect drains a lazy tweet sequence up to max items, stopping early at
// the sinceID cutoff. The cutoff compares ids as strings, matching the
// source's pagination contract; that is only correct while compared ids
// share the same digit length.
func collect(seq iter.Seq2[domain.Tweet, error], max int, sinceID string) ([]domain.Tweet, error) {
	var out []domain.Tweet
	for tweet, err := range seq {
		if err != nil {
			return nil, err
		}
		if sinceID != "" && tweet.ID <= sinceID {
			break
		}
		out = append(out, tweet)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}
