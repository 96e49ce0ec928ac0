package ports

import (
	"context"
	"iter"

	"github.com/LiamVDB1/twitter-api/internal/domain"
)

// Credentials identify one account against the external source.
type Credentials struct {
	Username string
	Password string
	Email    string
}

// SearchMode selects the ordering/class of search results.
type SearchMode string

const (
	SearchTop    SearchMode = "top"
	SearchLatest SearchMode = "latest"
	SearchPhotos SearchMode = "photos"
	SearchVideos SearchMode = "videos"
	SearchUsers  SearchMode = "users"
)

// SourceClient opens authenticated sessions against the external source.
type SourceClient interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
}

// Session is one live authenticated handle. Tweet returns (nil, nil) when
// the id does not exist; errors mean the call itself failed. The lazy
// sequences yield items until the source runs out; callers stop early by
// breaking out of the range loop.
type Session interface {
	IsLoggedIn(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error

	Profile(ctx context.Context, handle string) (domain.Profile, error)
	Tweet(ctx context.Context, id string) (*domain.Tweet, error)
	UserTweets(ctx context.Context, handle string, max int) iter.Seq2[domain.Tweet, error]
	LatestTweet(ctx context.Context, handle string, includeRetweets bool) (*domain.Tweet, error)
	Search(ctx context.Context, query string, max int, mode SearchMode) iter.Seq2[domain.Tweet, error]

	// RateLimit reports the most recent limit window observed for the
	// category on this session, or nil if none was seen yet.
	RateLimit(category domain.EndpointCategory) *domain.RateLimitInfo
}
