package domain

import "time"

// EndpointCategory scopes rate-limit tracking and account selection to a
// coarse class of upstream calls.
type EndpointCategory string

const (
	CategoryTweets   EndpointCategory = "tweets"
	CategoryProfiles EndpointCategory = "profiles"
	CategorySearch   EndpointCategory = "search"
)

// Account is one credential in the pool, keyed by username.
type Account struct {
	Username string
	Password string
	Email    string

	// Priority orders the pool's base ranking; lower is preferred.
	Priority int
	Tags     []string

	Disabled bool
	// SessionActive is a best-effort cache of authentication state and may
	// be stale; the live session handle is authoritative.
	SessionActive bool
	// Reserved marks an account held by an in-flight attempt. It is a
	// cooperative flag owned by the pool and is never persisted.
	Reserved bool

	Health     Health
	RateLimits map[EndpointCategory]RateLimitInfo
}

type Health struct {
	SuccessCount int
	FailureCount int
	LastSuccess  time.Time
	LastFailure  time.Time
	LastError    string
}

// SuccessRate is 1.0 for an untested account: an account that has never
// been tried is assumed usable.
func (h Health) SuccessRate() float64 {
	total := h.SuccessCount + h.FailureCount
	if total == 0 {
		return 1.0
	}
	return float64(h.SuccessCount) / float64(total)
}

// RateLimitInfo is the last observed limit window for one endpoint
// category. Updates replace the whole entry, never merge fields.
type RateLimitInfo struct {
	Remaining int
	ResetAt   int64 // unix seconds
	Limit     int
}

// Usable reports whether the window still has budget or has already reset.
func (r RateLimitInfo) Usable(now time.Time) bool {
	return r.Remaining > 0 || now.Unix() >= r.ResetAt
}

// RateLimitUsable reports whether the account may serve the category right
// now. An account with no recorded entry for the category is unconstrained.
func (a Account) RateLimitUsable(category EndpointCategory, now time.Time) bool {
	if category == "" {
		return true
	}
	limit, ok := a.RateLimits[category]
	if !ok {
		return true
	}
	return limit.Usable(now)
}

// Clone returns a deep copy so pool internals never leak to callers.
func (a Account) Clone() Account {
	out := a
	if a.Tags != nil {
		out.Tags = make([]string, len(a.Tags))
		copy(out.Tags, a.Tags)
	}
	if a.RateLimits != nil {
		out.RateLimits = make(map[EndpointCategory]RateLimitInfo, len(a.RateLimits))
		for k, v := range a.RateLimits {
			out.RateLimits[k] = v
		}
	}
	return out
}
