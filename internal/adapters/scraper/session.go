package scraper

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

var errNotFound = errors.New("not found")

type session struct {
	client *Client
	token  string

	mu         sync.Mutex
	rateLimits map[domain.EndpointCategory]domain.RateLimitInfo
}

var _ ports.Session = (*session)(nil)

func newSession(client *Client, token string) *session {
	return &session{
		client:     client,
		token:      token,
		rateLimits: map[domain.EndpointCategory]domain.RateLimitInfo{},
	}
}

type probeResponse struct {
	Authenticated bool `json:"authenticated"`
}

func (s *session) IsLoggedIn(ctx context.Context) (bool, error) {
	var decoded probeResponse
	err := s.client.get(ctx, s, "", "/v1/sessions/me", nil, &decoded)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return decoded.Authenticated, nil
}

func (s *session) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.client.baseURL+"/v1/sessions/me", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func (s *session) Profile(ctx context.Context, handle string) (domain.Profile, error) {
	var profile domain.Profile
	err := s.client.get(ctx, s, domain.CategoryProfiles, "/v1/profiles/"+url.PathEscape(handle), nil, &profile)
	if errors.Is(err, errNotFound) {
		return domain.Profile{}, fmt.Errorf("profile %s not found", handle)
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// Tweet returns (nil, nil) when the id does not exist.
func (s *session) Tweet(ctx context.Context, id string) (*domain.Tweet, error) {
	var tweet domain.Tweet
	err := s.client.get(ctx, s, domain.CategoryTweets, "/v1/tweets/"+url.PathEscape(id), nil, &tweet)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tweet, nil
}

func (s *session) LatestTweet(ctx context.Context, handle string, includeRetweets bool) (*domain.Tweet, error) {
	query := url.Values{}
	query.Set("include_retweets", strconv.FormatBool(includeRetweets))

	var tweet domain.Tweet
	err := s.client.get(ctx, s, domain.CategoryTweets, "/v1/users/"+url.PathEscape(handle)+"/tweets/latest", query, &tweet)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tweet, nil
}

type tweetPage struct {
	Tweets     []domain.Tweet `json:"tweets"`
	NextCursor string         `json:"next_cursor"`
}

func (s *session) UserTweets(ctx context.Context, handle string, max int) iter.Seq2[domain.Tweet, error] {
	path := "/v1/users/" + url.PathEscape(handle) + "/tweets"
	return s.paginate(ctx, domain.CategoryTweets, path, url.Values{}, max)
}

func (s *session) Search(ctx context.Context, query string, max int, mode ports.SearchMode) iter.Seq2[domain.Tweet, error] {
	values := url.Values{}
	values.Set("q", query)
	values.Set("mode", string(mode))
	return s.paginate(ctx, domain.CategorySearch, "/v1/search", values, max)
}

// paginate walks cursor pages lazily, yielding tweets until the consumer
// stops, the backend runs out, or max items were produced.
func (s *session) paginate(ctx context.Context, category domain.EndpointCategory, path string, base url.Values, max int) iter.Seq2[domain.Tweet, error] {
	return func(yield func(domain.Tweet, error) bool) {
		cursor := ""
		produced := 0
		for {
			query := url.Values{}
			for k, v := range base {
				query[k] = v
			}
			if cursor != "" {
				query.Set("cursor", cursor)
			}
			if max > 0 {
				query.Set("limit", strconv.Itoa(max-produced))
			}

			var page tweetPage
			if err := s.client.get(ctx, s, category, path, query, &page); err != nil {
				if errors.Is(err, errNotFound) {
					return
				}
				yield(domain.Tweet{}, err)
				return
			}

			for _, tweet := range page.Tweets {
				if !yield(tweet, nil) {
					return
				}
				produced++
				if max > 0 && produced >= max {
					return
				}
			}

			if page.NextCursor == "" || len(page.Tweets) == 0 {
				return
			}
			cursor = page.NextCursor
		}
	}
}

func (s *session) RateLimit(category domain.EndpointCategory) *domain.RateLimitInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit, ok := s.rateLimits[category]
	if !ok {
		return nil
	}
	return &limit
}

func (s *session) setRateLimit(category domain.EndpointCategory, limit domain.RateLimitInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimits[category] = limit
}
