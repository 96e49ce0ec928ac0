package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiamVDB1/twitter-api/internal/domain"
)

type fakeFetcher struct {
	mu     sync.Mutex
	tweets map[string]*domain.Tweet
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) fetch(_ context.Context, id string) (*domain.Tweet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if err := f.errs[id]; err != nil {
		return nil, err
	}
	if tweet, ok := f.tweets[id]; ok {
		clone := *tweet
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeFetcher) fetchCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == id {
			n++
		}
	}
	return n
}

func newTestEngine(f *fakeFetcher) *Engine {
	return NewEngine(f.fetch, func() int { return 2 }, nil)
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "entities decoded", in: "fish &amp; chips", want: "fish & chips"},
		{name: "quote link stripped", in: "a long quote https://t.co/AbC123xyz", want: "a long quote"},
		{name: "mid-text link kept", in: "see https://t.co/AbC123 for details", want: "see https://t.co/AbC123 for details"},
		{name: "newlines collapsed and trimmed", in: "  one\ntwo\r\nthree  ", want: "one two three"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}

func retweetOf(id, topID, text string) domain.Tweet {
	return domain.Tweet{
		ID:        topID,
		Text:      "RT: " + text,
		HTML:      "<p>RT</p>",
		IsRetweet: true,
		RetweetedStatus: &domain.Tweet{
			ID:   id,
			Text: text,
			HTML: "<p>" + text + "</p>",
		},
	}
}

func TestTruncationRepairThresholdBoundary(t *testing.T) {
	t.Parallel()

	below := retweetOf("orig-short", "rt1", strings.Repeat("x", 264))
	at := retweetOf("orig-long", "rt2", strings.Repeat("y", 265))

	full := strings.Repeat("y", 400)
	f := &fakeFetcher{tweets: map[string]*domain.Tweet{
		"orig-long": {ID: "orig-long", Text: full, HTML: "<p>full</p>"},
	}}
	e := newTestEngine(f)

	out := e.Process(context.Background(), []domain.Tweet{below, at}, "someone")
	require.Len(t, out, 2)

	assert.Zero(t, f.fetchCount("orig-short"), "264 chars is below suspicion")
	assert.Equal(t, strings.Repeat("x", 264), out[0].Text, "top-level mirrors the nested original")
	assert.Equal(t, "<p>"+strings.Repeat("x", 264)+"</p>", out[0].HTML)

	assert.Equal(t, 1, f.fetchCount("orig-long"), "265 chars triggers one corrective fetch")
	assert.Equal(t, full, out[1].Text)
	assert.Equal(t, "<p>full</p>", out[1].HTML)
	require.NotNil(t, out[1].RetweetedStatus)
	assert.Equal(t, full, out[1].RetweetedStatus.Text)
}

func TestTruncationRepairFetchFailureKeepsOriginal(t *testing.T) {
	t.Parallel()

	suspicious := retweetOf("orig", "rt1", strings.Repeat("z", 300))
	f := &fakeFetcher{errs: map[string]error{"orig": errors.New("backend down")}}
	e := newTestEngine(f)

	out := e.Process(context.Background(), []domain.Tweet{suspicious}, "someone")
	require.Len(t, out, 1)
	assert.Equal(t, strings.Repeat("z", 300), out[0].Text, "failed repair keeps original content")
	assert.Equal(t, "orig", out[0].RetweetedStatus.ID)
}

func TestThreadSortsBundleByTimestamp(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{tweets: map[string]*domain.Tweet{
		"head": {
			ID:             "head",
			ConversationID: "head",
			Replies: []domain.Tweet{
				{ID: "r30", Timestamp: 30},
				{ID: "r10", Timestamp: 10},
				{ID: "r20", Timestamp: 20},
			},
		},
	}}
	e := newTestEngine(f)

	thread, err := e.Thread(context.Background(), "head")
	require.NoError(t, err)
	require.Len(t, thread, 4)

	ids := make([]string, 0, len(thread))
	for _, tweet := range thread {
		ids = append(ids, tweet.ID)
	}
	assert.Equal(t, []string{"head", "r10", "r20", "r30"}, ids)
}

func TestThreadResolvesHeadFromMember(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{tweets: map[string]*domain.Tweet{
		"member": {ID: "member", ConversationID: "head", Timestamp: 5},
		"head": {
			ID:             "head",
			ConversationID: "head",
			Timestamp:      1,
			Replies:        []domain.Tweet{{ID: "member", Timestamp: 5}},
		},
	}}
	e := newTestEngine(f)

	thread, err := e.Thread(context.Background(), "member")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "head", thread[0].ID)
	assert.Equal(t, "member", thread[1].ID)
}

func TestThreadEdgeCases(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{tweets: map[string]*domain.Tweet{
		"loner":    {ID: "loner", Text: "no conversation"},
		"orphaned": {ID: "orphaned", ConversationID: "gone"},
	}}
	e := newTestEngine(f)
	ctx := context.Background()

	thread, err := e.Thread(ctx, "loner")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "loner", thread[0].ID)

	thread, err = e.Thread(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, thread, "nonexistent tweet yields an empty thread")

	thread, err = e.Thread(ctx, "orphaned")
	require.NoError(t, err)
	assert.Empty(t, thread, "unavailable head yields an empty thread")
}

func TestMergeSplicesThreadOnceAndDropsDuplicates(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{tweets: map[string]*domain.Tweet{
		"C": {
			ID:             "C",
			ConversationID: "C",
			Timestamp:      1,
			Text:           "thread head",
			Replies: []domain.Tweet{
				{ID: "C3", Timestamp: 3},
				{ID: "C2", Timestamp: 2},
			},
		},
	}}
	e := newTestEngine(f)

	batch := []domain.Tweet{
		{ID: "X", ConversationID: "C", IsReply: true, InReplyToHandle: "User", Text: "part two"},
		{ID: "Y", Text: "unrelated"},
		{ID: "Z", ConversationID: "C", IsReply: true, Text: "part three"},
	}

	out := e.Process(context.Background(), batch, "user")
	require.Len(t, out, 4)

	ids := make([]string, 0, len(out))
	for _, tweet := range out {
		ids = append(ids, tweet.ID)
	}
	assert.Equal(t, []string{"C", "C2", "C3", "Y"}, ids)
	assert.Equal(t, 1, f.fetchCount("C"), "one conversation resolved once")
}

func TestMergeKeepsPlainRetweetSharingConversation(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{tweets: map[string]*domain.Tweet{
		"C": {
			ID:             "C",
			ConversationID: "C",
			Timestamp:      1,
			Text:           "thread head",
			Replies:        []domain.Tweet{{ID: "C2", Timestamp: 2}},
		},
	}}
	e := newTestEngine(f)

	// R reshares a tweet from conversation C but its nested text carries no
	// thread glyph, so it is not a candidate and must pass through unchanged
	// rather than be folded into the spliced thread.
	batch := []domain.Tweet{
		{ID: "X", ConversationID: "C", IsReply: true, Text: "part two"},
		{ID: "R", IsRetweet: true, RetweetedStatus: &domain.Tweet{
			ID: "C2", ConversationID: "C", Text: "plain reshare",
		}},
	}

	out := e.Process(context.Background(), batch, "user")
	require.Len(t, out, 3)

	ids := make([]string, 0, len(out))
	for _, tweet := range out {
		ids = append(ids, tweet.ID)
	}
	assert.Equal(t, []string{"C", "C2", "R"}, ids)
}

func TestMergeFetchFailurePassesItemsThrough(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{errs: map[string]error{"C": errors.New("backend down")}}
	e := newTestEngine(f)

	batch := []domain.Tweet{
		{ID: "X", ConversationID: "C", IsReply: true, Text: "part"},
		{ID: "Y", Text: "unrelated"},
	}

	out := e.Process(context.Background(), batch, "user")
	require.Len(t, out, 2)
	assert.Equal(t, "X", out[0].ID)
	assert.Equal(t, "Y", out[1].ID)
}

func TestThreadCandidacyRules(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeFetcher{})

	tests := []struct {
		name   string
		tweet  domain.Tweet
		handle string
		want   bool
	}{
		{
			name: "retweet with glyph and conversation",
			tweet: domain.Tweet{IsRetweet: true, RetweetedStatus: &domain.Tweet{
				Text: "1/n \U0001F9F5", ConversationID: "c1",
			}},
			want: true,
		},
		{
			name: "retweet with glyph but no conversation",
			tweet: domain.Tweet{IsRetweet: true, RetweetedStatus: &domain.Tweet{
				Text: "1/n \U0001F9F5",
			}},
			want: false,
		},
		{
			name:   "self-reply without glyph",
			tweet:  domain.Tweet{ConversationID: "c1", IsReply: true, InReplyToHandle: "Alice"},
			handle: "alice",
			want:   true,
		},
		{
			name:   "reply with absent target handle",
			tweet:  domain.Tweet{ConversationID: "c1", IsReply: true},
			handle: "alice",
			want:   true,
		},
		{
			name:   "reply to someone else without glyph",
			tweet:  domain.Tweet{ConversationID: "c1", IsReply: true, InReplyToHandle: "bob"},
			handle: "alice",
			want:   false,
		},
		{
			name:   "non-reply with glyph",
			tweet:  domain.Tweet{ConversationID: "c1", Text: "thread \U0001F9F5"},
			handle: "alice",
			want:   true,
		},
		{
			name:   "non-reply without glyph",
			tweet:  domain.Tweet{ConversationID: "c1", Text: "plain"},
			handle: "alice",
			want:   false,
		},
		{
			name:  "no conversation id",
			tweet: domain.Tweet{Text: "thread \U0001F9F5"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.isThreadCandidate(tt.tweet, tt.handle))
		})
	}
}
