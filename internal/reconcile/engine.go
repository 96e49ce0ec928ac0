// Package reconcile post-processes fetched batches: it repairs suspected
// truncation in reshared content and reassembles multi-tweet conversation
// threads. Both passes are best-effort; a corrective fetch that fails keeps
// the original content and never fails the batch.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/fanout"
)

// truncationThreshold is a safety margin below the platform's 280-character
// display limit; truncation can land mid-word so the boundary is not exact.
const truncationThreshold = 265

const threadGlyph = "\U0001F9F5"

// Fetcher issues a corrective single-tweet fetch, typically backed by the
// failover orchestrator. It returns (nil, nil) when the id does not exist.
type Fetcher func(ctx context.Context, id string) (*domain.Tweet, error)

type Engine struct {
	fetch    Fetcher
	poolSize func() int
	log      *slog.Logger
}

func NewEngine(fetch Fetcher, poolSize func() int, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{fetch: fetch, poolSize: poolSize, log: log}
}

// Process applies truncation repair and then thread merge to the batch.
// queriedHandle is the username the batch was fetched for; it drives the
// self-reply heuristic and may be empty for searches.
func (e *Engine) Process(ctx context.Context, tweets []domain.Tweet, queriedHandle string) []domain.Tweet {
	if len(tweets) == 0 {
		return tweets
	}
	repaired := e.repairTruncation(ctx, tweets)
	return e.mergeThreads(ctx, repaired, queriedHandle)
}

// repairOutcome carries either the freshly fetched full tweet or, with full
// nil, the decision to keep the original content.
type repairOutcome struct {
	index int
	full  *domain.Tweet
}

// repairTruncation mirrors reshared content into the top-level fields and
// re-fetches originals whose normalized text length suggests truncation.
func (e *Engine) repairTruncation(ctx context.Context, tweets []domain.Tweet) []domain.Tweet {
	out := make([]domain.Tweet, len(tweets))
	copy(out, tweets)

	var suspects []int
	for i := range out {
		if !out[i].IsRetweet || out[i].RetweetedStatus == nil {
			continue
		}
		nested := out[i].RetweetedStatus
		// Keep the top-level fields mirroring the reshared original even
		// when no repair happens.
		out[i].Text = nested.Text
		out[i].HTML = nested.HTML

		if utf8.RuneCountInString(normalizeText(nested.Text)) >= truncationThreshold {
			suspects = append(suspects, i)
		}
	}
	if len(suspects) == 0 {
		return out
	}

	outcomes := fanout.Map(suspects, e.poolSize(), func(i int) repairOutcome {
		id := out[i].RetweetedStatus.ID
		full, err := e.fetch(ctx, id)
		if err != nil {
			e.log.Warn("truncation repair fetch failed, keeping original",
				"tweet_id", id, "error", err)
			return repairOutcome{index: i}
		}
		return repairOutcome{index: i, full: full}
	})

	for _, outcome := range outcomes {
		if outcome.full == nil {
			continue
		}
		full := *outcome.full
		out[outcome.index].RetweetedStatus = &full
		out[outcome.index].Text = full.Text
		out[outcome.index].HTML = full.HTML
	}
	return out
}

// mergeThreads resolves the distinct conversations the batch points at and
// splices each resolved thread in at its first occurrence, dropping later
// items that reference the same conversation.
func (e *Engine) mergeThreads(ctx context.Context, tweets []domain.Tweet, queriedHandle string) []domain.Tweet {
	var conversationIDs []string
	seen := map[string]struct{}{}
	for i := range tweets {
		if !e.isThreadCandidate(tweets[i], queriedHandle) {
			continue
		}
		id := effectiveConversationID(tweets[i])
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		conversationIDs = append(conversationIDs, id)
	}
	if len(conversationIDs) == 0 {
		return tweets
	}

	threads := fanout.Map(conversationIDs, e.poolSize(), func(id string) []domain.Tweet {
		thread, err := e.Thread(ctx, id)
		if err != nil {
			e.log.Warn("thread fetch failed, passing item through",
				"conversation_id", id, "error", err)
			return nil
		}
		return thread
	})
	resolved := make(map[string][]domain.Tweet, len(conversationIDs))
	for i, id := range conversationIDs {
		if len(threads[i]) > 0 {
			resolved[id] = threads[i]
		}
	}

	out := make([]domain.Tweet, 0, len(tweets))
	spliced := map[string]struct{}{}
	for i := range tweets {
		id := effectiveConversationID(tweets[i])
		thread, ok := resolved[id]
		if id == "" || !ok {
			out = append(out, tweets[i])
			continue
		}
		if _, done := spliced[id]; done {
			// The whole thread is already in the output; re-splicing would
			// duplicate it.
			continue
		}
		spliced[id] = struct{}{}
		out = append(out, thread...)
	}
	return out
}

// Thread fetches the tweet, resolves its conversation head and returns the
// head plus its bundled replies sorted ascending by timestamp. The source
// does not guarantee bundle order, so the sort is mandatory. A tweet
// without a conversation id is returned alone; a missing tweet or head
// yields an empty thread.
func (e *Engine) Thread(ctx context.Context, id string) ([]domain.Tweet, error) {
	tweet, err := e.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if tweet == nil {
		return []domain.Tweet{}, nil
	}
	if tweet.ConversationID == "" {
		return []domain.Tweet{*tweet}, nil
	}

	head := tweet
	if tweet.ConversationID != tweet.ID {
		head, err = e.fetch(ctx, tweet.ConversationID)
		if err != nil {
			e.log.Warn("thread head fetch failed",
				"conversation_id", tweet.ConversationID, "error", err)
			return []domain.Tweet{}, nil
		}
		if head == nil {
			return []domain.Tweet{}, nil
		}
	}

	thread := make([]domain.Tweet, 0, len(head.Replies)+1)
	headItem := *head
	headItem.Replies = nil
	thread = append(thread, headItem)
	thread = append(thread, head.Replies...)

	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].Timestamp < thread[j].Timestamp
	})
	return thread, nil
}

func (e *Engine) isThreadCandidate(t domain.Tweet, queriedHandle string) bool {
	if t.IsRetweet && t.RetweetedStatus != nil {
		return isCandidateReshare(t)
	}
	if t.ConversationID == "" {
		return false
	}
	if t.IsReply && isSelfReply(t, queriedHandle) {
		return true
	}
	return strings.Contains(t.Text, threadGlyph)
}

// isCandidateReshare reports whether the retweet's nested original marks a
// thread: it carries a conversation id and the thread glyph.
func isCandidateReshare(t domain.Tweet) bool {
	if !t.IsRetweet || t.RetweetedStatus == nil {
		return false
	}
	nested := t.RetweetedStatus
	return nested.ConversationID != "" && strings.Contains(nested.Text, threadGlyph)
}

// isSelfReply treats a missing reply-target handle as a reply to self.
func isSelfReply(t domain.Tweet, queriedHandle string) bool {
	return t.InReplyToHandle == "" || strings.EqualFold(t.InReplyToHandle, queriedHandle)
}

// effectiveConversationID returns the nested conversation id only for
// candidate reshares; a plain retweet keeps its own id so it is never
// swallowed by a thread it merely reshared from.
func effectiveConversationID(t domain.Tweet) string {
	if isCandidateReshare(t) {
		return t.RetweetedStatus.ConversationID
	}
	return t.ConversationID
}
