package domain

import "encoding/json"

// Tweet is the partial view the reconciliation pipeline reads and writes.
// Fields the pipeline never touches stay opaque inside Raw and travel with
// the tweet untouched.
type Tweet struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	HTML            string `json:"html"`
	IsRetweet       bool   `json:"isRetweet"`
	RetweetedStatus *Tweet `json:"retweetedStatus,omitempty"`
	ConversationID  string `json:"conversationId,omitempty"`
	IsReply         bool   `json:"isReply"`
	Timestamp       int64  `json:"timestamp,omitempty"`
	InReplyToHandle string `json:"inReplyToHandle,omitempty"`
	Username        string `json:"username,omitempty"`

	// Replies is the unordered bundle of subsequent thread items the source
	// attaches to a conversation head.
	Replies []Tweet `json:"replies,omitempty"`

	Raw json.RawMessage `json:"raw,omitempty"`
}

// Profile is the minimal author record exposed outward.
type Profile struct {
	Username       string          `json:"username"`
	DisplayName    string          `json:"displayName"`
	Biography      string          `json:"biography,omitempty"`
	FollowersCount int             `json:"followersCount"`
	FollowingCount int             `json:"followingCount"`
	TweetsCount    int             `json:"tweetsCount"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}
