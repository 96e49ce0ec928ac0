package domain

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrTweetNotFound   = errors.New("tweet not found")

	// ErrNoAccountAvailable means the pool has no account to even attempt
	// with, before any retry loop runs.
	ErrNoAccountAvailable = errors.New("no account available")

	// ErrPoolExhausted means every eligible account was tried and failed.
	ErrPoolExhausted = errors.New("account pool exhausted")
)
