package ai

import (
	"context"
	"errors"

	"chatfic/pkg/domain"
)

// ChapterGenerator produces the next chapter for a story thread.
// All providers (Gemini, OpenAI-compatible) implement this interface.
// The style and universe are carried as a side-channel system instruction,
// never as a message in the history.
type ChapterGenerator interface {
	GenerateChapter(ctx context.Context, history []domain.Message, style domain.StyleDirective, universe string) (string, error)
}

// Failure categories. Callers map these to fixed user-facing messages;
// the categories carry no other behavior and no retry is attempted.
var (
	// ErrMissingCredential indicates an absent or rejected API key.
	ErrMissingCredential = errors.New("ai: missing or invalid credential")
	// ErrRateLimited indicates the provider rejected the request for quota.
	ErrRateLimited = errors.New("ai: rate limited")
)

// categorize folds an HTTP status into the failure taxonomy. Statuses
// outside the known buckets stay as generic connectivity errors.
func categorize(status int) error {
	switch status {
	case 401, 403:
		return ErrMissingCredential
	case 429:
		return ErrRateLimited
	default:
		return nil
	}
}
