package app

import "errors"

var (
	// ErrStoryNotFound indicates an ID that resolves to no story.
	ErrStoryNotFound = errors.New("story not found")
	// ErrMessageNotFound indicates an unresolved message ID within a story.
	ErrMessageNotFound = errors.New("message not found")
	// ErrEmptyContent indicates blank input blocked before the store.
	ErrEmptyContent = errors.New("content required")
	// ErrSetupRequired indicates a first send without title and universe.
	ErrSetupRequired = errors.New("title and universe required")
	// ErrInvalidStyle indicates a style outside the fixed set.
	ErrInvalidStyle = errors.New("unknown style")
	// ErrGenerationInFlight indicates a second send while a generation for
	// the same story is still outstanding.
	ErrGenerationInFlight = errors.New("generation already in progress")
	// ErrProfileNotFound indicates no stored local profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrBadCredentials indicates a failed login attempt.
	ErrBadCredentials = errors.New("invalid email or password")
	// ErrNoArchive indicates object storage is not configured.
	ErrNoArchive = errors.New("export archive not configured")
)
