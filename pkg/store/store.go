package store

import "chatfic/pkg/domain"

// Store defines persistence operations for stories, the community
// collection, the current selection, preferences, and the local profile.
//
// Mutations on unknown IDs are deliberate no-ops reporting false: the
// client may hold stale IDs after deletes, and a stale mutation must not
// be an error. All operations are synchronous.
type Store interface {
	// stories
	CreateStory(title, universe string, style domain.StyleDirective, authorName string) domain.Story
	ListStories() []domain.Story
	GetStory(id string) (domain.Story, bool)
	DeleteStory(id string) bool
	ImportStory(story domain.Story) bool

	// messages
	AppendMessage(storyID string, role domain.Role, content string) (domain.Message, bool)
	EditMessage(storyID, messageID, content string) bool
	DeleteMessage(storyID, messageID string) bool
	ChangeStyle(storyID string, style domain.StyleDirective) bool

	// community
	PublishStory(story domain.Story) bool
	ListCommunity() []domain.Story

	// selection
	CurrentStoryID() string
	SetCurrentStoryID(id string)

	// preferences
	GetPreferences() domain.Preferences
	SavePreferences(prefs domain.Preferences)

	// profile
	GetProfile() (domain.UserProfile, bool)
	SaveProfile(profile domain.UserProfile)
	ClearProfile()
}
