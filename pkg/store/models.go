package store

import "gorm.io/datatypes"

// GORM models used for Postgres persistence. Messages stay a single JSONB
// document per story: the thread is always read and written as a whole,
// matching the snapshot semantics of the memory store.

type StoryModel struct {
	ID         string `gorm:"primaryKey"`
	Title      string `gorm:"not null"`
	Universe   string `gorm:"not null"`
	Style      string `gorm:"not null"`
	Messages   datatypes.JSON
	AuthorName string
	UpdatedAt  int64 `gorm:"not null;index"`
	Position   int64 `gorm:"not null;index"` // front-insertion order, lower is newer
}

type CommunityStoryModel struct {
	ID         string `gorm:"primaryKey"`
	Title      string `gorm:"not null"`
	Universe   string `gorm:"not null"`
	Style      string `gorm:"not null"`
	Messages   datatypes.JSON
	AuthorName string
	UpdatedAt  int64 `gorm:"not null"`
	Position   int64 `gorm:"not null;index"`
}

// AppStateModel is a single-row table (ID=1) holding the selection,
// preferences, and the optional local profile.
type AppStateModel struct {
	ID             uint   `gorm:"primaryKey"`
	CurrentStoryID string `gorm:""`
	Theme          string `gorm:"not null"`
	Language       string `gorm:"not null"`
	FontFamily     string `gorm:"not null"`
	FontSize       string `gorm:"not null"`
	ProfileID      string
	ProfileName    string
	ProfileEmail   string
	PasswordHash   string
}
