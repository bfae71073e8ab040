package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chatfic/internal/util"
	"chatfic/pkg/domain"
)

const appStateRowID = 1

// GormStore implements Store using GORM + Postgres. It carries the same
// no-op-on-unknown-ID semantics as MemoryStore: database faults are logged
// and reported as a false/no-op result, never as a caller-visible error.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&StoryModel{}, &CommunityStoryModel{}, &AppStateModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateStory inserts a new story at the front of the collection.
func (g *GormStore) CreateStory(title, universe string, style domain.StyleDirective, authorName string) domain.Story {
	story := domain.Story{
		ID:         util.NewID(),
		Title:      title,
		Universe:   universe,
		Style:      style,
		Messages:   []domain.Message{},
		UpdatedAt:  time.Now().UnixMilli(),
		AuthorName: authorName,
	}
	if err := g.db.Create(storyToModel(story)).Error; err != nil {
		slog.Error("create story", "err", err)
	}
	return story
}

// ListStories returns stories most recent first.
func (g *GormStore) ListStories() []domain.Story {
	var models []StoryModel
	if err := g.db.Order("position asc").Find(&models).Error; err != nil {
		slog.Error("list stories", "err", err)
		return nil
	}
	res := make([]domain.Story, 0, len(models))
	for _, m := range models {
		res = append(res, modelToStory(m))
	}
	return res
}

// GetStory retrieves a story by ID.
func (g *GormStore) GetStory(id string) (domain.Story, bool) {
	var m StoryModel
	err := g.db.First(&m, "id = ?", id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("get story", "id", id, "err", err)
		}
		return domain.Story{}, false
	}
	return modelToStory(m), true
}

// DeleteStory removes a story entirely.
func (g *GormStore) DeleteStory(id string) bool {
	res := g.db.Delete(&StoryModel{}, "id = ?", id)
	if res.Error != nil {
		slog.Error("delete story", "id", id, "err", res.Error)
		return false
	}
	return res.RowsAffected > 0
}

// ImportStory inserts a shared story unless its ID already exists.
func (g *GormStore) ImportStory(story domain.Story) bool {
	if story.ID == "" {
		return false
	}
	if _, exists := g.GetStory(story.ID); exists {
		return false
	}
	if err := g.db.Create(storyToModel(story)).Error; err != nil {
		slog.Error("import story", "id", story.ID, "err", err)
		return false
	}
	return true
}

// AppendMessage adds a message to the end of a story's thread.
func (g *GormStore) AppendMessage(storyID string, role domain.Role, content string) (domain.Message, bool) {
	msg := domain.Message{
		ID:        util.NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
	ok := g.mutateMessages(storyID, func(msgs []domain.Message) ([]domain.Message, bool) {
		return append(msgs, msg), true
	})
	return msg, ok
}

// EditMessage replaces a message's content in place.
func (g *GormStore) EditMessage(storyID, messageID, content string) bool {
	return g.mutateMessages(storyID, func(msgs []domain.Message) ([]domain.Message, bool) {
		for i := range msgs {
			if msgs[i].ID == messageID {
				msgs[i].Content = content
				return msgs, true
			}
		}
		return msgs, false
	})
}

// DeleteMessage removes a message from the sequence in place.
func (g *GormStore) DeleteMessage(storyID, messageID string) bool {
	return g.mutateMessages(storyID, func(msgs []domain.Message) ([]domain.Message, bool) {
		for i := range msgs {
			if msgs[i].ID == messageID {
				return append(msgs[:i], msgs[i+1:]...), true
			}
		}
		return msgs, false
	})
}

// ChangeStyle updates the style directive.
func (g *GormStore) ChangeStyle(storyID string, style domain.StyleDirective) bool {
	res := g.db.Model(&StoryModel{}).Where("id = ?", storyID).Update("style", string(style))
	if res.Error != nil {
		slog.Error("change style", "id", storyID, "err", res.Error)
		return false
	}
	return res.RowsAffected > 0
}

// PublishStory copies a story into the community table, idempotent by ID.
func (g *GormStore) PublishStory(story domain.Story) bool {
	if story.ID == "" {
		return false
	}
	var count int64
	if err := g.db.Model(&CommunityStoryModel{}).Where("id = ?", story.ID).Count(&count).Error; err != nil {
		slog.Error("publish story", "id", story.ID, "err", err)
		return false
	}
	if count > 0 {
		return false
	}
	m := storyToModel(story)
	community := CommunityStoryModel(*m)
	if err := g.db.Create(&community).Error; err != nil {
		slog.Error("publish story", "id", story.ID, "err", err)
		return false
	}
	return true
}

// ListCommunity returns published stories, most recently published first.
func (g *GormStore) ListCommunity() []domain.Story {
	var models []CommunityStoryModel
	if err := g.db.Order("position asc").Find(&models).Error; err != nil {
		slog.Error("list community", "err", err)
		return nil
	}
	res := make([]domain.Story, 0, len(models))
	for _, m := range models {
		res = append(res, modelToStory(StoryModel(m)))
	}
	return res
}

// CurrentStoryID returns the selection; a dangling ID resolves to "".
func (g *GormStore) CurrentStoryID() string {
	state := g.loadState()
	if state.CurrentStoryID == "" {
		return ""
	}
	if _, ok := g.GetStory(state.CurrentStoryID); !ok {
		return ""
	}
	return state.CurrentStoryID
}

// SetCurrentStoryID records the selection.
func (g *GormStore) SetCurrentStoryID(id string) {
	g.updateState(func(state *AppStateModel) {
		state.CurrentStoryID = id
	})
}

// GetPreferences returns stored preferences, normalized.
func (g *GormStore) GetPreferences() domain.Preferences {
	state := g.loadState()
	return domain.Preferences{
		Theme:      domain.Theme(state.Theme),
		Language:   domain.Language(state.Language),
		FontFamily: domain.FontFamily(state.FontFamily),
		FontSize:   domain.FontSize(state.FontSize),
	}.Normalize()
}

// SavePreferences stores normalized preferences.
func (g *GormStore) SavePreferences(prefs domain.Preferences) {
	prefs = prefs.Normalize()
	g.updateState(func(state *AppStateModel) {
		state.Theme = string(prefs.Theme)
		state.Language = string(prefs.Language)
		state.FontFamily = string(prefs.FontFamily)
		state.FontSize = string(prefs.FontSize)
	})
}

// GetProfile returns the stored profile, if any.
func (g *GormStore) GetProfile() (domain.UserProfile, bool) {
	state := g.loadState()
	if state.ProfileID == "" {
		return domain.UserProfile{}, false
	}
	return domain.UserProfile{
		ID:           state.ProfileID,
		Name:         state.ProfileName,
		Email:        state.ProfileEmail,
		PasswordHash: state.PasswordHash,
	}, true
}

// SaveProfile stores the local user profile.
func (g *GormStore) SaveProfile(profile domain.UserProfile) {
	g.updateState(func(state *AppStateModel) {
		state.ProfileID = profile.ID
		state.ProfileName = profile.Name
		state.ProfileEmail = profile.Email
		state.PasswordHash = profile.PasswordHash
	})
}

// ClearProfile removes the local user profile.
func (g *GormStore) ClearProfile() {
	g.updateState(func(state *AppStateModel) {
		state.ProfileID = ""
		state.ProfileName = ""
		state.ProfileEmail = ""
		state.PasswordHash = ""
	})
}

// mutateMessages loads, transforms, and writes back a story's thread.
func (g *GormStore) mutateMessages(storyID string, fn func([]domain.Message) ([]domain.Message, bool)) bool {
	var m StoryModel
	if err := g.db.First(&m, "id = ?", storyID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("load story messages", "id", storyID, "err", err)
		}
		return false
	}
	msgs := decodeMessages(m.Messages)
	msgs, changed := fn(msgs)
	if !changed {
		return false
	}
	encoded, err := json.Marshal(msgs)
	if err != nil {
		slog.Error("encode story messages", "id", storyID, "err", err)
		return false
	}
	updates := map[string]any{
		"messages":   datatypes.JSON(encoded),
		"updated_at": time.Now().UnixMilli(),
	}
	if err := g.db.Model(&StoryModel{}).Where("id = ?", storyID).Updates(updates).Error; err != nil {
		slog.Error("save story messages", "id", storyID, "err", err)
		return false
	}
	return true
}

func (g *GormStore) loadState() AppStateModel {
	state := AppStateModel{ID: appStateRowID}
	err := g.db.First(&state, "id = ?", appStateRowID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("load app state", "err", err)
	}
	return state
}

func (g *GormStore) updateState(fn func(*AppStateModel)) {
	state := g.loadState()
	prefs := domain.Preferences{
		Theme:      domain.Theme(state.Theme),
		Language:   domain.Language(state.Language),
		FontFamily: domain.FontFamily(state.FontFamily),
		FontSize:   domain.FontSize(state.FontSize),
	}.Normalize()
	state.Theme = string(prefs.Theme)
	state.Language = string(prefs.Language)
	state.FontFamily = string(prefs.FontFamily)
	state.FontSize = string(prefs.FontSize)
	fn(&state)
	state.ID = appStateRowID
	if err := g.db.Save(&state).Error; err != nil {
		slog.Error("save app state", "err", err)
	}
}

func storyToModel(s domain.Story) *StoryModel {
	encoded, err := json.Marshal(s.Messages)
	if err != nil {
		encoded = []byte("[]")
	}
	return &StoryModel{
		ID:         s.ID,
		Title:      s.Title,
		Universe:   s.Universe,
		Style:      string(s.Style),
		Messages:   datatypes.JSON(encoded),
		AuthorName: s.AuthorName,
		UpdatedAt:  s.UpdatedAt,
		Position:   -time.Now().UnixNano(),
	}
}

func modelToStory(m StoryModel) domain.Story {
	return domain.Story{
		ID:         m.ID,
		Title:      m.Title,
		Universe:   m.Universe,
		Style:      domain.StyleDirective(m.Style),
		Messages:   decodeMessages(m.Messages),
		UpdatedAt:  m.UpdatedAt,
		AuthorName: m.AuthorName,
	}
}

func decodeMessages(raw datatypes.JSON) []domain.Message {
	if len(raw) == 0 {
		return []domain.Message{}
	}
	var msgs []domain.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		slog.Warn("corrupt message thread, starting empty", "err", err)
		return []domain.Message{}
	}
	return msgs
}
