package store

import (
	"sync"
	"time"

	"chatfic/internal/util"
	"chatfic/pkg/domain"
)

// MemoryStore keeps all collections in-process, optionally synchronizing
// every mutation through a Snapshot so state survives restarts.
type MemoryStore struct {
	mu        sync.RWMutex
	stories   map[string]domain.Story
	order     []string // story IDs, most recent first
	community map[string]domain.Story
	commOrder []string
	currentID string
	prefs     domain.Preferences
	profile   *domain.UserProfile
	snap      Snapshot
}

// NewMemoryStore initializes the store, loading prior state from snap when
// provided. A nil snap yields a purely in-memory store (tests, demos).
func NewMemoryStore(snap Snapshot) *MemoryStore {
	m := &MemoryStore{
		stories:   make(map[string]domain.Story),
		community: make(map[string]domain.Story),
		prefs:     domain.DefaultPreferences(),
		snap:      snap,
	}
	if snap == nil {
		return m
	}

	var stories []domain.Story
	if snap.Load(KeyStories, &stories) {
		for _, s := range stories {
			if s.ID == "" {
				continue
			}
			m.stories[s.ID] = s
			m.order = append(m.order, s.ID)
		}
	}
	var community []domain.Story
	if snap.Load(KeyCommunity, &community) {
		for _, s := range community {
			if s.ID == "" {
				continue
			}
			m.community[s.ID] = s
			m.commOrder = append(m.commOrder, s.ID)
		}
	}
	var currentID string
	if snap.Load(KeyCurrentID, &currentID) {
		// A selection pointing at a story that no longer exists is treated
		// as no selection; the two keys are not written transactionally.
		if _, ok := m.stories[currentID]; ok {
			m.currentID = currentID
		}
	}
	var prefs domain.Preferences
	if snap.Load(KeyPreferences, &prefs) {
		m.prefs = prefs.Normalize()
	}
	var profile domain.UserProfile
	if snap.Load(KeyProfile, &profile) && profile.ID != "" {
		m.profile = &profile
	}
	return m
}

// CreateStory allocates a new story at the front of the collection. The
// store does not validate title or universe; the input layer does.
func (m *MemoryStore) CreateStory(title, universe string, style domain.StyleDirective, authorName string) domain.Story {
	story := domain.Story{
		ID:         util.NewID(),
		Title:      title,
		Universe:   universe,
		Style:      style,
		Messages:   []domain.Message{},
		UpdatedAt:  time.Now().UnixMilli(),
		AuthorName: authorName,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[story.ID] = story
	m.order = append([]string{story.ID}, m.order...)
	m.persistStories()
	return story.Clone()
}

// ListStories returns stories most recent first.
func (m *MemoryStore) ListStories() []domain.Story {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Story, 0, len(m.order))
	for _, id := range m.order {
		if s, ok := m.stories[id]; ok {
			res = append(res, s.Clone())
		}
	}
	return res
}

// GetStory retrieves a story by ID.
func (m *MemoryStore) GetStory(id string) (domain.Story, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return domain.Story{}, false
	}
	return s.Clone(), true
}

// DeleteStory removes a story entirely. Clearing a selection pointing at
// it is the caller's responsibility.
func (m *MemoryStore) DeleteStory(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[id]; !ok {
		return false
	}
	delete(m.stories, id)
	filtered := m.order[:0]
	for _, item := range m.order {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.order = filtered
	m.persistStories()
	return true
}

// ImportStory inserts a decoded shared story at the front of the
// collection unless its ID is already present.
func (m *MemoryStore) ImportStory(story domain.Story) bool {
	if story.ID == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stories[story.ID]; exists {
		return false
	}
	m.stories[story.ID] = story.Clone()
	m.order = append([]string{story.ID}, m.order...)
	m.persistStories()
	return true
}

// AppendMessage adds a message to the end of a story's thread and bumps
// its updated timestamp. No-op on an unknown story.
func (m *MemoryStore) AppendMessage(storyID string, role domain.Role, content string) (domain.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	story, ok := m.stories[storyID]
	if !ok {
		return domain.Message{}, false
	}
	msg := domain.Message{
		ID:        util.NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
	story.Messages = append(story.Messages, msg)
	story.UpdatedAt = msg.Timestamp
	m.stories[storyID] = story
	m.persistStories()
	return msg, true
}

// EditMessage replaces a message's content in place. Role and the creation
// timestamp are untouched.
func (m *MemoryStore) EditMessage(storyID, messageID, content string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	story, ok := m.stories[storyID]
	if !ok {
		return false
	}
	for i := range story.Messages {
		if story.Messages[i].ID == messageID {
			story.Messages[i].Content = content
			story.UpdatedAt = time.Now().UnixMilli()
			m.stories[storyID] = story
			m.persistStories()
			return true
		}
	}
	return false
}

// DeleteMessage removes a message from the sequence in place. Deleting the
// last message leaves the story in place with an empty thread.
func (m *MemoryStore) DeleteMessage(storyID, messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	story, ok := m.stories[storyID]
	if !ok {
		return false
	}
	for i := range story.Messages {
		if story.Messages[i].ID == messageID {
			story.Messages = append(story.Messages[:i], story.Messages[i+1:]...)
			story.UpdatedAt = time.Now().UnixMilli()
			m.stories[storyID] = story
			m.persistStories()
			return true
		}
	}
	return false
}

// ChangeStyle updates the style directive for future generations only;
// already-generated content is untouched.
func (m *MemoryStore) ChangeStyle(storyID string, style domain.StyleDirective) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	story, ok := m.stories[storyID]
	if !ok {
		return false
	}
	story.Style = style
	m.stories[storyID] = story
	m.persistStories()
	return true
}

// PublishStory copies a story into the community collection, idempotent by
// ID. Later edits to the original do not propagate to the copy.
func (m *MemoryStore) PublishStory(story domain.Story) bool {
	if story.ID == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.community[story.ID]; exists {
		return false
	}
	m.community[story.ID] = story.Clone()
	m.commOrder = append([]string{story.ID}, m.commOrder...)
	m.persistCommunity()
	return true
}

// ListCommunity returns published stories, most recently published first.
func (m *MemoryStore) ListCommunity() []domain.Story {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Story, 0, len(m.commOrder))
	for _, id := range m.commOrder {
		if s, ok := m.community[id]; ok {
			res = append(res, s.Clone())
		}
	}
	return res
}

// CurrentStoryID returns the selected story ID, or "" for no selection.
func (m *MemoryStore) CurrentStoryID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentID
}

// SetCurrentStoryID records the selection. An empty ID clears it.
func (m *MemoryStore) SetCurrentStoryID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentID = id
	if m.snap != nil {
		m.snap.Save(KeyCurrentID, m.currentID)
	}
}

// GetPreferences returns the current interface preferences.
func (m *MemoryStore) GetPreferences() domain.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs
}

// SavePreferences stores normalized preferences.
func (m *MemoryStore) SavePreferences(prefs domain.Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = prefs.Normalize()
	if m.snap != nil {
		m.snap.Save(KeyPreferences, m.prefs)
	}
}

// GetProfile returns the stored profile, if any.
func (m *MemoryStore) GetProfile() (domain.UserProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return domain.UserProfile{}, false
	}
	return *m.profile, true
}

// SaveProfile stores the local user profile.
func (m *MemoryStore) SaveProfile(profile domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = &profile
	if m.snap != nil {
		m.snap.Save(KeyProfile, profile)
	}
}

// ClearProfile removes the local user profile.
func (m *MemoryStore) ClearProfile() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = nil
	if m.snap != nil {
		m.snap.Save(KeyProfile, domain.UserProfile{})
	}
}

// persistStories re-serializes the full story collection. Caller holds mu.
func (m *MemoryStore) persistStories() {
	if m.snap == nil {
		return
	}
	out := make([]domain.Story, 0, len(m.order))
	for _, id := range m.order {
		if s, ok := m.stories[id]; ok {
			out = append(out, s)
		}
	}
	m.snap.Save(KeyStories, out)
}

// persistCommunity re-serializes the community collection. Caller holds mu.
func (m *MemoryStore) persistCommunity() {
	if m.snap == nil {
		return
	}
	out := make([]domain.Story, 0, len(m.commOrder))
	for _, id := range m.commOrder {
		if s, ok := m.community[id]; ok {
			out = append(out, s)
		}
	}
	m.snap.Save(KeyCommunity, out)
}
