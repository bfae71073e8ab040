package store

import (
	"testing"

	"chatfic/pkg/domain"
)

func TestCreateStoryOrdering(t *testing.T) {
	s := NewMemoryStore(nil)
	first := s.CreateStory("First", "Original", domain.StyleBalanced, "")
	second := s.CreateStory("Second", "Original", domain.StyleDramatic, "")

	list := s.ListStories()
	if len(list) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected most recent first, got %q then %q", list[0].Title, list[1].Title)
	}
}

func TestMessageLifecycle(t *testing.T) {
	s := NewMemoryStore(nil)
	story := s.CreateStory("Echoes", "Original", domain.StyleBalanced, "")

	msg, ok := s.AppendMessage(story.ID, domain.RoleUser, "hello")
	if !ok {
		t.Fatalf("append on existing story failed")
	}
	if msg.ID == "" || msg.Timestamp == 0 {
		t.Fatalf("message missing id or timestamp: %+v", msg)
	}

	if !s.EditMessage(story.ID, msg.ID, "hello again") {
		t.Fatalf("edit on existing message failed")
	}
	got, _ := s.GetStory(story.ID)
	if got.Messages[0].Content != "hello again" {
		t.Fatalf("edit did not apply, got %q", got.Messages[0].Content)
	}
	if got.Messages[0].Role != domain.RoleUser || got.Messages[0].Timestamp != msg.Timestamp {
		t.Fatalf("edit changed role or timestamp: %+v", got.Messages[0])
	}

	if !s.DeleteMessage(story.ID, msg.ID) {
		t.Fatalf("delete on existing message failed")
	}
	got, ok = s.GetStory(story.ID)
	if !ok {
		t.Fatalf("story should survive an empty thread")
	}
	if len(got.Messages) != 0 {
		t.Fatalf("expected empty thread, got %d messages", len(got.Messages))
	}
}

func TestMutationsOnUnknownIDs(t *testing.T) {
	s := NewMemoryStore(nil)
	story := s.CreateStory("Echoes", "Original", domain.StyleBalanced, "")

	if _, ok := s.AppendMessage("missing", domain.RoleUser, "x"); ok {
		t.Fatalf("append on unknown story must report false")
	}
	if s.EditMessage(story.ID, "missing", "x") {
		t.Fatalf("edit on unknown message must report false")
	}
	if s.DeleteMessage(story.ID, "missing") {
		t.Fatalf("delete on unknown message must report false")
	}
	if s.DeleteStory("missing") {
		t.Fatalf("delete on unknown story must report false")
	}
	if s.ChangeStyle("missing", domain.StyleHorror) {
		t.Fatalf("style change on unknown story must report false")
	}
}

func TestPublishIdempotent(t *testing.T) {
	s := NewMemoryStore(nil)
	story := s.CreateStory("Echoes", "Original", domain.StyleBalanced, "ana")
	s.AppendMessage(story.ID, domain.RoleModel, "chapter one")
	published, _ := s.GetStory(story.ID)

	if !s.PublishStory(published) {
		t.Fatalf("first publish should insert")
	}
	if s.PublishStory(published) {
		t.Fatalf("second publish of same id should be a no-op")
	}

	// Later edits to the original must not reach the published copy.
	s.EditMessage(story.ID, published.Messages[0].ID, "rewritten")
	community := s.ListCommunity()
	if len(community) != 1 {
		t.Fatalf("expected 1 community story, got %d", len(community))
	}
	if community[0].Messages[0].Content != "chapter one" {
		t.Fatalf("published copy changed after edit: %q", community[0].Messages[0].Content)
	}
}

func TestImportStoryDedupe(t *testing.T) {
	s := NewMemoryStore(nil)
	story := domain.Story{ID: "shared-1", Title: "Shared", Universe: "Original"}
	if !s.ImportStory(story) {
		t.Fatalf("first import should insert")
	}
	if s.ImportStory(story) {
		t.Fatalf("second import of same id should be a no-op")
	}
	if s.ImportStory(domain.Story{}) {
		t.Fatalf("import without id should be rejected")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap, err := NewFileSnapshot(dir)
	if err != nil {
		t.Fatalf("new snapshot: %v", err)
	}

	s := NewMemoryStore(snap)
	story := s.CreateStory("Echoes", "Original", domain.StyleHumorous, "ana")
	s.AppendMessage(story.ID, domain.RoleUser, "hello")
	s.SetCurrentStoryID(story.ID)
	s.SavePreferences(domain.Preferences{Theme: domain.ThemeDark, Language: domain.LangEN})
	s.SaveProfile(domain.UserProfile{ID: "u1", Name: "Ana", Email: "ana@example.com"})

	reloaded := NewMemoryStore(snap)
	got, ok := reloaded.GetStory(story.ID)
	if !ok {
		t.Fatalf("story lost across restart")
	}
	if got.Title != "Echoes" || len(got.Messages) != 1 {
		t.Fatalf("story state lost across restart: %+v", got)
	}
	if reloaded.CurrentStoryID() != story.ID {
		t.Fatalf("selection lost across restart")
	}
	if prefs := reloaded.GetPreferences(); prefs.Theme != domain.ThemeDark || prefs.Language != domain.LangEN {
		t.Fatalf("preferences lost across restart: %+v", prefs)
	}
	if profile, ok := reloaded.GetProfile(); !ok || profile.Email != "ana@example.com" {
		t.Fatalf("profile lost across restart")
	}
}

func TestSnapshotDanglingSelectionCleared(t *testing.T) {
	dir := t.TempDir()
	snap, err := NewFileSnapshot(dir)
	if err != nil {
		t.Fatalf("new snapshot: %v", err)
	}

	s := NewMemoryStore(snap)
	story := s.CreateStory("Echoes", "Original", domain.StyleBalanced, "")
	s.SetCurrentStoryID(story.ID)
	// Simulate the stories key being written without the selection key.
	snap.Save(KeyStories, []domain.Story{})

	reloaded := NewMemoryStore(snap)
	if reloaded.CurrentStoryID() != "" {
		t.Fatalf("selection pointing at a missing story must be cleared")
	}
}

type corruptSnapshot struct{}

func (corruptSnapshot) Load(string, any) bool { return false }
func (corruptSnapshot) Save(string, any)      {}

func TestCorruptSnapshotDegradesToDefaults(t *testing.T) {
	s := NewMemoryStore(corruptSnapshot{})
	if len(s.ListStories()) != 0 {
		t.Fatalf("expected empty store on unreadable snapshot")
	}
	if prefs := s.GetPreferences(); prefs != domain.DefaultPreferences() {
		t.Fatalf("expected default preferences, got %+v", prefs)
	}
}

func TestClearProfileSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	snap, err := NewFileSnapshot(dir)
	if err != nil {
		t.Fatalf("new snapshot: %v", err)
	}
	s := NewMemoryStore(snap)
	s.SaveProfile(domain.UserProfile{ID: "u1", Name: "Ana"})
	s.ClearProfile()

	reloaded := NewMemoryStore(snap)
	if _, ok := reloaded.GetProfile(); ok {
		t.Fatalf("cleared profile came back after restart")
	}
}
