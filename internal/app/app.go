// Package app holds the application core: the story workflows, the
// generation request lifecycle, and the local profile.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chatfic/internal/util"
	"chatfic/pkg/ai"
	"chatfic/pkg/auth"
	"chatfic/pkg/domain"
	"chatfic/pkg/export"
	"chatfic/pkg/i18n"
	"chatfic/pkg/prompt"
	"chatfic/pkg/share"
	"chatfic/pkg/storage"
	"chatfic/pkg/store"
)

// Config wires the application dependencies.
type Config struct {
	Store         store.Store
	Generator     ai.ChapterGenerator
	SessionSecret string
	SessionTTL    time.Duration
	Archive       *storage.ExportArchive
}

// App is the application service. All story mutations go through it; the
// store is never reached around it.
type App struct {
	store     store.Store
	generator ai.ChapterGenerator
	sessions  *SessionSigner
	archive   *storage.ExportArchive

	// Generation bookkeeping. pending blocks a second send for a story
	// while one is outstanding; tokens matches a finished generation
	// against the request that is still current for its story, so a late
	// response after the story was deleted is discarded instead of being
	// applied to stale state.
	genMu   sync.Mutex
	genSeq  uint64
	pending map[string]struct{}
	tokens  map[string]uint64
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator required")
	}
	return &App{
		store:     cfg.Store,
		generator: cfg.Generator,
		sessions:  NewSessionSigner(cfg.SessionSecret, cfg.SessionTTL),
		archive:   cfg.Archive,
		pending:   make(map[string]struct{}),
		tokens:    make(map[string]uint64),
	}, nil
}

// StorySetup carries the provisional draft fields supplied with the first
// message of a new thread.
type StorySetup struct {
	Title    string                `json:"title"`
	Universe string                `json:"universe"`
	Style    domain.StyleDirective `json:"style"`
}

// SendRequest is one user turn. StoryID empty means "first send": Setup
// must be present and a story is created before the message is appended.
type SendRequest struct {
	StoryID string      `json:"storyId"`
	Content string      `json:"content"`
	Setup   *StorySetup `json:"setup,omitempty"`
}

// SendMessage runs the full send/generate lifecycle and returns the story
// after the model turn was appended. The user message is appended and
// persisted strictly before the generation request goes out, so a crash
// mid-generation loses only the pending response.
func (a *App) SendMessage(ctx context.Context, req SendRequest) (domain.Story, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.Story{}, ErrEmptyContent
	}

	storyID := req.StoryID
	if storyID == "" {
		if req.Setup == nil {
			return domain.Story{}, ErrSetupRequired
		}
		created, err := a.createFromSetup(*req.Setup)
		if err != nil {
			return domain.Story{}, err
		}
		storyID = created.ID
		a.store.SetCurrentStoryID(storyID)
	}

	story, ok := a.store.GetStory(storyID)
	if !ok {
		return domain.Story{}, ErrStoryNotFound
	}

	token, err := a.beginGeneration(storyID)
	if err != nil {
		return domain.Story{}, err
	}
	defer a.endGeneration(storyID)

	userMsg, ok := a.store.AppendMessage(storyID, domain.RoleUser, content)
	if !ok {
		return domain.Story{}, ErrStoryNotFound
	}
	history := append(story.Messages, userMsg)

	reply := a.generate(ctx, history, story.Style, story.Universe)

	// Apply by story ID regardless of the current selection. If the story
	// was deleted while the request was outstanding the token no longer
	// matches and the response is dropped.
	if !a.tokenCurrent(storyID, token) {
		return domain.Story{}, ErrStoryNotFound
	}
	if _, ok := a.store.AppendMessage(storyID, domain.RoleModel, reply); !ok {
		return domain.Story{}, ErrStoryNotFound
	}
	updated, ok := a.store.GetStory(storyID)
	if !ok {
		return domain.Story{}, ErrStoryNotFound
	}
	return updated, nil
}

// RegenerateMessage re-sends the user request that preceded the given
// model message, wrapped in the rewrite directive.
func (a *App) RegenerateMessage(ctx context.Context, storyID, messageID string) (domain.Story, error) {
	story, ok := a.store.GetStory(storyID)
	if !ok {
		return domain.Story{}, ErrStoryNotFound
	}
	index := -1
	for i := range story.Messages {
		if story.Messages[i].ID == messageID {
			index = i
			break
		}
	}
	if index < 0 {
		return domain.Story{}, ErrMessageNotFound
	}
	var lastUser *domain.Message
	for i := index - 1; i >= 0; i-- {
		if story.Messages[i].Role == domain.RoleUser {
			lastUser = &story.Messages[i]
			break
		}
	}
	if lastUser == nil {
		return domain.Story{}, ErrMessageNotFound
	}
	return a.SendMessage(ctx, SendRequest{
		StoryID: storyID,
		Content: prompt.RewriteCommand(lastUser.Content),
	})
}

// generate invokes the generator and folds every failure into the fixed
// in-thread message for the active language. It never returns an error:
// the worst case is a visible error string instead of prose.
func (a *App) generate(ctx context.Context, history []domain.Message, style domain.StyleDirective, universe string) string {
	lang := a.store.GetPreferences().Language
	text, err := a.generator.GenerateChapter(ctx, history, style, universe)
	switch {
	case errors.Is(err, ai.ErrMissingCredential):
		return i18n.MissingCredential(lang)
	case errors.Is(err, ai.ErrRateLimited):
		return i18n.RateLimited(lang)
	case err != nil:
		util.LoggerFromContext(ctx).Error("generation failed", "err", err)
		return i18n.GenerationFailed(lang)
	}
	if strings.TrimSpace(text) == "" {
		return i18n.EmptyGeneration(lang)
	}
	return text
}

func (a *App) createFromSetup(setup StorySetup) (domain.Story, error) {
	title := strings.TrimSpace(setup.Title)
	universe := strings.TrimSpace(setup.Universe)
	if title == "" || universe == "" {
		return domain.Story{}, ErrSetupRequired
	}
	style := setup.Style
	if style == "" {
		style = domain.DefaultStyle
	}
	if !domain.ValidStyle(style) {
		return domain.Story{}, ErrInvalidStyle
	}
	var authorName string
	if profile, ok := a.store.GetProfile(); ok {
		authorName = profile.Name
	}
	return a.store.CreateStory(title, universe, style, authorName), nil
}

func (a *App) beginGeneration(storyID string) (uint64, error) {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	if _, busy := a.pending[storyID]; busy {
		return 0, ErrGenerationInFlight
	}
	a.genSeq++
	a.pending[storyID] = struct{}{}
	a.tokens[storyID] = a.genSeq
	return a.genSeq, nil
}

func (a *App) endGeneration(storyID string) {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	delete(a.pending, storyID)
}

func (a *App) tokenCurrent(storyID string, token uint64) bool {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	current, ok := a.tokens[storyID]
	return ok && current == token
}

// ListStories returns the user's stories, most recent first.
func (a *App) ListStories() []domain.Story { return a.store.ListStories() }

// GetStory retrieves one story.
func (a *App) GetStory(id string) (domain.Story, error) {
	story, ok := a.store.GetStory(id)
	if !ok {
		return domain.Story{}, ErrStoryNotFound
	}
	return story, nil
}

// SelectStory records the currently open story.
func (a *App) SelectStory(id string) error {
	if _, ok := a.store.GetStory(id); !ok {
		return ErrStoryNotFound
	}
	a.store.SetCurrentStoryID(id)
	return nil
}

// CurrentStoryID returns the open story's ID, or "" for none.
func (a *App) CurrentStoryID() string { return a.store.CurrentStoryID() }

// EditMessage replaces a message's content in place.
func (a *App) EditMessage(storyID, messageID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if _, ok := a.store.GetStory(storyID); !ok {
		return ErrStoryNotFound
	}
	if !a.store.EditMessage(storyID, messageID, content) {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteMessage removes a message. The story survives an empty thread.
func (a *App) DeleteMessage(storyID, messageID string) error {
	if _, ok := a.store.GetStory(storyID); !ok {
		return ErrStoryNotFound
	}
	if !a.store.DeleteMessage(storyID, messageID) {
		return ErrMessageNotFound
	}
	return nil
}

// ChangeStyle updates the style for future generations only.
func (a *App) ChangeStyle(storyID string, style domain.StyleDirective) error {
	if !domain.ValidStyle(style) {
		return ErrInvalidStyle
	}
	if !a.store.ChangeStyle(storyID, style) {
		return ErrStoryNotFound
	}
	return nil
}

// DeleteStory removes a story and clears a selection pointing at it. A
// generation still in flight for it will find its token gone and drop the
// response.
func (a *App) DeleteStory(id string) error {
	if !a.store.DeleteStory(id) {
		return ErrStoryNotFound
	}
	if a.store.CurrentStoryID() == id {
		a.store.SetCurrentStoryID("")
	}
	a.genMu.Lock()
	delete(a.tokens, id)
	a.genMu.Unlock()
	return nil
}

// Publish copies a story into the community collection. The returned flag
// is false when the ID was already published; publishing is idempotent.
func (a *App) Publish(storyID string) (bool, error) {
	story, ok := a.store.GetStory(storyID)
	if !ok {
		return false, ErrStoryNotFound
	}
	return a.store.PublishStory(story), nil
}

// ListCommunity returns the published stories.
func (a *App) ListCommunity() []domain.Story { return a.store.ListCommunity() }

// ShareToken encodes a story for a shareable link.
func (a *App) ShareToken(storyID string) (string, error) {
	story, ok := a.store.GetStory(storyID)
	if !ok {
		return "", ErrStoryNotFound
	}
	return share.Encode(story)
}

// ImportShared decodes a token and inserts the story unless its ID already
// exists; the existing story wins and the token contents are ignored. The
// returned flag reports whether an insert happened. Importing never moves
// the user's own current selection: the shared story is a read overlay
// until explicitly selected.
func (a *App) ImportShared(token string) (domain.Story, bool, error) {
	decoded, err := share.Decode(token)
	if err != nil {
		return domain.Story{}, false, err
	}
	if existing, ok := a.store.GetStory(decoded.ID); ok {
		return existing, false, nil
	}
	a.store.ImportStory(decoded)
	return decoded, true, nil
}

// ExportDocument renders a single export format for direct download.
func (a *App) ExportDocument(storyID string, format export.Format) (body, filename, contentType string, err error) {
	story, ok := a.store.GetStory(storyID)
	if !ok {
		return "", "", "", ErrStoryNotFound
	}
	if !export.ValidFormat(format) {
		return "", "", "", fmt.Errorf("unknown export format: %s", format)
	}
	body, err = export.Render(story, format)
	if err != nil {
		return "", "", "", err
	}
	return body, export.Filename(story, format), export.ContentType(format), nil
}

// ArchiveExports uploads every format to object storage and returns
// presigned download URLs. Requires configured object storage.
func (a *App) ArchiveExports(ctx context.Context, storyID string) (map[export.Format]string, error) {
	if a.archive == nil {
		return nil, ErrNoArchive
	}
	story, ok := a.store.GetStory(storyID)
	if !ok {
		return nil, ErrStoryNotFound
	}
	return a.archive.Archive(ctx, story)
}

// GetPreferences returns the interface preferences.
func (a *App) GetPreferences() domain.Preferences { return a.store.GetPreferences() }

// SavePreferences stores preferences, applying enum normalization.
func (a *App) SavePreferences(prefs domain.Preferences) domain.Preferences {
	a.store.SavePreferences(prefs)
	return a.store.GetPreferences()
}

// Signup creates (or replaces) the local profile and opens a session.
func (a *App) Signup(name, email, password string) (domain.UserProfile, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return domain.UserProfile{}, "", ErrEmptyContent
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.UserProfile{}, "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("hash password: %w", err)
	}
	profile := domain.UserProfile{
		ID:           util.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	a.store.SaveProfile(profile)
	token, err := a.sessions.Issue(profile.ID)
	if err != nil {
		return domain.UserProfile{}, "", err
	}
	return profile, token, nil
}

// Login checks the stored profile's credentials and opens a session.
func (a *App) Login(email, password string) (domain.UserProfile, string, error) {
	profile, ok := a.store.GetProfile()
	if !ok {
		return domain.UserProfile{}, "", ErrProfileNotFound
	}
	if !strings.EqualFold(profile.Email, strings.TrimSpace(email)) || !auth.CheckPassword(password, profile.PasswordHash) {
		return domain.UserProfile{}, "", ErrBadCredentials
	}
	token, err := a.sessions.Issue(profile.ID)
	if err != nil {
		return domain.UserProfile{}, "", err
	}
	return profile, token, nil
}

// Logout clears the stored profile. Attribution on existing stories is
// unchanged; only future stories lose the author name.
func (a *App) Logout() { a.store.ClearProfile() }

// Profile returns the stored profile, if any.
func (a *App) Profile() (domain.UserProfile, error) {
	profile, ok := a.store.GetProfile()
	if !ok {
		return domain.UserProfile{}, ErrProfileNotFound
	}
	return profile, nil
}

// VerifySession returns the profile ID for a valid session token.
func (a *App) VerifySession(token string) (string, error) {
	return a.sessions.Verify(token)
}
