package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chatfic/pkg/ai"
	"chatfic/pkg/domain"
	"chatfic/pkg/i18n"
	"chatfic/pkg/share"
	"chatfic/pkg/store"
)

// fakeGenerator returns a scripted reply, optionally blocking until
// released so in-flight behavior can be observed.
type fakeGenerator struct {
	reply   string
	err     error
	block   chan struct{}
	prompts []string
}

func (f *fakeGenerator) GenerateChapter(_ context.Context, history []domain.Message, _ domain.StyleDirective, _ string) (string, error) {
	if len(history) > 0 {
		f.prompts = append(f.prompts, history[len(history)-1].Content)
	}
	if f.block != nil {
		<-f.block
	}
	return f.reply, f.err
}

func waitPending(t *testing.T, a *App, storyID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		a.genMu.Lock()
		_, busy := a.pending[storyID]
		a.genMu.Unlock()
		if busy {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("send never started generating")
}

func newTestApp(t *testing.T, gen *fakeGenerator) *App {
	t.Helper()
	a, err := New(Config{
		Store:     store.NewMemoryStore(nil),
		Generator: gen,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestSendMessageFirstSendCreatesStory(t *testing.T) {
	gen := &fakeGenerator{reply: "The road curved into fog."}
	a := newTestApp(t, gen)

	story, err := a.SendMessage(context.Background(), SendRequest{
		Content: "a lone traveler",
		Setup:   &StorySetup{Title: "Echoes", Universe: "Original", Style: domain.StyleBalanced},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if story.Title != "Echoes" || story.Universe != "Original" {
		t.Fatalf("setup fields lost: %+v", story)
	}
	if len(story.Messages) != 2 {
		t.Fatalf("expected user and model turns, got %d messages", len(story.Messages))
	}
	if story.Messages[0].Role != domain.RoleUser || story.Messages[1].Role != domain.RoleModel {
		t.Fatalf("unexpected roles: %+v", story.Messages)
	}
	if story.Messages[1].Content != gen.reply {
		t.Fatalf("model reply lost: %q", story.Messages[1].Content)
	}
	if a.CurrentStoryID() != story.ID {
		t.Fatalf("first send must select the new story")
	}
}

func TestSendMessageValidation(t *testing.T) {
	a := newTestApp(t, &fakeGenerator{reply: "x"})

	if _, err := a.SendMessage(context.Background(), SendRequest{Content: "   "}); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := a.SendMessage(context.Background(), SendRequest{Content: "hi"}); !errors.Is(err, ErrSetupRequired) {
		t.Fatalf("expected ErrSetupRequired without story or setup, got %v", err)
	}
	if _, err := a.SendMessage(context.Background(), SendRequest{StoryID: "missing", Content: "hi"}); !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("expected ErrStoryNotFound, got %v", err)
	}
}

func TestGenerationFailuresBecomeInThreadMessages(t *testing.T) {
	cases := []struct {
		name string
		gen  *fakeGenerator
		want string
	}{
		{"empty reply", &fakeGenerator{reply: "   "}, i18n.EmptyGeneration(domain.LangPT)},
		{"missing credential", &fakeGenerator{err: ai.ErrMissingCredential}, i18n.MissingCredential(domain.LangPT)},
		{"rate limited", &fakeGenerator{err: ai.ErrRateLimited}, i18n.RateLimited(domain.LangPT)},
		{"provider failure", &fakeGenerator{err: errors.New("boom")}, i18n.GenerationFailed(domain.LangPT)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t, tc.gen)
			story, err := a.SendMessage(context.Background(), SendRequest{
				Content: "hello",
				Setup:   &StorySetup{Title: "Echoes", Universe: "Original"},
			})
			if err != nil {
				t.Fatalf("send must not fail on generation errors: %v", err)
			}
			last := story.Messages[len(story.Messages)-1]
			if last.Role != domain.RoleModel || last.Content != tc.want {
				t.Fatalf("expected in-thread notice %q, got %+v", tc.want, last)
			}
		})
	}
}

func TestConcurrentSendSameStoryRejected(t *testing.T) {
	gen := &fakeGenerator{reply: "done"}
	a := newTestApp(t, gen)
	story, err := a.SendMessage(context.Background(), SendRequest{
		Content: "seed",
		Setup:   &StorySetup{Title: "Echoes", Universe: "Original"},
	})
	if err != nil {
		t.Fatalf("seed send: %v", err)
	}

	gen.block = make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		_, err := a.SendMessage(context.Background(), SendRequest{StoryID: story.ID, Content: "slow"})
		firstDone <- err
	}()

	// Wait for the first send to reach the generator.
	waitPending(t, a, story.ID)

	if _, err := a.SendMessage(context.Background(), SendRequest{StoryID: story.ID, Content: "fast"}); !errors.Is(err, ErrGenerationInFlight) {
		t.Fatalf("expected ErrGenerationInFlight, got %v", err)
	}

	close(gen.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
}

func TestLateResponseAfterDeleteDropped(t *testing.T) {
	gen := &fakeGenerator{reply: "late chapter", block: make(chan struct{})}
	a := newTestApp(t, gen)
	seeded := &fakeGenerator{reply: "ok"}
	a.generator = seeded
	story, err := a.SendMessage(context.Background(), SendRequest{
		Content: "seed",
		Setup:   &StorySetup{Title: "Echoes", Universe: "Original"},
	})
	if err != nil {
		t.Fatalf("seed send: %v", err)
	}
	a.generator = gen

	done := make(chan error, 1)
	go func() {
		_, err := a.SendMessage(context.Background(), SendRequest{StoryID: story.ID, Content: "doomed"})
		done <- err
	}()
	waitPending(t, a, story.ID)

	if err := a.DeleteStory(story.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if a.CurrentStoryID() != "" {
		t.Fatalf("deleting the selected story must clear the selection")
	}

	close(gen.block)
	if err := <-done; !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("late response must be dropped, got %v", err)
	}
	if _, err := a.GetStory(story.ID); !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("deleted story resurrected")
	}
}

func TestRegenerateWrapsPrecedingPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "first draft"}
	a := newTestApp(t, gen)
	story, err := a.SendMessage(context.Background(), SendRequest{
		Content: "a lone traveler",
		Setup:   &StorySetup{Title: "Echoes", Universe: "Original"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	modelMsg := story.Messages[1]

	gen.reply = "second draft"
	updated, err := a.RegenerateMessage(context.Background(), story.ID, modelMsg.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	lastPrompt := gen.prompts[len(gen.prompts)-1]
	if !strings.Contains(lastPrompt, "[COMANDO DE REESCRITA]") || !strings.Contains(lastPrompt, "a lone traveler") {
		t.Fatalf("regenerate prompt missing rewrite directive: %q", lastPrompt)
	}
	last := updated.Messages[len(updated.Messages)-1]
	if last.Content != "second draft" {
		t.Fatalf("regenerated reply not appended: %+v", last)
	}

	if _, err := a.RegenerateMessage(context.Background(), story.ID, "missing"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestShareRoundTripAndImportDedupe(t *testing.T) {
	a := newTestApp(t, &fakeGenerator{reply: "chapter"})
	story, err := a.SendMessage(context.Background(), SendRequest{
		Content: "seed",
		Setup:   &StorySetup{Title: "Echoes", Universe: "Original"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	token, err := a.ShareToken(story.ID)
	if err != nil {
		t.Fatalf("share token: %v", err)
	}

	// Importing a token for an existing ID returns the local story untouched.
	got, imported, err := a.ImportShared(token)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported {
		t.Fatalf("import of an existing id must not insert")
	}
	if got.ID != story.ID {
		t.Fatalf("import returned wrong story: %+v", got)
	}

	// A foreign story inserts without touching the selection.
	foreign, err := share.Encode(domain.Story{ID: "foreign-1", Title: "Elsewhere", Universe: "Original"})
	if err != nil {
		t.Fatalf("encode foreign: %v", err)
	}
	_, imported, err = a.ImportShared(foreign)
	if err != nil || !imported {
		t.Fatalf("foreign import failed: imported=%v err=%v", imported, err)
	}
	if a.CurrentStoryID() != story.ID {
		t.Fatalf("import must not move the selection")
	}

	if _, _, err := a.ImportShared("cf1.garbage"); !errors.Is(err, share.ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}

func TestPublishIdempotentFlag(t *testing.T) {
	a := newTestApp(t, &fakeGenerator{reply: "chapter"})
	story, err := a.SendMessage(context.Background(), SendRequest{
		Content: "seed",
		Setup:   &StorySetup{Title: "Echoes", Universe: "Original"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	first, err := a.Publish(story.ID)
	if err != nil || !first {
		t.Fatalf("first publish: inserted=%v err=%v", first, err)
	}
	second, err := a.Publish(story.ID)
	if err != nil || second {
		t.Fatalf("second publish must report already published: inserted=%v err=%v", second, err)
	}
	if len(a.ListCommunity()) != 1 {
		t.Fatalf("expected exactly one community story")
	}
}

func TestProfileLifecycle(t *testing.T) {
	a := newTestApp(t, &fakeGenerator{reply: "chapter"})

	if _, err := a.Profile(); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound before signup, got %v", err)
	}

	profile, _, err := a.Signup("Ana", "ana@example.com", "Sup3r-Secret-Pass!")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if profile.PasswordHash == "" || profile.PasswordHash == "Sup3r-Secret-Pass!" {
		t.Fatalf("password stored without hashing")
	}

	if _, _, err := a.Login("ana@example.com", "wrong-password-00A!"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	got, _, err := a.Login("ANA@example.com", "Sup3r-Secret-Pass!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != profile.ID {
		t.Fatalf("login returned wrong profile")
	}

	// Stories created while signed in carry the author name.
	story, err := a.SendMessage(context.Background(), SendRequest{
		Content: "seed",
		Setup:   &StorySetup{Title: "Echoes", Universe: "Original"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if story.AuthorName != "Ana" {
		t.Fatalf("expected author attribution, got %q", story.AuthorName)
	}

	a.Logout()
	if _, err := a.Profile(); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("profile should be gone after logout, got %v", err)
	}
	// Attribution on existing stories is unchanged.
	kept, err := a.GetStory(story.ID)
	if err != nil || kept.AuthorName != "Ana" {
		t.Fatalf("logout must not strip attribution: %+v err=%v", kept, err)
	}
}

func TestSignupPasswordPolicy(t *testing.T) {
	a := newTestApp(t, &fakeGenerator{reply: "chapter"})
	if _, _, err := a.Signup("Ana", "ana@example.com", "short"); err == nil {
		t.Fatalf("expected weak password to be rejected")
	}
}

func TestSessionIssueVerify(t *testing.T) {
	a, err := New(Config{
		Store:         store.NewMemoryStore(nil),
		Generator:     &fakeGenerator{reply: "x"},
		SessionSecret: "0123456789abcdef0123456789abcdef",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	profile, token, err := a.Signup("Ana", "ana@example.com", "Sup3r-Secret-Pass!")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a session token with a secret configured")
	}
	subject, err := a.VerifySession(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != profile.ID {
		t.Fatalf("expected subject %q, got %q", profile.ID, subject)
	}
	if _, err := a.VerifySession(token + "x"); err == nil {
		t.Fatalf("tampered token must not verify")
	}
}
