package export

import (
	"strings"
	"testing"

	"chatfic/pkg/domain"
)

func sampleStory() domain.Story {
	return domain.Story{
		ID:         "s1",
		Title:      "Echoes",
		Universe:   "Original",
		AuthorName: "Ana",
		Messages: []domain.Message{
			{ID: "m1", Role: domain.RoleUser, Content: "a lone traveler", Timestamp: 1},
			{ID: "m2", Role: domain.RoleModel, Content: "The road curved into fog.", Timestamp: 2},
			{ID: "m3", Role: domain.RoleUser, Content: "keep walking", Timestamp: 3},
			{ID: "m4", Role: domain.RoleModel, Content: "She walked until dawn.", Timestamp: 4},
		},
	}
}

func TestTextFormat(t *testing.T) {
	got := Text(sampleStory())
	if !strings.HasPrefix(got, "TITLE: ECHOES\nUNIVERSE: Original\n\n") {
		t.Fatalf("unexpected header:\n%s", got)
	}
	wantOrder := []string{"[AUTOR]:\na lone traveler", "[IA]:\nThe road curved into fog.", "[AUTOR]:\nkeep walking", "[IA]:\nShe walked until dawn."}
	pos := 0
	for _, section := range wantOrder {
		idx := strings.Index(got[pos:], section)
		if idx < 0 {
			t.Fatalf("section %q missing or out of order:\n%s", section, got)
		}
		pos += idx
	}
}

func TestMarkdownFormat(t *testing.T) {
	got := Markdown(sampleStory())
	if !strings.HasPrefix(got, "# Echoes\n\n**Universo:** Original\n\n") {
		t.Fatalf("unexpected header:\n%s", got)
	}
	if strings.Count(got, "## Autor") != 2 || strings.Count(got, "## IA") != 2 {
		t.Fatalf("expected one heading per message:\n%s", got)
	}
}

func TestPrintFormatSkipsUserTurns(t *testing.T) {
	got := Print(sampleStory())
	if !strings.HasPrefix(got, "ECHOES\nOriginal\npor Ana\n") {
		t.Fatalf("unexpected title page:\n%s", got)
	}
	if strings.Contains(got, "a lone traveler") {
		t.Fatalf("print output must not include user prompts:\n%s", got)
	}
	if strings.Count(got, "\f") != 2 {
		t.Fatalf("expected one page break per chapter:\n%s", got)
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	if _, err := Render(sampleStory(), Format("pdf")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if ValidFormat("pdf") {
		t.Fatalf("pdf must not validate")
	}
}

func TestFilename(t *testing.T) {
	story := domain.Story{Title: `a/b\c"d`}
	if got := Filename(story, FormatMarkdown); got != "a_b_cd.md" {
		t.Fatalf("unexpected filename %q", got)
	}
	if got := Filename(domain.Story{}, FormatText); got != "story.txt" {
		t.Fatalf("unexpected fallback filename %q", got)
	}
}
