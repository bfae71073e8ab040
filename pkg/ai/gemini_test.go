package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatfic/pkg/domain"
)

func geminiTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewGeminiClient("test-key", "")
	c.baseURL = srv.URL
	return c
}

func TestGeminiGenerateChapter(t *testing.T) {
	var captured geminiGenerateRequest
	c := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "A new chapter."}}}},
			},
		})
	})

	history := []domain.Message{
		{ID: "m1", Role: domain.RoleUser, Content: "begin", Timestamp: 1},
		{ID: "m2", Role: domain.RoleModel, Content: "It began.", Timestamp: 2},
		{ID: "m3", Role: domain.RoleUser, Content: "continue", Timestamp: 3},
	}
	got, err := c.GenerateChapter(context.Background(), history, domain.StyleHorror, "Marvel")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "A new chapter." {
		t.Fatalf("unexpected reply %q", got)
	}

	if len(captured.Contents) != 3 {
		t.Fatalf("expected full history, got %d contents", len(captured.Contents))
	}
	if captured.Contents[1].Role != "model" {
		t.Fatalf("model turn lost its role: %+v", captured.Contents[1])
	}
	if captured.SystemInstruction == nil || !strings.Contains(captured.SystemInstruction.Parts[0].Text, "Marvel") {
		t.Fatalf("system instruction missing universe")
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.Temperature != geminiTemperature {
		t.Fatalf("generation config not sent: %+v", captured.GenerationConfig)
	}
}

func TestGeminiEmptyCandidatesIsSoftFailure(t *testing.T) {
	c := geminiTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})
	got, err := c.GenerateChapter(context.Background(), nil, domain.StyleBalanced, "Original")
	if err != nil {
		t.Fatalf("empty candidates must not be an error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestGeminiErrorCategories(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrMissingCredential},
		{http.StatusForbidden, ErrMissingCredential},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tc := range cases {
		c := geminiTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		})
		if _, err := c.GenerateChapter(context.Background(), nil, domain.StyleBalanced, "Original"); !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestGeminiMissingKeyFailsAtRequest(t *testing.T) {
	c := NewGeminiClient("", "")
	if _, err := c.GenerateChapter(context.Background(), nil, domain.StyleBalanced, "Original"); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
