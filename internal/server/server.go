// Package server exposes the HTTP API consumed by the web client.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatfic/internal/app"
	"chatfic/internal/ratelimit"
	"chatfic/internal/util"
	"chatfic/pkg/domain"
	"chatfic/pkg/export"
	"chatfic/pkg/i18n"
	"chatfic/pkg/prompt"
	"chatfic/pkg/share"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// Optional redis-backed rate limit on generation requests.
	RedisAddr                  string
	RedisPassword              string
	GenerateRateLimitPerMinute int

	// TrustedProxies lists proxy CIDRs whose forwarded headers are honored
	// when resolving the client IP for rate limiting.
	TrustedProxies []string
}

// Server exposes HTTP endpoints for the application.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	generateLimiter *ratelimit.FixedWindowLimiter
	trustedProxies  *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	if cfg.GenerateRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "chatfic:ratelimit:generate",
			cfg.GenerateRateLimitPerMinute, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init generate limiter: %w", err)
		}
		s.generateLimiter = limiter
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s.trustedProxies = trusted
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("chatfic", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/stories", s.handleStories)
	s.mux.HandleFunc("/api/stories/messages", s.handleSend)
	s.mux.HandleFunc("/api/stories/", s.handleStoryByID)

	s.mux.HandleFunc("/api/community", s.handleCommunity)
	s.mux.HandleFunc("/api/ideas", s.handleIdeas)
	s.mux.HandleFunc("/api/styles", s.handleStyles)
	s.mux.HandleFunc("/api/i18n/", s.handleI18N)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/share/import", s.handleShareImport)

	s.mux.HandleFunc("/api/profile", s.handleProfile)
	s.mux.HandleFunc("/api/profile/signup", s.handleSignup)
	s.mux.HandleFunc("/api/profile/login", s.handleLogin)
	s.mux.HandleFunc("/api/profile/logout", s.handleLogout)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStories lists the user's stories plus the current selection.
func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stories":   s.app.ListStories(),
		"currentId": s.app.CurrentStoryID(),
	})
}

// handleSend is the single send-and-generate endpoint. The request blocks
// for the duration of the generation round trip.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowGenerate(r) {
		writeError(w, http.StatusTooManyRequests, "too many generation requests")
		return
	}
	var req app.SendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	story, err := s.app.SendMessage(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// handleStoryByID routes /api/stories/{id}[/...].
func (s *Server) handleStoryByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/stories/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "story id required")
		return
	}
	storyID := parts[0]

	switch {
	case len(parts) == 1:
		s.handleStory(w, r, storyID)
	case len(parts) == 2 && parts[1] == "select":
		s.handleSelect(w, r, storyID)
	case len(parts) == 2 && parts[1] == "style":
		s.handleStyle(w, r, storyID)
	case len(parts) == 2 && parts[1] == "publish":
		s.handlePublish(w, r, storyID)
	case len(parts) == 2 && parts[1] == "export":
		s.handleExport(w, r, storyID)
	case len(parts) == 2 && parts[1] == "share":
		s.handleShare(w, r, storyID)
	case len(parts) == 3 && parts[1] == "messages":
		s.handleMessage(w, r, storyID, parts[2])
	case len(parts) == 4 && parts[1] == "messages" && parts[3] == "regenerate":
		s.handleRegenerate(w, r, storyID, parts[2])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request, storyID string) {
	switch r.Method {
	case http.MethodGet:
		story, err := s.app.GetStory(storyID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, story)
	case http.MethodDelete:
		if err := s.app.DeleteStory(storyID); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, storyID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.SelectStory(storyID); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"currentId": storyID})
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request, storyID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Style domain.StyleDirective `json:"style"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.ChangeStyle(storyID, req.Style); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"style": string(req.Style)})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request, storyID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	published, err := s.app.Publish(storyID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"published": published})
}

// handleExport streams one rendered format, or returns archive URLs for
// every format when ?archive=true and object storage is configured.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, storyID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if r.URL.Query().Get("archive") == "true" {
		urls, err := s.app.ArchiveExports(r.Context(), storyID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"downloads": urls})
		return
	}
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatText
	}
	body, filename, contentType, err := s.app.ExportDocument(storyID, format)
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, storyID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	token, err := s.app.ShareToken(storyID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, storyID, messageID string) {
	switch r.Method {
	case http.MethodPatch:
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.app.EditMessage(storyID, messageID, req.Content); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "edited"})
	case http.MethodDelete:
		if err := s.app.DeleteMessage(storyID, messageID); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request, storyID, messageID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowGenerate(r) {
		writeError(w, http.StatusTooManyRequests, "too many generation requests")
		return
	}
	story, err := s.app.RegenerateMessage(r.Context(), storyID, messageID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (s *Server) handleCommunity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": s.app.ListCommunity()})
}

func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ideas": prompt.Ideas})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"styles": domain.Styles})
}

func (s *Server) handleI18N(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	lang := domain.Language(strings.TrimPrefix(r.URL.Path, "/api/i18n/"))
	writeJSON(w, http.StatusOK, i18n.Strings(lang))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.app.GetPreferences())
	case http.MethodPut:
		var prefs domain.Preferences
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&prefs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		writeJSON(w, http.StatusOK, s.app.SavePreferences(prefs))
	default:
		methodNotAllowed(w)
	}
}

// handleShareImport decodes a share token and opens the story as a read
// overlay. A bad token is a notice, never a failure of the app itself.
func (s *Server) handleShareImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	story, imported, err := s.app.ImportShared(req.Token)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"story":    story,
		"imported": imported,
	})
}

// handleProfile returns the stored profile. When a bearer token is
// presented it must verify; a request without one is still served, since
// sessions are optional for a local instance.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if token := bearerToken(r); token != "" {
		if _, err := s.app.VerifySession(token); err != nil {
			writeAppError(w, err)
			return
		}
	}
	profile, err := s.app.Profile()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	profile, token, err := s.app.Signup(req.Name, req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile, "token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	profile, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile, "token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.app.Logout()
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) allowGenerate(r *http.Request) bool {
	if s.generateLimiter == nil {
		return true
	}
	return s.generateLimiter.Allow(util.ClientIP(r, s.trustedProxies))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrStoryNotFound),
		errors.Is(err, app.ErrMessageNotFound),
		errors.Is(err, app.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrGenerationInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrBadCredentials), errors.Is(err, app.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, share.ErrBadToken),
		errors.Is(err, app.ErrEmptyContent),
		errors.Is(err, app.ErrSetupRequired),
		errors.Is(err, app.ErrInvalidStyle):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNoArchive):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
