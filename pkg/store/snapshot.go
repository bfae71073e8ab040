package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Fixed snapshot keys. One key maps to one JSON document.
const (
	KeyStories     = "stories"
	KeyCommunity   = "community"
	KeyCurrentID   = "current_id"
	KeyPreferences = "preferences"
	KeyProfile     = "profile"
)

// Snapshot persists named JSON documents. Implementations must never fail
// a load into the caller: missing or corrupt data degrades to the zero
// value so startup is never blocked on storage.
type Snapshot interface {
	// Load decodes the document under key into out. Returns false when the
	// key is absent or the stored data cannot be decoded.
	Load(key string, out any) bool
	// Save serializes value under key. Failures are logged, not returned;
	// there are no transactional guarantees across keys.
	Save(key string, value any)
}

// FileSnapshot keeps each key as a JSON file under a base directory.
type FileSnapshot struct {
	basePath string
}

// NewFileSnapshot creates the base directory if missing.
func NewFileSnapshot(basePath string) (*FileSnapshot, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("snapshot base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileSnapshot{basePath: basePath}, nil
}

// Load reads and decodes the document for key.
func (f *FileSnapshot) Load(key string, out any) bool {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("snapshot corrupt, using defaults", "key", key, "err", err)
		return false
	}
	return true
}

// Save writes the document atomically via a temp file and rename.
func (f *FileSnapshot) Save(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("snapshot encode failed", "key", key, "err", err)
		return
	}
	target := f.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Error("snapshot write failed", "key", key, "err", err)
		return
	}
	if err := os.Rename(tmp, target); err != nil {
		slog.Error("snapshot rename failed", "key", key, "err", err)
	}
}

func (f *FileSnapshot) path(key string) string {
	return filepath.Join(f.basePath, key+".json")
}
