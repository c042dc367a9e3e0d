package adventure

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists one Player as a single JSON document. Reads and writes are
// always whole-object; there is no partial update.
type Store struct {
	path string
}

// NewStore returns a store writing to the given file path. The parent
// directory is created on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the save location under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("adventure: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".federkiel", "player.json"), nil
}

// Load reads the save file. A missing or unreadable file yields a fresh
// default player rather than an error, so a corrupt save never locks the
// player out; the corruption is logged and the next Save overwrites it.
func (s *Store) Load() *Player {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("save file unreadable, starting fresh", "path", s.path, "error", err)
		}
		return NewPlayer()
	}
	var p Player
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Warn("save file corrupt, starting fresh", "path", s.path, "error", err)
		return NewPlayer()
	}
	if p.Inventory == nil {
		p.Inventory = []Item{}
	}
	if p.CompletedAdventures == nil {
		p.CompletedAdventures = []Completed{}
	}
	return &p
}

// Save writes the player state, creating the directory if needed. The file is
// written with owner-only permissions.
func (s *Store) Save(p *Player) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("adventure: create save directory: %w", err)
	}
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("adventure: encode save: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("adventure: write save: %w", err)
	}
	return nil
}
