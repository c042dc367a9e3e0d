// Package adventure holds the player model and the state machine that owns all
// mutation of it: starting and completing adventures, recording turns,
// collecting inventory items, and persisting the whole state as a JSON save
// file.
//
// The package enforces two invariants throughout:
//
//   - At most one adventure is active at a time.
//   - An adventure's history strictly alternates player and narrator turns,
//     player first, so the history length is even exactly when no reply is
//     outstanding.
package adventure

import "time"

// Role identifies who produced a turn in an adventure's history.
type Role string

const (
	// RolePlayer marks a turn typed by the player.
	RolePlayer Role = "user"

	// RoleNarrator marks a turn generated by the story model.
	RoleNarrator Role = "assistant"
)

// Turn is one entry in an adventure's conversation history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// Item is a single inventory entry. Items are keyed by Name: a second item
// with the same name is silently dropped on pickup.
type Item struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	FoundAt     time.Time `json:"foundAt"`
}

// Adventure is an in-progress adventure. Title stays empty until the first
// full exchange has happened and title generation has run.
type Adventure struct {
	Title     string    `json:"title,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	History   []Turn    `json:"conversationHistory"`
}

// Turns reports the number of completed player/narrator exchanges.
func (a *Adventure) Turns() int {
	return len(a.History) / 2
}

// LastNarratorText returns the text of the most recent narrator turn, or ""
// if the narrator has not spoken yet.
func (a *Adventure) LastNarratorText() string {
	for i := len(a.History) - 1; i >= 0; i-- {
		if a.History[i].Role == RoleNarrator {
			return a.History[i].Text
		}
	}
	return ""
}

// Completed is a finished adventure. Entries are immutable once appended.
type Completed struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	CompletedAt time.Time `json:"completedAt"`
}

// Stats holds lifetime counters. TotalTurns is only advanced when an
// adventure completes, from half its history length.
type Stats struct {
	AdventuresCompleted int `json:"adventuresCompleted"`
	TotalTurns          int `json:"totalTurns"`
}

// Player is the complete persisted state of one player. The zero value is a
// valid "new player" state; NewPlayer returns one with initialised slices.
type Player struct {
	Name      string `json:"name,omitempty"`
	HouseName string `json:"houseName,omitempty"`

	// Inventory preserves discovery order.
	Inventory []Item `json:"inventory"`

	// CompletedAdventures is chronological.
	CompletedAdventures []Completed `json:"completedAdventures"`

	// Current is nil when no adventure is running.
	Current *Adventure `json:"currentAdventure,omitempty"`

	Stats Stats `json:"stats"`
}

// NewPlayer returns a structurally defaulted player: no name, no house, empty
// inventory and history, zero stats.
func NewPlayer() *Player {
	return &Player{
		Inventory:           []Item{},
		CompletedAdventures: []Completed{},
	}
}

// HasItem reports whether the inventory already holds an item with the given
// name. Matching is case-sensitive and exact.
func (p *Player) HasItem(name string) bool {
	for _, it := range p.Inventory {
		if it.Name == name {
			return true
		}
	}
	return false
}
