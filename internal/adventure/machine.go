package adventure

import (
	"errors"
	"time"
)

// Sentinel errors returned by Machine operations.
var (
	// ErrAdventureActive is returned by Start when an adventure is already
	// running.
	ErrAdventureActive = errors.New("adventure: an adventure is already in progress")

	// ErrNoAdventure is returned by operations that require a running
	// adventure when there is none.
	ErrNoAdventure = errors.New("adventure: no adventure in progress")

	// ErrAwaitingNarrator is returned by RecordPlayerTurn while a narrator
	// reply is still outstanding.
	ErrAwaitingNarrator = errors.New("adventure: narrator reply outstanding")

	// ErrAwaitingPlayer is returned by RecordNarratorTurn when the last turn
	// was not a player turn.
	ErrAwaitingPlayer = errors.New("adventure: no player turn to answer")
)

// Machine owns all mutation of a Player. It is not safe for concurrent use;
// callers serialize access (the game loop is single-threaded).
type Machine struct {
	player *Player
	now    func() time.Time
}

// NewMachine wraps player in a state machine. player must not be nil.
func NewMachine(player *Player) *Machine {
	return &Machine{player: player, now: time.Now}
}

// Player returns the wrapped player state.
func (m *Machine) Player() *Player { return m.player }

// Active reports whether an adventure is currently running.
func (m *Machine) Active() bool { return m.player.Current != nil }

// AwaitingNarrator reports whether the running adventure ends on a player
// turn, i.e. a narrator reply is outstanding. False when no adventure runs.
func (m *Machine) AwaitingNarrator() bool {
	cur := m.player.Current
	return cur != nil && len(cur.History)%2 == 1
}

// Start begins a new adventure with an empty history and no title.
func (m *Machine) Start() error {
	if m.player.Current != nil {
		return ErrAdventureActive
	}
	m.player.Current = &Adventure{
		StartedAt: m.now(),
		History:   []Turn{},
	}
	return nil
}

// RecordPlayerTurn appends a player turn. The previous turn, if any, must be
// a narrator turn.
func (m *Machine) RecordPlayerTurn(text string) error {
	cur := m.player.Current
	if cur == nil {
		return ErrNoAdventure
	}
	if len(cur.History)%2 == 1 {
		return ErrAwaitingNarrator
	}
	cur.History = append(cur.History, Turn{Role: RolePlayer, Text: text})
	return nil
}

// RecordNarratorTurn appends a narrator turn answering the outstanding player
// turn. The stored text is kept verbatim, markers included, so that replayed
// histories carry the same signals the narrator originally produced.
func (m *Machine) RecordNarratorTurn(text string) error {
	cur := m.player.Current
	if cur == nil {
		return ErrNoAdventure
	}
	if len(cur.History)%2 == 0 {
		return ErrAwaitingPlayer
	}
	cur.History = append(cur.History, Turn{Role: RoleNarrator, Text: text})
	return nil
}

// RollbackLastTurn removes the trailing player turn after a failed exchange,
// so the same input can be retried without duplicating it in the history.
// It is a no-op when the history does not end on a player turn.
func (m *Machine) RollbackLastTurn() {
	cur := m.player.Current
	if cur == nil || len(cur.History)%2 == 0 {
		return
	}
	cur.History = cur.History[:len(cur.History)-1]
}

// AddItem puts a discovered item into the inventory. Duplicate names are
// dropped; the return value reports whether the item was actually added.
func (m *Machine) AddItem(name, description string) bool {
	if m.player.HasItem(name) {
		return false
	}
	m.player.Inventory = append(m.player.Inventory, Item{
		Name:        name,
		Description: description,
		FoundAt:     m.now(),
	})
	return true
}

// SetTitle assigns the adventure title if none is set yet.
func (m *Machine) SetTitle(title string) error {
	cur := m.player.Current
	if cur == nil {
		return ErrNoAdventure
	}
	if cur.Title == "" {
		cur.Title = title
	}
	return nil
}

// Complete finishes the running adventure: it is appended to the completed
// list with the given summary, the lifetime counters advance, and the current
// adventure is cleared. An untitled adventure gets a date-based title.
func (m *Machine) Complete(summary string) error {
	cur := m.player.Current
	if cur == nil {
		return ErrNoAdventure
	}
	title := cur.Title
	if title == "" {
		title = FallbackTitle(m.now())
	}
	m.player.CompletedAdventures = append(m.player.CompletedAdventures, Completed{
		Title:       title,
		Summary:     summary,
		CompletedAt: m.now(),
	})
	m.player.Stats.AdventuresCompleted++
	m.player.Stats.TotalTurns += cur.Turns()
	m.player.Current = nil
	return nil
}

// Abandon discards the running adventure without touching the completed list
// or the counters.
func (m *Machine) Abandon() error {
	if m.player.Current == nil {
		return ErrNoAdventure
	}
	m.player.Current = nil
	return nil
}

// FallbackTitle returns the date-based title used when no generated title is
// available.
func FallbackTitle(t time.Time) string {
	return "Abenteuer vom " + t.Format("02.01.2006")
}
