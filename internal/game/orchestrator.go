// Package game drives one player's session: it owns the adventure state
// machine, plays turns against the story server, narrates replies aloud and
// persists the save file after every exchange.
package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/federkiel/internal/adventure"
	"github.com/MrWong99/federkiel/internal/stream"
	"github.com/MrWong99/federkiel/internal/wire"
)

// fallbackSummary stands in when the server completes an adventure without
// delivering a summary.
const fallbackSummary = "Ein weiteres erfolgreiches Abenteuer."

// startingItemName and startingItemDescription are every new wizard's first
// possession.
const (
	startingItemName        = "Zauberstab"
	startingItemDescription = "Dein treuer Zauberstab aus Ollivanders Laden"
)

// turnStreamer is the slice of the stream client the orchestrator needs.
type turnStreamer interface {
	StreamTurn(ctx context.Context, req *wire.TurnRequest) <-chan stream.Event
	Cancel()
}

// speaker narrates finished turns aloud.
type speaker interface {
	Speak(ctx context.Context, text string)
	Stop()
}

// saver persists the player between turns.
type saver interface {
	Save(p *adventure.Player) error
}

// TurnEvents receives the visible updates of one turn. Nil callbacks are
// skipped.
type TurnEvents struct {
	// Delta is called for each text fragment as the narrator produces it.
	Delta func(text string)

	// NewItem is called for each item that actually entered the inventory.
	NewItem func(item wire.NewItem)

	// Actions is called once with the narrator's suggested next moves.
	Actions func(actions []string)

	// Image is called when the turn illustration arrives.
	Image func(img *wire.ImagePayload)

	// Completed is called after the adventure was archived.
	Completed func(title, summary string)
}

// Orchestrator ties the state machine, the stream client and the voice
// output together. Not safe for concurrent use; the game loop is
// single-threaded.
type Orchestrator struct {
	machine *adventure.Machine
	store   saver
	client  turnStreamer
	voice   speaker
	log     *slog.Logger
}

// Option is a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithVoice enables spoken narration of finished turns.
func WithVoice(v speaker) Option {
	return func(o *Orchestrator) {
		o.voice = v
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// New creates an orchestrator for the given player state.
func New(machine *adventure.Machine, store saver, client turnStreamer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		machine: machine,
		store:   store,
		client:  client,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Player returns the wrapped player state.
func (o *Orchestrator) Player() *adventure.Player {
	return o.machine.Player()
}

// Active reports whether an adventure is running.
func (o *Orchestrator) Active() bool {
	return o.machine.Active()
}

// Onboard records the new player's name and house and hands out the starting
// equipment.
func (o *Orchestrator) Onboard(name, house string) {
	p := o.machine.Player()
	p.Name = name
	p.HouseName = house
	o.machine.AddItem(startingItemName, startingItemDescription)
	o.save()
}

// StartAdventure begins a new adventure.
func (o *Orchestrator) StartAdventure() error {
	if err := o.machine.Start(); err != nil {
		return err
	}
	o.save()
	return nil
}

// Abandon discards the running adventure without progress.
func (o *Orchestrator) Abandon() error {
	if o.voice != nil {
		o.voice.Stop()
	}
	if err := o.machine.Abandon(); err != nil {
		return err
	}
	o.save()
	return nil
}

// Shutdown cancels any in-flight turn and silences narration. The state is
// saved so a quit mid-adventure loses nothing.
func (o *Orchestrator) Shutdown() {
	o.client.Cancel()
	if o.voice != nil {
		o.voice.Stop()
	}
	o.save()
}

// PlayTurn sends the player's action to the narrator and applies the reply:
// history, inventory, title and completion. On failure the player turn is
// rolled back so the same input can be retried.
func (o *Orchestrator) PlayTurn(ctx context.Context, action string, ev TurnEvents) error {
	if !o.machine.Active() {
		return adventure.ErrNoAdventure
	}
	req := o.buildRequest(action)
	if err := o.machine.RecordPlayerTurn(action); err != nil {
		return err
	}

	var turnErr *wire.ErrorPayload
	for event := range o.client.StreamTurn(ctx, req) {
		switch event.Type {
		case wire.EventDelta:
			if ev.Delta != nil {
				ev.Delta(event.Delta)
			}
		case wire.EventFinal:
			o.applyFinal(ctx, event.Assistant, ev)
		case wire.EventImage:
			if ev.Image != nil {
				ev.Image(event.Image)
			}
		case wire.EventImageError:
			o.log.Warn("turn illustration unavailable", "code", event.Err.Code)
		case wire.EventError:
			turnErr = event.Err
		}
	}

	// No narrator reply made it into the history: the player turn must not
	// linger, or the next exchange would start out of order.
	if o.machine.AwaitingNarrator() {
		o.machine.RollbackLastTurn()
	}
	o.save()

	if turnErr != nil {
		return fmt.Errorf("game: turn failed: %s (%s)", turnErr.Message, turnErr.Code)
	}
	return nil
}

// applyFinal folds the narrator's reply into the player state.
func (o *Orchestrator) applyFinal(ctx context.Context, a *wire.AssistantReply, ev TurnEvents) {
	if a == nil {
		return
	}
	if err := o.machine.RecordNarratorTurn(a.StoryText); err != nil {
		o.log.Error("narrator turn rejected", "error", err)
		return
	}
	for _, item := range a.NewItems {
		if o.machine.AddItem(item.Name, item.Description) && ev.NewItem != nil {
			ev.NewItem(item)
		}
	}
	if a.Adventure != nil && a.Adventure.Title != "" {
		if err := o.machine.SetTitle(a.Adventure.Title); err != nil {
			o.log.Error("setting adventure title failed", "error", err)
		}
	}
	if ev.Actions != nil && len(a.SuggestedActions) > 0 {
		ev.Actions(a.SuggestedActions)
	}
	if o.voice != nil {
		o.voice.Speak(ctx, a.StoryText)
	}

	if a.Adventure == nil || !a.Adventure.Completed {
		return
	}
	summary := a.Adventure.Summary
	if summary == "" {
		summary = fallbackSummary
	}
	if err := o.machine.Complete(summary); err != nil {
		o.log.Error("completing adventure failed", "error", err)
		return
	}
	if ev.Completed != nil {
		done := o.machine.Player().CompletedAdventures
		last := done[len(done)-1]
		ev.Completed(last.Title, last.Summary)
	}
}

// buildRequest snapshots the player state into a turn request. The current
// action is carried separately from the history.
func (o *Orchestrator) buildRequest(action string) *wire.TurnRequest {
	p := o.machine.Player()
	cur := p.Current

	req := &wire.TurnRequest{
		Action: action,
		Player: wire.PlayerInfo{
			Name:                p.Name,
			HouseName:           p.HouseName,
			Inventory:           p.Inventory,
			CompletedAdventures: p.CompletedAdventures,
			Stats:               p.Stats,
		},
		ConversationHistory: append([]adventure.Turn{}, cur.History...),
	}
	if len(cur.History) > 0 {
		req.CurrentAdventure = &wire.AdventureInfo{
			Title:     cur.Title,
			StartedAt: cur.StartedAt,
		}
	}
	return req
}

func (o *Orchestrator) save() {
	if err := o.store.Save(o.machine.Player()); err != nil {
		o.log.Error("saving player failed", "error", err)
	}
}
