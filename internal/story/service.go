package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/federkiel/internal/adventure"
	"github.com/MrWong99/federkiel/internal/narrative"
	"github.com/MrWong99/federkiel/internal/wire"
	imageprov "github.com/MrWong99/federkiel/pkg/provider/image"
	"github.com/MrWong99/federkiel/pkg/provider/text"
)

// storyMaxTokens caps the length of one narrator turn.
const storyMaxTokens = 500

// Service produces complete narrator turns. It owns the text and image
// providers and the auxiliary generators around them.
type Service struct {
	provider   text.Provider
	image      imageprov.Provider
	titler     *Titler
	summarizer *Summarizer
	log        *slog.Logger
	now        func() time.Time
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithClock replaces the wall clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. provider generates narration, titles and
// summaries; imageProvider renders turn illustrations.
func NewService(provider text.Provider, imageProvider imageprov.Provider, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		image:      imageProvider,
		titler:     NewTitler(provider),
		summarizer: NewSummarizer(provider),
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Result is a finished narrator turn plus the prompt for its illustration.
type Result struct {
	Assistant   wire.AssistantReply
	ImagePrompt string
}

// Turn runs one complete turn without streaming: the reply carries the
// illustration inline. Used by the single-shot endpoint.
func (s *Service) Turn(ctx context.Context, req *wire.TurnRequest) (*wire.AssistantReply, error) {
	res, err := s.StreamTurn(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	assistant := res.Assistant
	img, err := s.GenerateImage(ctx, res.ImagePrompt)
	if err != nil {
		s.log.Warn("turn illustration failed", "error", err)
	} else {
		assistant.Image = img
	}
	return &assistant, nil
}

// StreamTurn runs one turn, calling onDelta with each visible text fragment
// as the model produces it. Marker fragments never reach onDelta, even when
// split across model chunks. A nil onDelta skips delta delivery.
func (s *Service) StreamTurn(ctx context.Context, req *wire.TurnRequest, onDelta func(string)) (*Result, error) {
	history := compactHistory(req.ConversationHistory)

	messages := make([]text.Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, text.Message{Role: string(turn.Role), Content: turn.Text})
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		action = "start"
	}
	messages = append(messages, text.Message{Role: string(adventure.RolePlayer), Content: action})

	chunks, err := s.provider.StreamCompletion(ctx, text.CompletionRequest{
		Messages:     messages,
		SystemPrompt: BuildSystemPrompt(req.Player, arcStep(history)),
		MaxTokens:    storyMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("story: start completion: %w", err)
	}

	var raw strings.Builder
	var filter narrative.StreamFilter
	emit := func(fragment string) {
		if onDelta == nil {
			return
		}
		if visible := narrative.StripMarkdown(fragment); visible != "" {
			onDelta(visible)
		}
	}
	for chunk := range chunks {
		if chunk.FinishReason == "error" {
			return nil, fmt.Errorf("story: completion failed: %s", chunk.Text)
		}
		if chunk.Text == "" {
			continue
		}
		raw.WriteString(chunk.Text)
		emit(filter.Feed(chunk.Text))
	}
	emit(filter.Flush())

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if raw.Len() == 0 {
		return nil, errors.New("story: model produced no text")
	}

	return s.buildResult(ctx, req, history, raw.String())
}

// GenerateImage renders the turn illustration for an image prompt.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (*wire.ImagePayload, error) {
	img, err := s.image.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("story: generate image: %w", err)
	}
	return &wire.ImagePayload{
		MimeType: img.MimeType,
		Base64:   img.Base64,
		Prompt:   img.Prompt,
	}, nil
}

// buildResult parses the raw narration into the assistant reply: visible
// text, discovered items, suggested actions, completion outcome, title and
// the illustration prompt.
func (s *Service) buildResult(ctx context.Context, req *wire.TurnRequest, history []adventure.Turn, raw string) (*Result, error) {
	completed := narrative.Completed(raw)
	scene := narrative.Scene(raw)
	clean := narrative.StripMarkdown(narrative.Clean(raw))

	var newItems []wire.NewItem
	for _, item := range narrative.Items(raw) {
		newItems = append(newItems, wire.NewItem{Name: item.Name, Description: item.Description})
	}

	meta := &wire.AdventureMeta{Completed: completed}
	if req.CurrentAdventure != nil {
		meta.Title = req.CurrentAdventure.Title
	}
	if meta.Title == "" {
		meta.Title = s.maybeTitle(ctx, history, clean)
	}
	if completed {
		summaryHistory := append(append([]adventure.Turn{}, history...), adventure.Turn{
			Role: adventure.RoleNarrator,
			Text: clean,
		})
		summary, err := s.summarizer.GenerateSummary(ctx, summaryHistory)
		if err != nil {
			s.log.Warn("adventure summary failed", "error", err)
		}
		meta.Summary = summary
		completedAt := s.now()
		meta.CompletedAt = &completedAt
	}

	return &Result{
		Assistant: wire.AssistantReply{
			StoryText:        clean,
			SuggestedActions: narrative.Options(raw),
			NewItems:         newItems,
			Adventure:        meta,
		},
		ImagePrompt: BuildImagePrompt(scene, clean),
	}, nil
}

// maybeTitle generates a title once two narrator texts exist. Title failures
// only cost the title, never the turn.
func (s *Service) maybeTitle(ctx context.Context, history []adventure.Turn, latest string) string {
	var narratorTexts []string
	for _, turn := range history {
		if turn.Role == adventure.RoleNarrator {
			narratorTexts = append(narratorTexts, turn.Text)
		}
	}
	if latest != "" {
		narratorTexts = append(narratorTexts, latest)
	}
	if len(narratorTexts) < 2 {
		return ""
	}

	title, err := s.titler.GenerateTitle(ctx, narratorTexts[:2])
	if err != nil {
		s.log.Warn("title generation failed", "error", err)
		return ""
	}
	return title
}

// compactHistory drops turns with blank text; the model chokes on empty
// messages.
func compactHistory(history []adventure.Turn) []adventure.Turn {
	out := make([]adventure.Turn, 0, len(history))
	for _, turn := range history {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		out = append(out, turn)
	}
	return out
}

// arcStep places the coming narrator turn on the story arc: one past the
// number of narrator turns so far, clamped to the arc length.
func arcStep(history []adventure.Turn) int {
	step := 1
	for _, turn := range history {
		if turn.Role == adventure.RoleNarrator {
			step++
		}
	}
	if step > ArcTotalSteps {
		step = ArcTotalSteps
	}
	return step
}
