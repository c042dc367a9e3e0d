// Package wire defines the JSON shapes exchanged between the game client and
// the story server. Both sides marshal and unmarshal exactly these types, so
// the protocol has one source of truth.
package wire

import (
	"time"

	"github.com/MrWong99/federkiel/internal/adventure"
)

// Event names used on the story stream.
const (
	EventDelta      = "delta"
	EventFinal      = "final"
	EventFinalText  = "final_text"
	EventImage      = "image"
	EventImageError = "image_error"
	EventError      = "error"
)

// Error codes carried in ErrorPayload.
const (
	CodeStreamClientError = "STREAM_CLIENT_ERROR"
	CodeStreamHTTPError   = "STREAM_HTTP_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeBadRequest        = "BAD_REQUEST"
	CodeStoryFailed       = "STORY_FAILED"
	CodeImageFailed       = "IMAGE_FAILED"
	CodeTTSFailed         = "TTS_FAILED"
)

// TurnRequest is the body of POST /api/story and POST /api/story/stream.
type TurnRequest struct {
	// Action is the player's input for this turn. Empty on the opening turn
	// of a new adventure.
	Action string `json:"action"`

	Player PlayerInfo `json:"player"`

	// CurrentAdventure is nil when a new adventure starts with this request.
	CurrentAdventure *AdventureInfo `json:"currentAdventure,omitempty"`

	// ConversationHistory is the full alternating history, the current
	// action excluded.
	ConversationHistory []adventure.Turn `json:"conversationHistory"`
}

// PlayerInfo is the slice of player state the server needs for prompting.
type PlayerInfo struct {
	Name                string                `json:"name"`
	HouseName           string                `json:"houseName"`
	Inventory           []adventure.Item      `json:"inventory"`
	CompletedAdventures []adventure.Completed `json:"completedAdventures"`
	Stats               adventure.Stats       `json:"stats"`
}

// AdventureInfo identifies the running adventure.
type AdventureInfo struct {
	Title     string    `json:"title,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

// NewItem is an item discovered in this turn.
type NewItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AdventureMeta carries the adventure outcome of a turn.
type AdventureMeta struct {
	Title     string `json:"title,omitempty"`
	Completed bool   `json:"completed"`

	// Summary and CompletedAt are set only when Completed is true.
	Summary     string     `json:"summary,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ImagePayload is an inline illustration.
type ImagePayload struct {
	MimeType string `json:"mimeType"`
	Base64   string `json:"base64"`
	Prompt   string `json:"prompt,omitempty"`
}

// AssistantReply is the complete outcome of one narrator turn.
type AssistantReply struct {
	// StoryText is the visible prose, markers stripped.
	StoryText        string    `json:"storyText"`
	SuggestedActions []string  `json:"suggestedActions"`
	NewItems         []NewItem `json:"newItems"`

	Adventure *AdventureMeta `json:"adventure,omitempty"`

	// Image is only populated on the single-shot endpoint; the stream sends
	// the illustration as its own event instead.
	Image *ImagePayload `json:"image,omitempty"`
}

// ErrorPayload describes a failed operation.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// DeltaEvent is the payload of a "delta" stream event.
type DeltaEvent struct {
	Text string `json:"text"`
}

// FinalEvent is the payload of a "final"/"final_text" stream event and the
// response body of the single-shot endpoint.
type FinalEvent struct {
	Assistant AssistantReply `json:"assistant"`
}

// ImageEvent is the payload of an "image" stream event.
type ImageEvent struct {
	Image ImagePayload `json:"image"`
}

// ErrorEvent is the payload of "error" and "image_error" stream events.
type ErrorEvent struct {
	Error ErrorPayload `json:"error"`
}

// TTSRequest is the body of POST /api/tts.
type TTSRequest struct {
	Text string `json:"text"`
}
