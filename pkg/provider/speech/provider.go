// Package speech defines the Provider interface for narration synthesis.
//
// A speech provider turns finished German story text into a stream of encoded
// audio chunks (MP3 unless configured otherwise) that the player can start
// playing before synthesis has finished.
//
// Implementors must be safe for concurrent use. Channels returned by
// Synthesize must be closed by the implementation when synthesis ends or when
// the supplied context is cancelled.
package speech

import "context"

// Provider is the abstraction over any speech-synthesis backend.
type Provider interface {
	// Synthesize converts text into audio and returns a read-only channel
	// emitting encoded audio chunks in playback order. The channel is closed
	// by the implementation when synthesis finishes or ctx is cancelled.
	//
	// Callers must drain the channel to avoid goroutine leaks. Errors after
	// the first chunk cannot be signalled; the channel simply ends early.
	// The initial error return covers failures that prevent synthesis from
	// starting (bad credentials, rejected request).
	Synthesize(ctx context.Context, text string) (<-chan []byte, error)
}

// InputStreamer is implemented by providers that can synthesize from text
// arriving incrementally, fragment by fragment, instead of one finished
// string. The text channel is owned by the caller; closing it ends the
// synthesis and flushes any buffered audio.
type InputStreamer interface {
	SynthesizeStream(ctx context.Context, fragments <-chan string) (<-chan []byte, error)
}
