// Package speech plays synthesized narration progressively: audio chunks are
// handed to a playback sink as they arrive from the synthesizer, so playback
// starts before synthesis has finished. A newer narration always silences the
// one before it.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	shellwords "github.com/mattn/go-shellwords"
)

// Sink receives one playback session's audio. Append may block while the sink
// digests earlier chunks; the player keeps its own pending queue so synthesis
// is never stalled by playback.
type Sink interface {
	// Start begins the playback session.
	Start(ctx context.Context) error

	// Append plays the next chunk. Chunks arrive in order; Append may block
	// until the sink is ready for more.
	Append(chunk []byte) error

	// Close marks the end of the stream and waits for buffered audio to
	// finish playing.
	Close() error

	// Abort stops playback immediately, discarding anything still buffered.
	// Safe to call at any point, including after Close.
	Abort()
}

// ExecSink pipes audio into an external player subprocess, e.g.
// "mpv --really-quiet -" or "ffplay -autoexit -nodisp -". One ExecSink plays
// one session.
type ExecSink struct {
	args []string

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewExecSinkFactory parses the player command line once and returns a
// factory producing one ExecSink per playback session.
func NewExecSinkFactory(command string) (func() Sink, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("speech: parse player command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("speech: player command empty")
	}
	return func() Sink {
		return &ExecSink{args: args}
	}, nil
}

// Start implements Sink.
func (s *ExecSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("speech: player stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("speech: start player: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	return nil
}

// Append implements Sink. It blocks while the player's stdin buffer is full,
// which is the natural playback pace.
func (s *ExecSink) Append(chunk []byte) error {
	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return fmt.Errorf("speech: player not started")
	}
	if _, err := stdin.Write(chunk); err != nil {
		return fmt.Errorf("speech: write to player: %w", err)
	}
	return nil
}

// Close implements Sink. Closing stdin lets the player drain and exit.
func (s *ExecSink) Close() error {
	s.mu.Lock()
	stdin, cmd := s.stdin, s.cmd
	s.stdin, s.cmd = nil, nil
	s.mu.Unlock()
	if stdin == nil {
		return nil
	}
	stdin.Close()
	if cmd != nil {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("speech: player exited: %w", err)
		}
	}
	return nil
}

// Abort implements Sink by killing the player process.
func (s *ExecSink) Abort() {
	s.mu.Lock()
	stdin, cmd := s.stdin, s.cmd
	s.stdin, s.cmd = nil, nil
	s.mu.Unlock()
	if stdin != nil {
		stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
		cmd.Wait()
	}
}

// MemorySink collects audio in memory. It backs tests and headless runs; the
// optional Gate channel lets a test pace Append the way a real device would.
type MemorySink struct {
	// Gate, if non-nil, is received from at the top of every Append.
	Gate <-chan struct{}

	mu      sync.Mutex
	buf     bytes.Buffer
	chunks  int
	started bool
	closed  bool
	aborted bool
}

// Start implements Sink.
func (s *MemorySink) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

// Append implements Sink.
func (s *MemorySink) Append(chunk []byte) error {
	if s.Gate != nil {
		<-s.Gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return fmt.Errorf("speech: sink aborted")
	}
	s.buf.Write(chunk)
	s.chunks++
	return nil
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Abort implements Sink.
func (s *MemorySink) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

// Data returns everything appended so far.
func (s *MemorySink) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

// Chunks returns the number of Append calls that succeeded.
func (s *MemorySink) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Closed reports whether Close was called.
func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Aborted reports whether Abort was called.
func (s *MemorySink) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Compile-time interface checks.
var (
	_ Sink = (*ExecSink)(nil)
	_ Sink = (*MemorySink)(nil)
)
