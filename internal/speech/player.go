package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	speechprov "github.com/MrWong99/federkiel/pkg/provider/speech"
)

// Player speaks narration texts. Speak returns immediately; synthesis and
// playback run in the background. Each Speak supersedes the previous one:
// only the most recent narration is ever audible. Safe for concurrent use.
type Player struct {
	synth   speechprov.Provider
	newSink func() Sink
	log     *slog.Logger

	mu     sync.Mutex
	reqID  uint64
	cancel context.CancelFunc
	abort  func()
	done   chan struct{}
}

// Option is a functional option for configuring the Player.
type Option func(*Player)

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) {
		p.log = log
	}
}

// NewPlayer creates a player that synthesizes with synth and plays each
// narration on a fresh sink from newSink.
func NewPlayer(synth speechprov.Provider, newSink func() Sink, opts ...Option) *Player {
	p := &Player{
		synth:   synth,
		newSink: newSink,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Speak starts narrating text, silencing any narration still playing. Blank
// text is a no-op. Failures are logged, never returned: narration is
// best-effort and must not break the game loop.
func (p *Player) Speak(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	p.mu.Lock()
	p.reqID++
	id := p.reqID
	if p.cancel != nil {
		p.cancel()
	}
	if p.abort != nil {
		p.abort()
		p.abort = nil
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		p.play(ctx, id, text)
	}()
}

// Stop silences the current narration, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	p.reqID++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	abort := p.abort
	p.abort = nil
	p.mu.Unlock()
	if abort != nil {
		abort()
	}
}

// Wait blocks until the most recently started narration has finished or been
// silenced. Test hook.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// current reports whether id is still the live narration.
func (p *Player) current(id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reqID == id
}

// registerAbort exposes the sink's abort to Stop while id is live.
func (p *Player) registerAbort(id uint64, abort func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reqID != id {
		return false
	}
	p.abort = abort
	return true
}

func (p *Player) play(ctx context.Context, id uint64, text string) {
	audio, err := p.synth.Synthesize(ctx, text)
	if err != nil {
		p.log.Warn("speech synthesis unavailable", "error", err)
		return
	}

	sink := p.newSink()
	if err := sink.Start(ctx); err != nil {
		p.log.Warn("audio sink failed to start", "error", err)
		drain(audio)
		return
	}
	if !p.registerAbort(id, sink.Abort) {
		sink.Abort()
		drain(audio)
		return
	}

	// Chunks queue up while the sink digests earlier audio, so the
	// synthesizer is never backpressured by playback.
	q := newChunkQueue()
	go func() {
		defer q.close()
		for chunk := range audio {
			q.push(chunk)
		}
	}()

	for {
		chunk, ok := q.pop()
		if !ok {
			break
		}
		if !p.current(id) {
			sink.Abort()
			return
		}
		if err := sink.Append(chunk); err != nil {
			if p.current(id) {
				p.log.Warn("audio playback failed", "error", err)
			}
			sink.Abort()
			return
		}
	}

	if !p.current(id) {
		sink.Abort()
		return
	}
	if err := sink.Close(); err != nil {
		p.log.Warn("audio sink close failed", "error", err)
	}
}

func drain(ch <-chan []byte) {
	go func() {
		for range ch {
		}
	}()
}

// chunkQueue is an unbounded FIFO for audio chunks. push never blocks; pop
// blocks until a chunk is available or the queue is closed and empty.
type chunkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	chunks [][]byte
	closed bool
}

func newChunkQueue() *chunkQueue {
	q := &chunkQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *chunkQueue) push(chunk []byte) {
	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *chunkQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *chunkQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.chunks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.chunks) == 0 {
		return nil, false
	}
	chunk := q.chunks[0]
	q.chunks = q.chunks[1:]
	return chunk, true
}
