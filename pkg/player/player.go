package player

import (
	"context"
	"log/slog"
	"sync"
)

// Player is the Streaming Player component: it wraps a Sink backend and
// publishes playback-state transitions, the way pkg/audio.Player tracks a
// speaking flag around its streaming pipeline via OnPlaybackStart/
// OnPlaybackEnd callbacks.
type Player struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	state State

	onStateChange func(State)
}

// New constructs a Player around the given Sink. The caller selects the
// Sink implementation (MockSink, ExecSink, or a platform-specific backend)
// based on Config.Backend.
func New(cfg Config, sink Sink, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With("component", "player"),
		state:  StateIdle,
	}
}

// OnStateChange registers a callback invoked whenever the Player's state
// transitions. Invoked outside any internal lock.
func (p *Player) OnStateChange(fn func(State)) {
	p.mu.Lock()
	p.onStateChange = fn
	p.mu.Unlock()
}

// Initialize prepares the output device.
func (p *Player) Initialize(ctx context.Context) error {
	return p.sink.Initialize(ctx)
}

// Enqueue submits a PCM16 chunk for playback and marks the Player as
// playing.
func (p *Player) Enqueue(ctx context.Context, pcm []byte) error {
	if err := p.sink.Enqueue(ctx, Chunk{PCM: pcm}); err != nil {
		return err
	}
	p.setState(StatePlaying)
	return nil
}

// Pause suspends playback without discarding buffered audio.
func (p *Player) Pause(ctx context.Context) error {
	if err := p.sink.Pause(ctx); err != nil {
		return err
	}
	p.setState(StatePaused)
	return nil
}

// Resume continues playback after Pause.
func (p *Player) Resume(ctx context.Context) error {
	if err := p.sink.Resume(ctx); err != nil {
		return err
	}
	p.setState(StatePlaying)
	return nil
}

// Flush discards all buffered and in-flight audio. Per SPEC_FULL.md §4.4,
// this is the barge-in primitive: once Flush returns, nothing enqueued
// before the call will ever be rendered.
func (p *Player) Flush(ctx context.Context) error {
	if err := p.sink.Flush(ctx); err != nil {
		return err
	}
	p.setState(StateIdle)
	return nil
}

// Release tears down the output device. The Player cannot be reused after
// Release.
func (p *Player) Release() error {
	return p.sink.Close()
}

// IsPlaying reports whether the backend is actively rendering audio.
func (p *Player) IsPlaying() bool {
	return p.sink.IsPlaying()
}

// State returns the Player's last published state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	if p.state == s {
		p.mu.Unlock()
		return
	}
	p.state = s
	fn := p.onStateChange
	p.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
