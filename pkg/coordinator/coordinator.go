// Package coordinator combines the wire codec, session client, VAD
// engine, and streaming player with camera/microphone capture sources
// into a single state machine, the way pkg/eva.App wires a robot's
// controllers/vision/memory/tools together via constructor injection
// (pkg/eva.ToolsConfig) behind one top-level orchestrator.
package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/assistant-core/pkg/capture"
	"github.com/teslashibe/assistant-core/pkg/metrics"
	"github.com/teslashibe/assistant-core/pkg/player"
	"github.com/teslashibe/assistant-core/pkg/session"
	"github.com/teslashibe/assistant-core/pkg/vad"
)

// vadEventBuf bounds the channel AudioForwarder uses to hand VAD events
// to VadHandler; generous enough that a burst of hysteresis transitions
// never blocks the audio-forwarding path.
const vadEventBuf = 16

// VADEngine is the subset of *vad.Engine the coordinator depends on,
// accepted as an interface so tests can substitute a fake hysteresis
// engine without loading a real ONNX model.
type VADEngine interface {
	ProcessChunk(pcm []byte) ([]vad.Event, error)
	Reset() error
	Close() error
	Active() bool
	LastProbability() float64
}

// Deps holds the coordinator's constructor-injected collaborators, the
// way pkg/eva.ToolsConfig collects a robot's controllers as a DI
// container instead of each tool constructing its own dependencies.
type Deps struct {
	Session *session.Client
	VAD     VADEngine
	Player  *player.Player
	Camera  capture.CameraSource
	Mic     capture.MicSource
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Coordinator is the Coordinator component (E): it drives the five
// long-lived tasks of SPEC_FULL.md §4.5, a sixth task finalizing per-turn
// metrics off the session's event stream, and publishes a single
// top-level state derived from the session, player, and VAD observables.
type Coordinator struct {
	deps   Deps
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	mode    Mode
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	state         State
	isSpeaking    bool
	onStateChange func(State)
	recomputeCh   chan struct{}
	vadEventCh    chan vad.Event

	toolsMu sync.Mutex
	tools   map[string]Tool
}

// New constructs a Coordinator around the given dependencies. Session,
// VAD, Player, Camera and Mic must be non-nil before Start is called;
// Metrics may be nil (no metrics are recorded) and a nil Logger defaults
// to slog.Default().
func New(deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		deps:        deps,
		logger:      logger.With("component", "coordinator"),
		state:       StateIdle,
		recomputeCh: make(chan struct{}, 1),
		vadEventCh:  make(chan vad.Event, vadEventBuf),
		tools:       make(map[string]Tool),
	}
}

// OnStateChange registers a callback invoked whenever the coordinator's
// top-level state transitions. Invoked outside any internal lock.
func (co *Coordinator) OnStateChange(fn func(State)) {
	co.mu.Lock()
	co.onStateChange = fn
	co.mu.Unlock()
}

// State returns the last published top-level state.
func (co *Coordinator) State() State {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.state
}

// SpeechProbability returns the VAD engine's latest speech probability.
func (co *Coordinator) SpeechProbability() float64 {
	return co.deps.VAD.LastProbability()
}

// ConnectionState returns the session client's current connection state.
func (co *Coordinator) ConnectionState() session.ConnectionState {
	return co.deps.Session.State()
}

// RegisterTool adds a tool the model can invoke. Must be called before
// Start.
func (co *Coordinator) RegisterTool(tool Tool) {
	co.toolsMu.Lock()
	defer co.toolsMu.Unlock()
	co.tools[tool.Name] = tool
}

// Start initializes the Player, then capture sources, then connects the
// session with the mode's system instruction, and launches the five
// long-lived tasks plus the metrics event handler. Rejected if already
// running. Start does not load or initialize the VAD engine: Deps.VAD is
// used as supplied, and Stop closes it, so a Coordinator whose VAD has
// been closed by Stop keeps that closed engine on a later Start.
func (co *Coordinator) Start(ctx context.Context, mode Mode) error {
	co.mu.Lock()
	if co.running {
		co.mu.Unlock()
		return ErrAlreadyRunning
	}
	co.running = true
	co.mode = mode
	co.mu.Unlock()

	taskCtx, cancel := context.WithCancel(ctx)
	co.mu.Lock()
	co.cancel = cancel
	co.mu.Unlock()

	if err := co.deps.Player.Initialize(taskCtx); err != nil {
		co.fail()
		return err
	}
	if err := co.deps.Camera.Start(taskCtx); err != nil {
		co.fail()
		return err
	}
	if err := co.deps.Mic.Start(taskCtx); err != nil {
		co.fail()
		return err
	}

	co.deps.Session.OnStateChange(func(session.ConnectionState) { co.signalRecompute() })
	co.deps.Session.OnToolCall(co.handleToolCall)
	co.deps.Player.OnStateChange(co.onPlayerStateChange)

	if err := co.deps.Session.Connect(taskCtx, instructionFor(mode)); err != nil {
		co.fail()
		return err
	}

	co.wg.Add(6)
	go co.cameraForwarder(taskCtx)
	go co.audioForwarder(taskCtx)
	go co.responseHandler(taskCtx)
	go co.vadHandler(taskCtx)
	go co.stateMapper(taskCtx)
	go co.eventHandler(taskCtx)

	co.signalRecompute()
	return nil
}

func (co *Coordinator) fail() {
	co.mu.Lock()
	co.running = false
	co.mu.Unlock()
}

// Stop cancels all tasks, disconnects the session, stops capture
// sources, releases the player and VAD, and transitions to Idle.
func (co *Coordinator) Stop() error {
	co.mu.Lock()
	if !co.running {
		co.mu.Unlock()
		return nil
	}
	cancel := co.cancel
	co.running = false
	co.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	co.wg.Wait()

	_ = co.deps.Session.Disconnect()
	_ = co.deps.Camera.Stop()
	_ = co.deps.Mic.Stop()
	_ = co.deps.Player.Release()
	_ = co.deps.VAD.Close()

	co.publish(StateIdle)
	return nil
}

// SwitchMode disconnects the session, resets VAD, and reconnects with
// the new mode's system instruction. No-op if the mode is unchanged.
// Capture sources are not torn down.
func (co *Coordinator) SwitchMode(ctx context.Context, mode Mode) error {
	co.mu.Lock()
	if !co.running {
		co.mu.Unlock()
		return ErrNotRunning
	}
	if co.mode == mode {
		co.mu.Unlock()
		return nil
	}
	co.mode = mode
	co.mu.Unlock()

	if err := co.deps.Session.Disconnect(); err != nil {
		return err
	}
	if err := co.deps.VAD.Reset(); err != nil {
		return err
	}
	return co.deps.Session.Connect(ctx, instructionFor(mode))
}

func (co *Coordinator) handleToolCall(call session.ToolCall) {
	co.toolsMu.Lock()
	tool, ok := co.tools[call.Name]
	co.toolsMu.Unlock()

	if co.deps.Metrics != nil {
		co.deps.Metrics.IncrementToolCalls()
	}

	if !ok {
		co.logger.Warn("tool call for unregistered tool", "name", call.Name)
		return
	}

	result, err := tool.Handler(call.Args)
	if err != nil {
		co.logger.Warn("tool handler failed", "name", call.Name, "error", err)
		result = "error: " + err.Error()
	}

	if err := co.deps.Session.SubmitToolResult(call.ID, call.Name, result); err != nil {
		co.logger.Warn("submit tool result failed", "name", call.Name, "error", err)
	}
}

func (co *Coordinator) onPlayerStateChange(s player.State) {
	if s == player.StateIdle && co.deps.Metrics != nil {
		co.deps.Metrics.MarkPlaybackEnd()
	}
	co.signalRecompute()
}

func (co *Coordinator) signalRecompute() {
	select {
	case co.recomputeCh <- struct{}{}:
	default:
	}
}

func (co *Coordinator) publish(s State) {
	co.mu.Lock()
	if co.state == s {
		co.mu.Unlock()
		return
	}
	co.state = s
	fn := co.onStateChange
	co.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
