package capture

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// ExecMicConfig configures a microphone source backed by an external
// recorder process (e.g. arecord), the mirror image of
// pkg/player.Config's ExecCommand for playback.
type ExecMicConfig struct {
	SampleRate  int
	ChunkFrames int
	Command     []string
}

// DefaultExecMicConfig returns a Config matching the Gemini Live input
// format, reading via ALSA's arecord at ~100ms chunks.
func DefaultExecMicConfig() ExecMicConfig {
	return ExecMicConfig{
		SampleRate:  16000,
		ChunkFrames: 1600, // 100ms at 16kHz
		Command:     []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"},
	}
}

// ExecMic streams PCM16 audio from an external recorder process's stdout,
// the way pkg/audio.Player streams PCM to an external player's stdin.
type ExecMic struct {
	cfg    ExecMicConfig
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	cmd      *exec.Cmd
	streamCh chan AudioChunk
	stopCh   chan struct{}
}

// NewExecMic creates a microphone source backed by an external recorder
// process.
func NewExecMic(cfg ExecMicConfig, logger *slog.Logger) *ExecMic {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecMic{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan AudioChunk, 10),
		stopCh:   make(chan struct{}),
	}
}

func (m *ExecMic) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}
	if len(m.cfg.Command) == 0 {
		return &DeviceError{Source: "exec", Cause: errExecMicNoCommand}
	}

	cmd := exec.CommandContext(ctx, m.cfg.Command[0], m.cfg.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &DeviceError{Source: "exec", Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return &DeviceError{Source: "exec", Cause: err}
	}

	m.cmd = cmd
	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan AudioChunk, 10)

	go m.readLoop(bufio.NewReader(stdout))
	m.logger.Info("exec mic started", "command", m.cfg.Command[0])
	return nil
}

func (m *ExecMic) readLoop(r *bufio.Reader) {
	frameBytes := m.cfg.ChunkFrames * 2
	buf := make([]byte, frameBytes)

	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			m.Stop()
			return
		}

		chunk := AudioChunk{PCM: append([]byte(nil), buf...), SampleRate: m.cfg.SampleRate}
		select {
		case m.streamCh <- chunk:
		case <-m.stopCh:
			return
		default:
			m.logger.Debug("exec mic: buffer full, dropping chunk")
		}
	}
}

func (m *ExecMic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
	}
	close(m.stopCh)
	close(m.streamCh)
	return nil
}

func (m *ExecMic) Stream() <-chan AudioChunk { return m.streamCh }

func (m *ExecMic) Name() string { return "exec" }

func (m *ExecMic) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

var _ MicSource = (*ExecMic)(nil)
