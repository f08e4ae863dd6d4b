package player

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// ExecSink streams PCM to an external player process over its stdin, the
// way pkg/audio.Player feeds a GStreamer pipeline via a stdin pipe. Unlike
// that SSH-tunneled robot-specific pipeline, ExecSink runs Config.ExecCommand
// directly on the local host, so it works with any stdin-fed raw-PCM player
// (aplay, sox, ffplay -f s16le).
type ExecSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	playing bool
	paused  bool
	closed  bool
}

// NewExecSink creates a sink that pipes PCM to an external process.
func NewExecSink(cfg Config, logger *slog.Logger) *ExecSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSink{cfg: cfg, logger: logger}
}

func (s *ExecSink) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	return s.startLocked()
}

// startLocked spawns the player process. Must be called with mu held.
func (s *ExecSink) startLocked() error {
	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.cfg.ExecCommand[0], s.cfg.ExecCommand[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &BackendError{Backend: "exec", Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return &BackendError{Backend: "exec", Cause: err}
	}

	s.cmd = cmd
	s.stdin = stdin
	return nil
}

func (s *ExecSink) Enqueue(ctx context.Context, chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.paused {
		return nil
	}
	if s.cmd == nil {
		if err := s.startLocked(); err != nil {
			return err
		}
	}

	if _, err := s.stdin.Write(chunk.PCM); err != nil {
		s.stopLocked()
		return &BackendError{Backend: "exec", Cause: err}
	}
	s.playing = true
	return nil
}

func (s *ExecSink) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	return nil
}

func (s *ExecSink) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	return nil
}

// Flush kills the player process immediately, guaranteeing nothing
// already written to its stdin is rendered past this point, then clears
// state so the next Enqueue starts a fresh process.
func (s *ExecSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.paused = false
	return nil
}

// stopLocked terminates the player process. Must be called with mu held.
func (s *ExecSink) stopLocked() {
	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.cmd = nil
	s.playing = false
}

func (s *ExecSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && !s.paused
}

func (s *ExecSink) Name() string { return "exec" }

func (s *ExecSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stopLocked()
	return nil
}

var _ Sink = (*ExecSink)(nil)
