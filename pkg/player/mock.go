package player

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// MockSink discards audio while tracking statistics, the way
// pkg/audioio.MockSink simulates a device without real hardware.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	paused  bool
	closed  bool
	buffer  [][]byte

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
}

// NewMockSink creates a mock playback sink for tests and CI.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{
		cfg:    cfg,
		logger: logger,
		buffer: make([][]byte, 0, 16),
	}
}

func (m *MockSink) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	m.logger.Info("mock sink initialized")
	return nil
}

func (m *MockSink) Enqueue(ctx context.Context, chunk Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if !m.running {
		return ErrNotInitialized
	}

	m.buffer = append(m.buffer, chunk.PCM)
	m.chunksWritten.Add(1)
	m.samplesWritten.Add(int64(len(chunk.PCM) / 2))
	return nil
}

func (m *MockSink) Pause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	return nil
}

func (m *MockSink) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	return nil
}

// Flush discards buffered audio immediately, the way MockSink.Clear drops
// its buffer rather than MockSink.Flush's simulated-wait drain: a Player
// barge-in must never let stale audio render.
func (m *MockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buffer = m.buffer[:0]
	m.paused = false
	return nil
}

func (m *MockSink) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running && !m.paused && len(m.buffer) > 0
}

func (m *MockSink) Name() string { return "mock" }

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.running = false
	m.buffer = nil
	return nil
}

// bufferedSamples reports samples currently queued, mirroring
// pkg/audioio.SinkStats.BufferedSamples for test assertions.
func (m *MockSink) bufferedSamples() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, b := range m.buffer {
		n += int64(len(b) / 2)
	}
	return n
}

var _ Sink = (*MockSink)(nil)
