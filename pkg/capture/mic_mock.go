package capture

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockMicConfig configures the synthetic waveform a MockMic generates, the
// way pkg/audioio.WithSineWave configures MockSource.
type MockMicConfig struct {
	SampleRate     int
	BufferDuration time.Duration
	Frequency      float64 // Hz, 0 = silence
	Amplitude      float64 // 0.0 to 1.0
}

// DefaultMockMicConfig returns a silence-generating configuration at the
// Gemini Live input rate.
func DefaultMockMicConfig() MockMicConfig {
	return MockMicConfig{
		SampleRate:     16000,
		BufferDuration: 20 * time.Millisecond,
		Frequency:      0,
		Amplitude:      0.5,
	}
}

// MockMic generates synthetic PCM16 audio for tests and CI, the way
// pkg/audioio.MockSource generates sine-wave or silent chunks.
type MockMic struct {
	cfg    MockMicConfig
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}

	chunksRead atomic.Int64
	phase      float64
}

// NewMockMic creates a mock microphone source.
func NewMockMic(cfg MockMicConfig, logger *slog.Logger) *MockMic {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockMic{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan AudioChunk, 10),
		stopCh:   make(chan struct{}),
	}
}

func (m *MockMic) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan AudioChunk, 10)

	go m.generateLoop(ctx)
	return nil
}

func (m *MockMic) generateLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.BufferDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			chunk := m.generateChunk()
			select {
			case m.streamCh <- chunk:
				m.chunksRead.Add(1)
			default:
				m.logger.Debug("mock mic: buffer full, dropping chunk")
			}
		}
	}
}

func (m *MockMic) generateChunk() AudioChunk {
	samples := int(float64(m.cfg.SampleRate) * m.cfg.BufferDuration.Seconds())
	pcm := make([]byte, samples*2)

	if m.cfg.Frequency > 0 {
		for i := 0; i < samples; i++ {
			v := m.cfg.Amplitude * math.Sin(2*math.Pi*m.cfg.Frequency*m.phase/float64(m.cfg.SampleRate))
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))

			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}

	return AudioChunk{PCM: pcm, SampleRate: m.cfg.SampleRate}
}

func (m *MockMic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	close(m.streamCh)
	return nil
}

func (m *MockMic) Stream() <-chan AudioChunk { return m.streamCh }

func (m *MockMic) Name() string { return "mock" }

func (m *MockMic) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

var _ MicSource = (*MockMic)(nil)
