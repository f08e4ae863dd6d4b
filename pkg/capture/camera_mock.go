package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MockCameraConfig configures the synthetic frames a MockCamera emits.
type MockCameraConfig struct {
	Width, Height int
	Framerate     int
}

// DefaultMockCameraConfig returns a small, fast-to-encode default.
func DefaultMockCameraConfig() MockCameraConfig {
	return MockCameraConfig{Width: 320, Height: 240, Framerate: 5}
}

// MockCamera generates solid-color JPEG frames for tests and CI, the way
// pkg/audioio.MockSource generates synthetic audio without hardware.
type MockCamera struct {
	cfg    MockCameraConfig
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan Frame
	stopCh   chan struct{}

	framesSent atomic.Int64
	tick       atomic.Uint32
}

// NewMockCamera creates a mock camera source.
func NewMockCamera(cfg MockCameraConfig, logger *slog.Logger) *MockCamera {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockCamera{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan Frame, 4),
		stopCh:   make(chan struct{}),
	}
}

func (m *MockCamera) Start(ctx context.Context) error {
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
	m.streamCh = make(chan Frame, 4)

	go m.generateLoop(ctx)
	return nil
}

func (m *MockCamera) generateLoop(ctx context.Context) {
	interval := time.Second / time.Duration(max(m.cfg.Framerate, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			frame, err := m.generateFrame()
			if err != nil {
				m.logger.Warn("mock camera: encode failed", "error", err)
				continue
			}
			select {
			case m.streamCh <- frame:
				m.framesSent.Add(1)
			default:
				m.logger.Debug("mock camera: buffer full, dropping frame")
			}
		}
	}
}

func (m *MockCamera) generateFrame() (Frame, error) {
	shade := uint8(m.tick.Add(1) % 256)
	img := image.NewRGBA(image.Rect(0, 0, m.cfg.Width, m.cfg.Height))
	fill := color.RGBA{R: shade, G: shade, B: shade, A: 255}
	for y := 0; y < m.cfg.Height; y++ {
		for x := 0; x < m.cfg.Width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return Frame{}, err
	}
	return Frame{JPEG: buf.Bytes()}, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m *MockCamera) Stop() error {
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

func (m *MockCamera) Stream() <-chan Frame { return m.streamCh }

func (m *MockCamera) Name() string { return "mock" }

func (m *MockCamera) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

var _ CameraSource = (*MockCamera)(nil)
