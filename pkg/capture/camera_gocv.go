package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// GoCVCameraConfig configures a local webcam opened through OpenCV's
// VideoCapture, the way pkg/tracking/detection opens models through gocv's
// API (there for face detection; here for frame acquisition).
type GoCVCameraConfig struct {
	DeviceIndex int
	Framerate   int
	JPEGQuality int
}

// DefaultGoCVCameraConfig opens device 0 at 2fps, JPEG quality 50.
func DefaultGoCVCameraConfig() GoCVCameraConfig {
	return GoCVCameraConfig{DeviceIndex: 0, Framerate: 2, JPEGQuality: 50}
}

// GoCVCamera captures frames from a local webcam via OpenCV's VideoCapture
// and JPEG-encodes them, matching pkg/vision.Provider's CaptureFrame
// contract (returns JPEG bytes) but exposed as a Start/Stream/Stop source
// like the other capture backends.
type GoCVCamera struct {
	cfg    GoCVCameraConfig
	logger *slog.Logger

	mu       sync.Mutex
	cap      *gocv.VideoCapture
	running  bool
	closed   bool
	streamCh chan Frame
	stopCh   chan struct{}
}

// NewGoCVCamera creates a webcam source. The device is not opened until
// Start is called.
func NewGoCVCamera(cfg GoCVCameraConfig, logger *slog.Logger) *GoCVCamera {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoCVCamera{cfg: cfg, logger: logger}
}

func (c *GoCVCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return io.ErrClosedPipe
	}
	if c.running {
		return nil
	}

	cap, err := gocv.OpenVideoCapture(c.cfg.DeviceIndex)
	if err != nil {
		return &DeviceError{Source: "gocv", Cause: err}
	}

	c.cap = cap
	c.running = true
	c.stopCh = make(chan struct{})
	c.streamCh = make(chan Frame, 4)

	go c.captureLoop(ctx)
	return nil
}

func (c *GoCVCamera) captureLoop(ctx context.Context) {
	interval := time.Second / time.Duration(max(c.cfg.Framerate, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			frame, ok := c.readFrame(mat)
			if !ok {
				continue
			}
			select {
			case c.streamCh <- frame:
			default:
				c.logger.Debug("gocv camera: buffer full, dropping frame")
			}
		}
	}
}

func (c *GoCVCamera) readFrame(mat gocv.Mat) (Frame, bool) {
	c.mu.Lock()
	cap := c.cap
	c.mu.Unlock()

	if cap == nil || !cap.Read(&mat) || mat.Empty() {
		return Frame{}, false
	}

	buf, err := gocv.IMEncodeWithParams(".jpg", mat, []int{gocv.IMWriteJpegQuality, c.cfg.JPEGQuality})
	if err != nil {
		c.logger.Warn("gocv camera: encode failed", "error", err)
		return Frame{}, false
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return Frame{JPEG: jpeg}, true
}

func (c *GoCVCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	close(c.stopCh)
	close(c.streamCh)

	if c.cap != nil {
		c.cap.Close()
		c.cap = nil
	}
	return nil
}

func (c *GoCVCamera) Stream() <-chan Frame { return c.streamCh }

func (c *GoCVCamera) Name() string { return fmt.Sprintf("gocv:%d", c.cfg.DeviceIndex) }

func (c *GoCVCamera) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.Stop()
}

var _ CameraSource = (*GoCVCamera)(nil)
