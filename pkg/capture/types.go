// Package capture defines the microphone and camera source interfaces the
// coordinator consumes, plus Mock and local-hardware backends. Platform
// capture drivers are out of this repository's scope per the
// specification; these interfaces are the seam the coordinator is built
// against, the way pkg/audioio.Source separates capture from its callers.
package capture

import (
	"context"
	"io"
)

// AudioChunk is a buffer of PCM16 little-endian mono samples captured from
// a microphone.
type AudioChunk struct {
	PCM        []byte
	SampleRate int
}

// MicSource captures microphone audio, the way pkg/audioio.Source
// captures from ALSA/CoreAudio/Mock.
type MicSource interface {
	Start(ctx context.Context) error
	Stop() error

	// Stream returns a channel of audio chunks. Closed when the source
	// stops.
	Stream() <-chan AudioChunk

	Name() string
	io.Closer
}

// Frame is a single captured camera frame, JPEG-encoded, matching the wire
// codec's image media type.
type Frame struct {
	JPEG []byte
}

// CameraSource captures camera frames, generalizing
// pkg/vision.Provider's single CaptureFrame() call into the same
// Start/Stream/Stop streaming shape as MicSource so the coordinator can
// treat both capture sources uniformly.
type CameraSource interface {
	Start(ctx context.Context) error
	Stop() error

	// Stream returns a channel of captured frames. Closed when the
	// source stops.
	Stream() <-chan Frame

	Name() string
	io.Closer
}
