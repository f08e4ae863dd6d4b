// Package player streams synthesized audio to an output device with
// immediate-interrupt (barge-in) semantics: Flush guarantees that no chunk
// enqueued before it returns is ever rendered.
package player

import "time"

// Backend selects which Sink implementation backs a Player.
type Backend string

const (
	// BackendAuto is the default Backend value. Nothing in this package
	// selects a Sink from it; the caller passes the Sink to New.
	BackendAuto Backend = "auto"
	// BackendMock discards audio while tracking statistics, for CI/testing.
	BackendMock Backend = "mock"
	// BackendExec pipes PCM to an external player process (e.g. aplay, sox).
	BackendExec Backend = "exec"
)

// Config holds the output device configuration, the way
// pkg/audioio.Config configures capture/playback streams.
type Config struct {
	// Backend selects the Sink implementation.
	Backend Backend

	// SampleRate is the output sample rate in Hz. The Gemini Live model
	// streams PCM16 audio at 24kHz, per SPEC_FULL.md §3.
	SampleRate int

	// Channels is the number of output channels. 1 (mono).
	Channels int

	// BufferDuration is the period BufferSize is computed from. The
	// bundled sinks do not size a device buffer from it: MockSink's buffer
	// is unbounded and ExecSink leaves buffering to the external process.
	BufferDuration time.Duration

	// Device is a platform-specific output device identifier. Neither
	// bundled sink reads it; ExecSink runs ExecCommand as given.
	Device string

	// ExecCommand is the external player command used by BackendExec,
	// e.g. []string{"aplay", "-f", "S16_LE", "-r", "24000", "-c", "1"}.
	ExecCommand []string
}

// DefaultConfig returns a Config matching the Gemini Live output format.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     24000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
		ExecCommand:    []string{"aplay", "-q", "-f", "S16_LE", "-r", "24000", "-c", "1"},
	}
}

// Validate checks the configuration for startup errors.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return errConfigSampleRate
	}
	if c.Channels <= 0 {
		return errConfigChannels
	}
	if c.BufferDuration <= 0 {
		return errConfigBufferDuration
	}
	if c.Backend == BackendExec && len(c.ExecCommand) == 0 {
		return errConfigExecCommand
	}
	return nil
}

// BufferSize returns 2x BufferDuration's worth of samples. It is a
// computed figure only; no bundled Sink consults it.
func (c Config) BufferSize() int {
	perPeriod := int(float64(c.SampleRate) * c.BufferDuration.Seconds())
	return perPeriod * 2
}
