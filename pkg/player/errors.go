package player

import "errors"

var (
	errConfigSampleRate     = errors.New("player: sample rate must be positive")
	errConfigChannels       = errors.New("player: channels must be positive")
	errConfigBufferDuration = errors.New("player: buffer duration must be positive")
	errConfigExecCommand    = errors.New("player: exec backend requires a command")

	// ErrClosed names a released player. The bundled sinks do not return
	// it: after Release, MockSink and ExecSink return io.ErrClosedPipe from
	// Enqueue, and Pause/Resume/Flush return nil.
	ErrClosed = errors.New("player: released")

	// ErrNotInitialized is returned by MockSink.Enqueue when it is called
	// before Initialize. ExecSink does not return it; its Enqueue starts the
	// player process on first use instead.
	ErrNotInitialized = errors.New("player: not initialized")
)

// BackendError wraps a failure from the underlying output device, the way
// SPEC_FULL.md §7 models playback-device failures distinctly from
// transport and protocol errors.
type BackendError struct {
	Backend string
	Cause   error
}

func (e *BackendError) Error() string {
	return "player: " + e.Backend + " backend: " + e.Cause.Error()
}

func (e *BackendError) Unwrap() error { return e.Cause }
