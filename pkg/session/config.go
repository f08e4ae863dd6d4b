package session

import (
	"errors"
	"log/slog"
	"time"
)

// Config holds the tunable parameters for a Client. Defaults follow
// DefaultConfig; Apply functional options over it the way
// pkg/conversation/config.go configures its providers.
type Config struct {
	// Endpoint is the base WebSocket URL of the live session endpoint.
	Endpoint string

	// Credential is a direct API key appended as the "key" query
	// parameter. If empty, the client resolves Application Default
	// Credentials and sends a Bearer token instead.
	Credential string

	// Model is the model id string sent in the setup handshake.
	Model string

	// Voice is the prebuilt voice id sent in the setup handshake.
	Voice string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// ReconnectMaxAttempts bounds reconnection attempts per disconnect.
	ReconnectMaxAttempts int

	// ReconnectBaseDelay is the exponential backoff base, capped at 30s.
	ReconnectBaseDelay time.Duration

	Logger *slog.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithEndpoint sets the transport URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) { c.Endpoint = endpoint }
}

// WithCredential sets the direct API key credential.
func WithCredential(credential string) Option {
	return func(c *Config) { c.Credential = credential }
}

// WithModel sets the model id.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithVoice sets the prebuilt voice id.
func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

// WithReconnect sets the reconnection budget and base delay.
func WithReconnect(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Config) {
		c.ReconnectMaxAttempts = maxAttempts
		c.ReconnectBaseDelay = baseDelay
	}
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns a Config with the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:              "wss://generativelanguage.googleapis.com/ws",
		Model:                 "models/gemini-2.0-flash-live-001",
		Voice:                 "Puck",
		HandshakeTimeout:      10 * time.Second,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          10 * time.Second,
		ReconnectMaxAttempts:  5,
		ReconnectBaseDelay:    time.Second,
	}
}

// Apply applies options on top of the receiver and returns the result.
func (c Config) Apply(opts ...Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate checks the configuration for errors that would be a ConfigError
// at startup.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("session: endpoint required")
	}
	if c.Model == "" {
		return errors.New("session: model required")
	}
	if c.ReconnectMaxAttempts < 0 {
		return errors.New("session: reconnect max attempts must be >= 0")
	}
	if c.ReconnectBaseDelay < 0 {
		return errors.New("session: reconnect base delay must be >= 0")
	}
	return nil
}

// maxBackoff is the cap on reconnection delay regardless of attempt count.
const maxBackoff = 30 * time.Second

// backoffDelay returns BASE_DELAY * 2^(attempt-1), capped at maxBackoff.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
