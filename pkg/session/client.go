// Package session owns the bidirectional transport to the remote live
// session endpoint: connect lifecycle, the setup handshake, framed
// send/receive, and reconnection with exponential backoff.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teslashibe/assistant-core/internal/httpc"
	"github.com/teslashibe/assistant-core/pkg/wire"
)

// Client owns one physical-connection-at-a-time session to the remote
// model. Create with New, then Connect before sending media.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu                sync.RWMutex
	conn              *websocket.Conn
	state             ConnectionState
	systemInstruction string
	closing           bool

	cancel context.CancelFunc

	writeMu sync.Mutex

	pcmCh   chan []byte
	eventCh chan Event

	onStateChange func(ConnectionState)
	onToolCall    func(ToolCall)

	reconnectWG sync.WaitGroup
}

// New constructs a Client in the Disconnected state.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	return &Client{
		cfg:     cfg,
		logger:  logger,
		state:   disconnected(),
		pcmCh:   make(chan []byte, 32),
		eventCh: make(chan Event, 32),
	}
}

// PCM returns the channel of decoded model audio bytes.
func (c *Client) PCM() <-chan []byte { return c.pcmCh }

// Events returns the session event stream.
func (c *Client) Events() <-chan Event { return c.eventCh }

// OnStateChange registers a callback invoked whenever the connection state
// changes. Must be set before Connect to avoid missing early transitions.
func (c *Client) OnStateChange(fn func(ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// OnToolCall registers a callback invoked when the model requests a tool
// invocation.
func (c *Client) OnToolCall(fn func(ToolCall)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onToolCall = fn
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	c.state = s
	cb := c.onStateChange
	c.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

func (c *Client) emit(kind EventKind) {
	select {
	case c.eventCh <- Event{Kind: kind}:
	default:
		c.logger.Warn("event channel full, dropping event", "kind", kind.String())
	}
}

// Connect opens the transport and performs the setup handshake. Idempotent:
// a call while already active is a no-op warning, per the session contract.
func (c *Client) Connect(ctx context.Context, systemInstruction string) error {
	cur := c.State()
	if cur.Kind != StateDisconnected && cur.Kind != StateError {
		c.logger.Warn("connect called while already active", "state", cur.String())
		return nil
	}

	connCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.closing = false
	c.systemInstruction = systemInstruction
	c.mu.Unlock()

	return c.dialAndHandshake(connCtx, systemInstruction)
}

func (c *Client) dialAndHandshake(ctx context.Context, systemInstruction string) error {
	c.setState(connecting())

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(errored("failed to open transport", err))
		return NewTransportError("dial failed", err, true)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(initializing())

	setupMsg := wire.BuildSetup(c.cfg.Model, c.cfg.Voice, systemInstruction)
	if err := c.writeFrame(setupMsg); err != nil {
		c.setState(errored("failed to send setup frame", err))
		return NewTransportError("setup write failed", err, true)
	}

	go c.readLoop(ctx)

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialURL, header, err := c.buildDialTarget(ctx)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, dialURL, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// buildDialTarget resolves the dial URL and auth header, implementing the
// two credential branches of SPEC_FULL.md §4.2/§6: a direct "key" query
// parameter, or Application Default Credentials as a Bearer token when no
// direct credential is configured.
func (c *Client) buildDialTarget(ctx context.Context) (string, http.Header, error) {
	base := c.cfg.Endpoint + "/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	if c.cfg.Credential != "" {
		u, err := url.Parse(base)
		if err != nil {
			return "", nil, fmt.Errorf("session: invalid endpoint: %w", err)
		}
		q := u.Query()
		q.Set("key", c.cfg.Credential)
		u.RawQuery = q.Encode()
		return u.String(), nil, nil
	}

	adcCtx := context.WithValue(ctx, oauth2.HTTPClient, httpc.Client)
	creds, err := google.FindDefaultCredentialsWithParams(adcCtx, google.CredentialsParams{
		Scopes: []string{"https://www.googleapis.com/auth/generative-language"},
	})
	if err != nil {
		return "", nil, fmt.Errorf("session: resolving default credentials: %w", err)
	}
	tok, err := creds.TokenSource.Token()
	if err != nil {
		return "", nil, fmt.Errorf("session: fetching token: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok.AccessToken)
	return base, header, nil
}

func (c *Client) writeFrame(msg wire.ClientMessage) error {
	b, err := wire.EncodeClient(msg)
	if err != nil {
		return err
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// SendMedia assembles a realtime-input frame with the provided chunks.
// Accepted only when canSendMessages; empty input is a no-op.
func (c *Client) SendMedia(audio []byte, image []byte) error {
	state := c.State()
	if !state.CanSendMessages() {
		c.logger.Warn("send_media dropped", "state", state.String())
		return nil
	}

	msg, ok := wire.BuildMedia(audio, wire.AudioMIMEType, image, wire.ImageMIMEType)
	if !ok {
		return nil
	}
	return c.writeFrame(msg)
}

// SendActivityStart encodes the activity_start marker when canSendMessages;
// otherwise drops silently.
func (c *Client) SendActivityStart() error {
	state := c.State()
	if !state.CanSendMessages() {
		return nil
	}
	return c.writeFrame(wire.BuildActivityStart())
}

// SendActivityEnd encodes the activity_end marker when canSendMessages;
// otherwise drops silently.
func (c *Client) SendActivityEnd() error {
	state := c.State()
	if !state.CanSendMessages() {
		return nil
	}
	return c.writeFrame(wire.BuildActivityEnd())
}

// SignalInterruption is purely local: it publishes an Interrupted event. No
// frame is sent; the remote infers interruption when the client starts a
// new activity while a model turn is in flight.
func (c *Client) SignalInterruption() {
	c.emit(EventInterrupted)
}

// SubmitToolResult returns a tool call's result to the model.
func (c *Client) SubmitToolResult(callID, name, result string) error {
	state := c.State()
	if !state.CanSendMessages() {
		c.logger.Warn("submit_tool_result dropped", "state", state.String())
		return nil
	}
	msg := wire.BuildToolResponse(callID, name, map[string]any{"result": result})
	return c.writeFrame(msg)
}

// Disconnect cancels reconnection, closes the transport with status 1000
// and reason "client closing", and transitions to Disconnected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.reconnectWG.Wait()

	if conn != nil {
		deadline := time.Now().Add(5 * time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"),
			deadline)
		_ = conn.Close()
	}

	c.setState(disconnected())
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		if c.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(ctx, err)
			return
		}

		msg, err := wire.DecodeServer(data)
		if err != nil {
			c.logger.Warn("dropping frame", "error", err)
			continue
		}
		c.handleServerMessage(msg)
	}
}

func (c *Client) handleReadError(ctx context.Context, err error) {
	c.mu.RLock()
	closing := c.closing
	c.mu.RUnlock()

	if closing || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.setState(disconnected())
		return
	}

	c.logger.Warn("transport read failed, scheduling reconnect", "error", err)
	c.scheduleReconnect(ctx)
}

func (c *Client) handleServerMessage(msg wire.ServerMessage) {
	switch {
	case msg.SetupComplete != nil:
		if c.State().Kind != StateInitializing {
			c.logger.Warn("setupComplete received outside Initializing, ignoring", "state", c.State().String())
			return
		}
		c.setState(connected())
		c.emit(EventReady)

	case msg.ServerContent != nil:
		c.handleServerContent(msg.ServerContent)

	case msg.ToolCall != nil:
		c.mu.RLock()
		cb := c.onToolCall
		c.mu.RUnlock()
		if cb == nil {
			return
		}
		for _, fc := range msg.ToolCall.FunctionCalls {
			cb(ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}

	default:
		// Other variants (usageMetadata, goAway, sessionResumptionUpdate,
		// transcriptions, toolCallCancellation) are accepted and ignored
		// by the core, per SPEC_FULL.md §4.2 point 5.
	}
}

func (c *Client) handleServerContent(sc *wire.ServerContent) {
	if sc.Interrupted {
		c.emit(EventInterrupted)
		return
	}

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil {
				continue // text parts are logged only
			}
			if !wire.IsAudioMIME(part.InlineData.MIMEType) {
				continue
			}
			pcm, err := wire.DecodeBase64(part.InlineData.Data)
			if err != nil {
				c.logger.Warn("dropping malformed audio part", "error", err)
				continue
			}
			if c.State().Kind == StateConnected {
				c.setState(streaming())
			}
			select {
			case c.pcmCh <- pcm:
			default:
				c.logger.Warn("pcm channel full, dropping chunk")
			}
		}
	}

	if sc.TurnComplete {
		c.setState(connected())
		c.emit(EventTurnComplete)
	}
}

// scheduleReconnect runs the reconnection loop: up to ReconnectMaxAttempts
// attempts, waiting BASE_DELAY*2^(n-1) capped at 30s between attempts, each
// repeating the full setup handshake with the cached system instruction.
func (c *Client) scheduleReconnect(ctx context.Context) {
	c.reconnectWG.Add(1)
	go func() {
		defer c.reconnectWG.Done()

		// correlationID ties every attempt and log line in this reconnection
		// sequence together, since a dropped transport can trigger several
		// sequences back to back.
		correlationID := uuid.New().String()

		max := c.cfg.ReconnectMaxAttempts
		base := c.cfg.ReconnectBaseDelay

		c.mu.RLock()
		instruction := c.systemInstruction
		c.mu.RUnlock()

		for attempt := 1; attempt <= max; attempt++ {
			c.setState(reconnecting(attempt, max))

			delay := backoffDelay(base, attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := c.dialAndHandshake(ctx, instruction); err != nil {
				c.logger.Warn("reconnect attempt failed", "correlation_id", correlationID, "attempt", attempt, "error", err)
				continue
			}
			return
		}

		c.logger.Warn("max reconnection attempts reached", "correlation_id", correlationID, "attempts", max)
		c.setState(errored("Max reconnection attempts reached", nil))
		c.emit(EventConnectionLost)
	}()
}
