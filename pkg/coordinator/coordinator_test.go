package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/assistant-core/pkg/capture"
	"github.com/teslashibe/assistant-core/pkg/metrics"
	"github.com/teslashibe/assistant-core/pkg/player"
	"github.com/teslashibe/assistant-core/pkg/session"
	"github.com/teslashibe/assistant-core/pkg/vad"
)

// fakeVAD is a hysteresis-free stand-in for *vad.Engine: it never emits
// events on its own, but lets a test inject events directly and records
// Reset calls, so tests can assert VAD hidden state is cleared on a mode
// switch without loading a real ONNX model.
type fakeVAD struct {
	mu         sync.Mutex
	resets     int
	closed     bool
	lastProb   float64
	wantEvents []vad.Event
}

func (f *fakeVAD) ProcessChunk(pcm []byte) ([]vad.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.wantEvents
	f.wantEvents = nil
	return events, nil
}

func (f *fakeVAD) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeVAD) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeVAD) Active() bool { return false }

func (f *fakeVAD) LastProbability() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastProb
}

func (f *fakeVAD) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

// testServer is a minimal scripted WebSocket server standing in for the
// live model endpoint, the same harness shape pkg/session/client_test.go
// uses for its own Client tests.
type testServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	frames    []string
	conn      *websocket.Conn
	connects  int
	disconnects int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.srv = httptest.NewServer(http.HandlerFunc(ts.handle))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := ts.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ts.mu.Lock()
	ts.conn = conn
	ts.connects++
	ts.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			ts.mu.Lock()
			ts.disconnects++
			ts.mu.Unlock()
			return
		}
		ts.mu.Lock()
		ts.frames = append(ts.frames, string(data))
		ts.mu.Unlock()
	}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) send(t *testing.T, raw string) {
	t.Helper()
	require.Eventually(t, func() bool {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return ts.conn != nil
	}, time.Second, 5*time.Millisecond)

	ts.mu.Lock()
	conn := ts.conn
	ts.mu.Unlock()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (ts *testServer) framesContaining(sub string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, f := range ts.frames {
		if strings.Contains(f, sub) {
			return true
		}
	}
	return false
}

func (ts *testServer) connectCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.connects
}

func (ts *testServer) disconnectCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.disconnects
}

func newTestClient(ts *testServer) *session.Client {
	cfg := session.DefaultConfig().Apply(
		session.WithEndpoint(ts.wsURL()),
		session.WithCredential("test-key"),
		session.WithReconnect(0, time.Millisecond),
	)
	return session.New(cfg)
}

func newTestCoordinator(t *testing.T, ts *testServer, fv *fakeVAD) *Coordinator {
	t.Helper()
	return newTestCoordinatorWithMetrics(t, ts, fv, nil)
}

func newTestCoordinatorWithMetrics(t *testing.T, ts *testServer, fv *fakeVAD, mc *metrics.Collector) *Coordinator {
	t.Helper()
	sink := player.NewMockSink(player.DefaultConfig(), nil)
	pl := player.New(player.DefaultConfig(), sink, nil)
	mic := capture.NewMockMic(capture.DefaultMockMicConfig(), nil)
	cam := capture.NewMockCamera(capture.DefaultMockCameraConfig(), nil)

	return New(Deps{
		Session: newTestClient(ts),
		VAD:     fv,
		Player:  pl,
		Camera:  cam,
		Mic:     mic,
		Metrics: mc,
	})
}

func TestSwitchMode_DisconnectsResetsAndReconnects(t *testing.T) {
	ts := newTestServer(t)
	fv := &fakeVAD{}
	co := newTestCoordinator(t, ts, fv)

	require.NoError(t, co.Start(context.Background(), ModeSocial))

	require.Eventually(t, func() bool {
		return ts.framesContaining(socialInstruction)
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, ts.connectCount())

	require.NoError(t, co.SwitchMode(context.Background(), ModeMirror))

	require.Eventually(t, func() bool {
		return ts.connectCount() == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, ts.disconnectCount())
	require.True(t, ts.framesContaining(mirrorInstruction))
	require.Equal(t, 1, fv.resetCount())

	require.NoError(t, co.Stop())
}

func TestSwitchMode_NoopWhenModeUnchanged(t *testing.T) {
	ts := newTestServer(t)
	fv := &fakeVAD{}
	co := newTestCoordinator(t, ts, fv)

	require.NoError(t, co.Start(context.Background(), ModeSocial))
	require.Eventually(t, func() bool {
		return ts.connectCount() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, co.SwitchMode(context.Background(), ModeSocial))

	require.Equal(t, 1, ts.connectCount())
	require.Equal(t, 0, fv.resetCount())

	require.NoError(t, co.Stop())
}

func TestStart_RejectsDoubleStart(t *testing.T) {
	ts := newTestServer(t)
	fv := &fakeVAD{}
	co := newTestCoordinator(t, ts, fv)

	require.NoError(t, co.Start(context.Background(), ModeSocial))
	require.ErrorIs(t, co.Start(context.Background(), ModeSocial), ErrAlreadyRunning)
	require.NoError(t, co.Stop())
}

func TestDeriveState(t *testing.T) {
	errState := session.ConnectionState{Kind: session.StateError, Message: "boom"}
	connecting := session.ConnectionState{Kind: session.StateConnecting}
	initializing := session.ConnectionState{Kind: session.StateInitializing}
	reconnecting := session.ConnectionState{Kind: session.StateReconnecting, Attempt: 1, Max: 3}
	connected := session.ConnectionState{Kind: session.StateConnected}
	streaming := session.ConnectionState{Kind: session.StateStreaming}
	disconnected := session.ConnectionState{Kind: session.StateDisconnected}

	cases := []struct {
		name       string
		conn       session.ConnectionState
		isPlaying  bool
		isSpeaking bool
		want       State
	}{
		{"error takes precedence over everything", errState, true, true, StateError},
		{"connecting", connecting, false, false, StateConnecting},
		{"initializing", initializing, false, false, StateConnecting},
		{"reconnecting", reconnecting, true, true, StateConnecting},
		{"user speaking beats playing", connected, true, true, StateUserSpeaking},
		{"playing beats listening", connected, true, false, StateSpeaking},
		{"connected idle is listening", connected, false, false, StateListening},
		{"streaming idle is listening too", streaming, false, false, StateListening},
		{"disconnected with nothing else is idle", disconnected, false, false, StateIdle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, deriveState(tc.conn, tc.isPlaying, tc.isSpeaking))
		})
	}
}

func TestRegisterTool_RoundTrip(t *testing.T) {
	ts := newTestServer(t)
	fv := &fakeVAD{}
	co := newTestCoordinator(t, ts, fv)

	called := make(chan map[string]any, 1)
	co.RegisterTool(Tool{
		Name: "get_time",
		Handler: func(args map[string]any) (string, error) {
			called <- args
			return "12:00", nil
		},
	})

	require.NoError(t, co.Start(context.Background(), ModeSocial))
	require.Eventually(t, func() bool {
		return ts.connectCount() == 1
	}, time.Second, 5*time.Millisecond)
	ts.send(t, `{"setupComplete":{"model":"m"}}`)

	ts.send(t, `{"toolCall":{"function_calls":[{"id":"call-1","name":"get_time","args":{}}]}}`)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected tool handler to be invoked")
	}

	require.Eventually(t, func() bool {
		return ts.framesContaining(`"id":"call-1"`)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, co.Stop())
}

func TestEventHandler_TurnCompleteFinalizesMetrics(t *testing.T) {
	ts := newTestServer(t)
	fv := &fakeVAD{}
	mc := metrics.New(10)

	updates := make(chan metrics.Turn, 1)
	mc.OnUpdate(func(turn metrics.Turn) {
		select {
		case updates <- turn:
		default:
		}
	})

	co := newTestCoordinatorWithMetrics(t, ts, fv, mc)

	require.NoError(t, co.Start(context.Background(), ModeSocial))
	require.Eventually(t, func() bool {
		return ts.connectCount() == 1
	}, time.Second, 5*time.Millisecond)
	ts.send(t, `{"setupComplete":{"model":"m"}}`)

	ts.send(t, `{"serverContent":{"turn_complete":true}}`)

	select {
	case turn := <-updates:
		require.False(t, turn.ResponseDoneTime.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected OnUpdate to fire after turn_complete")
	}

	require.NoError(t, co.Stop())
}
