package session

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
)

// testServer is a minimal scripted WebSocket server standing in for the
// live model endpoint, grounded on the standard net/http/httptest +
// gorilla/websocket upgrader pattern.
type testServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	frames []string
	conn   *websocket.Conn
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
	ts.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
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

func newTestClient(ts *testServer) *Client {
	cfg := DefaultConfig().Apply(
		WithEndpoint(ts.wsURL()),
		WithCredential("test-key"),
		WithReconnect(3, 10*time.Millisecond),
	)
	return New(cfg)
}

func TestConnect_SetupAcknowledged(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts)

	require.NoError(t, c.Connect(context.Background(), "be terse"))

	require.Eventually(t, func() bool {
		return ts.framesContaining(`"setup"`)
	}, time.Second, 5*time.Millisecond)
	require.True(t, ts.framesContaining(`"model"`))
	require.True(t, ts.framesContaining(`"response_modalities":["AUDIO"]`))
	require.True(t, ts.framesContaining(`"automatic_activity_detection":{"disabled":true}`))

	ts.send(t, `{"setupComplete":{"model":"m"}}`)

	require.Eventually(t, func() bool {
		return c.State().Kind == StateConnected
	}, time.Second, 5*time.Millisecond)

	select {
	case ev := <-c.Events():
		require.Equal(t, EventReady, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected Ready event")
	}
}

func TestAudioResponseStreamed(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts)
	require.NoError(t, c.Connect(context.Background(), "be terse"))
	ts.send(t, `{"setupComplete":{"model":"m"}}`)
	require.Eventually(t, func() bool { return c.State().Kind == StateConnected }, time.Second, 5*time.Millisecond)

	ts.send(t, `{"serverContent":{"model_turn":{"parts":[{"inline_data":{"mime_type":"audio/pcm","data":"AAECAwQFBgc="}}]}}}`)

	select {
	case pcm := <-c.PCM():
		require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, pcm)
	case <-time.After(time.Second):
		t.Fatal("expected pcm chunk")
	}
	require.Eventually(t, func() bool { return c.State().Kind == StateStreaming }, time.Second, 5*time.Millisecond)

	ts.send(t, `{"serverContent":{"turn_complete":true}}`)
	require.Eventually(t, func() bool { return c.State().Kind == StateConnected }, time.Second, 5*time.Millisecond)

	select {
	case ev := <-c.Events():
		require.Equal(t, EventTurnComplete, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected TurnComplete event")
	}
}

func TestInterruptedServerFrame(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts)
	require.NoError(t, c.Connect(context.Background(), "be terse"))
	ts.send(t, `{"setupComplete":{"model":"m"}}`)
	require.Eventually(t, func() bool { return c.State().Kind == StateConnected }, time.Second, 5*time.Millisecond)

	ts.send(t, `{"serverContent":{"interrupted":true}}`)

	select {
	case ev := <-c.Events():
		require.Equal(t, EventInterrupted, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected Interrupted event")
	}

	select {
	case <-c.PCM():
		t.Fatal("no pcm should be forwarded from an interrupted frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendMedia_DroppedWhenDisconnected(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts)

	require.NoError(t, c.SendMedia([]byte{1, 2, 3}, nil))
	require.False(t, ts.framesContaining("realtimeInput"))
}

func TestToolCallRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts)

	var got ToolCall
	called := make(chan struct{})
	c.OnToolCall(func(tc ToolCall) {
		got = tc
		close(called)
	})

	require.NoError(t, c.Connect(context.Background(), "be terse"))
	ts.send(t, `{"setupComplete":{"model":"m"}}`)
	require.Eventually(t, func() bool { return c.State().Kind == StateConnected }, time.Second, 5*time.Millisecond)

	ts.send(t, `{"toolCall":{"function_calls":[{"id":"1","name":"get_time","args":{}}]}}`)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected tool call callback")
	}
	require.Equal(t, "1", got.ID)
	require.Equal(t, "get_time", got.Name)

	require.NoError(t, c.SubmitToolResult("1", "get_time", "noon"))
	require.Eventually(t, func() bool {
		return ts.framesContaining(`"toolResponse"`) && ts.framesContaining(`"id":"1"`)
	}, time.Second, 5*time.Millisecond)
}

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	require.Equal(t, time.Second, backoffDelay(base, 1))
	require.Equal(t, 2*time.Second, backoffDelay(base, 2))
	require.Equal(t, 4*time.Second, backoffDelay(base, 3))
	require.Equal(t, 30*time.Second, backoffDelay(base, 10))
}
