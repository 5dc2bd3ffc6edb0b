package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer is a minimal upstream: it records frames the client sends
// and lets tests push frames down.
type wsServer struct {
	t  *testing.T
	ts *httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []Frame
	dials    int
}

func newWSServer(t *testing.T) *wsServer {
	s := &wsServer{t: t}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.dials++
		s.mu.Unlock()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			if json.Unmarshal(msg, &f) == nil {
				s.mu.Lock()
				s.received = append(s.received, f)
				s.mu.Unlock()
			}
		}
	}))
	t.Cleanup(s.ts.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http")
}

func (s *wsServer) push(f Frame) {
	data, err := json.Marshal(f)
	require.NoError(s.t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.WriteMessage(websocket.TextMessage, data)
	}
}

func (s *wsServer) framesOfType(typ string) []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Frame
	for _, f := range s.received {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (s *wsServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *wsServer) dropAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func testOpts() *Options {
	return &Options{BackoffBase: 10 * time.Millisecond, BackoffMax: 50 * time.Millisecond, MaxAttempts: 3}
}

func TestConnectIsIdempotent(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.url(), testOpts())
	defer ch.Disconnect()

	require.NoError(t, ch.Connect(context.Background()))
	require.NoError(t, ch.Connect(context.Background())) // no second dial
	assert.Equal(t, StateConnected, ch.State())
	assert.Equal(t, 1, srv.dialCount())
}

func TestConcurrentConnectSharesOneAttempt(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.url(), testOpts())
	defer ch.Disconnect()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ch.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, srv.dialCount(), "two sockets dialed concurrently")
}

func TestConnectFailsAfterAttemptsExhausted(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws", testOpts())
	defer ch.Disconnect()

	err := ch.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, ch.State())
}

func TestDuplicateSubscriptionCollapse(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.url(), testOpts())
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background()))

	unsub1, err := ch.Subscribe("match-1", func(Frame) {})
	require.NoError(t, err)
	unsub2, err := ch.Subscribe("match-1", func(Frame) {})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(srv.framesOfType(FrameSubscribe)) >= 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, srv.framesOfType(FrameSubscribe), 1, "duplicate upstream subscribe")

	// Unsubscribe fires only when the last handler leaves.
	unsub1()
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, srv.framesOfType(FrameUnsubscribe))

	unsub2()
	require.Eventually(t, func() bool {
		return len(srv.framesOfType(FrameUnsubscribe)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDispatchRoutesByTopic(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.url(), testOpts())
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background()))

	got := make(chan Frame, 8)
	_, err := ch.Subscribe("match-1", func(f Frame) { got <- f })
	require.NoError(t, err)

	srv.push(Frame{Type: "score", MatchID: "match-1", Timestamp: time.Now()})
	srv.push(Frame{Type: "score", MatchID: "match-2", Timestamp: time.Now()}) // nobody listening

	select {
	case f := <-got:
		assert.Equal(t, "match-1", f.MatchID)
	case <-time.After(time.Second):
		t.Fatal("subscribed frame never dispatched")
	}

	select {
	case f := <-got:
		t.Fatalf("received frame for unsubscribed topic %s", f.MatchID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReconnectPreservesSubscriptions(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.url(), testOpts())
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background()))

	got := make(chan Frame, 8)
	_, err := ch.Subscribe("match-1", func(f Frame) { got <- f })
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(srv.framesOfType(FrameSubscribe)) == 1
	}, time.Second, 10*time.Millisecond)

	srv.dropAll()

	// The channel reconnects on its own and re-announces the topic.
	require.Eventually(t, func() bool {
		return srv.dialCount() == 2 && len(srv.framesOfType(FrameSubscribe)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	srv.push(Frame{Type: "score", MatchID: "match-1", Timestamp: time.Now()})
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("no dispatch after reconnect")
	}
}

func TestSendRequiresConnection(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.url(), testOpts())
	defer ch.Disconnect()

	err := ch.Send(Frame{Type: FrameEvent, MatchID: "match-1"})
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, ch.Connect(context.Background()))
	require.NoError(t, ch.Send(Frame{Type: FrameEvent, MatchID: "match-1"}))
	require.Eventually(t, func() bool {
		return len(srv.framesOfType(FrameEvent)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDisconnectIsFinal(t *testing.T) {
	srv := newWSServer(t)
	ch := NewChannel(srv.url(), testOpts())
	require.NoError(t, ch.Connect(context.Background()))

	ch.Disconnect()
	assert.Equal(t, StateDisconnected, ch.State())
	assert.ErrorIs(t, ch.Connect(context.Background()), ErrClosed)
	_, err := ch.Subscribe("match-1", func(Frame) {})
	assert.ErrorIs(t, err, ErrClosed)

	// No reconnect attempt after an explicit teardown.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, srv.dialCount())
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"event","matchId":"m1","data":{"id":"e1"},"ts":"2026-03-01T15:04:05Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "event", f.Type)
	assert.Equal(t, "m1", f.MatchID)

	_, err = ParseFrame([]byte(`{"matchId":"m1"}`))
	assert.Error(t, err)
	_, err = ParseFrame([]byte(`not json`))
	assert.Error(t, err)
}
