// ABOUTME: Tests for the WebSocket bridge against a scripted executor
// ABOUTME: Covers handshake, status routing, and call result correlation

package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/pkg/media"
	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// testExecutor is a scripted WebSocket endpoint standing in for a daemon.
type testExecutor struct {
	t        *testing.T
	server   *httptest.Server
	caps     protocol.Capabilities
	requests chan protocol.Request
	conns    chan *websocket.Conn
}

func newTestExecutor(t *testing.T, caps protocol.Capabilities) *testExecutor {
	t.Helper()

	te := &testExecutor{
		t:        t,
		caps:     caps,
		requests: make(chan protocol.Request, 16),
		conns:    make(chan *websocket.Conn, 1),
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	te.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		te.conns <- conn

		// Handshake: expect client/hello, reply server/hello.
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("failed to read client/hello: %v", err)
			return
		}
		if msg.Type != "client/hello" {
			t.Errorf("expected client/hello, got %s", msg.Type)
		}
		hello := protocol.ServerHello{
			ServerID:     "test-executor",
			Name:         "test",
			Version:      1,
			Capabilities: caps,
		}
		if err := conn.WriteJSON(protocol.Message{Type: "server/hello", Payload: hello}); err != nil {
			t.Errorf("failed to send server/hello: %v", err)
			return
		}

		for {
			var m protocol.Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			if m.Type != "media/request" {
				continue
			}
			payload, _ := json.Marshal(m.Payload)
			var req protocol.Request
			if err := json.Unmarshal(payload, &req); err != nil {
				t.Errorf("failed to parse request payload: %v", err)
				continue
			}
			te.requests <- req
		}
	}))
	t.Cleanup(te.server.Close)

	return te
}

func (te *testExecutor) addr() string {
	return strings.TrimPrefix(te.server.URL, "http://")
}

func (te *testExecutor) conn() *websocket.Conn {
	select {
	case c := <-te.conns:
		te.conns <- c
		return c
	case <-time.After(2 * time.Second):
		te.t.Fatal("no connection established")
		return nil
	}
}

func (te *testExecutor) push(in protocol.Inbound) {
	if err := te.conn().WriteJSON(in); err != nil {
		te.t.Fatalf("failed to push: %v", err)
	}
}

func (te *testExecutor) pushRaw(data string) {
	if err := te.conn().WriteMessage(websocket.TextMessage, []byte(data)); err != nil {
		te.t.Fatalf("failed to push raw: %v", err)
	}
}

func (te *testExecutor) nextRequest() protocol.Request {
	select {
	case req := <-te.requests:
		return req
	case <-time.After(2 * time.Second):
		te.t.Fatal("timed out waiting for request")
		return protocol.Request{}
	}
}

func connectedBridge(t *testing.T, te *testExecutor, reg *media.Registry) *Bridge {
	t.Helper()

	b := New(Config{
		ServerAddr: te.addr(),
		ClientID:   "test-client",
		Name:       "test",
		Registry:   reg,
	}, zerolog.Nop())

	if err := b.Connect(); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(b.Close)

	return b
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestConnectNegotiatesCapabilities(t *testing.T) {
	te := newTestExecutor(t, protocol.Capabilities{RecordLevels: protocol.RecordLevelsDB})
	reg := media.NewRegistry(zerolog.Nop())

	b := connectedBridge(t, te, reg)

	if !b.IsConnected() {
		t.Error("expected connected bridge")
	}
	if b.Capabilities().RecordLevels != protocol.RecordLevelsDB {
		t.Errorf("expected db record levels, got %q", b.Capabilities().RecordLevels)
	}
}

func TestCallForwardsRequest(t *testing.T) {
	te := newTestExecutor(t, protocol.Capabilities{})
	reg := media.NewRegistry(zerolog.Nop())
	b := connectedBridge(t, te, reg)

	b.Call(protocol.OpPausePlaying, []any{"h1"}, nil, nil)

	req := te.nextRequest()
	if req.Service != protocol.Service {
		t.Errorf("expected service %s, got %s", protocol.Service, req.Service)
	}
	if req.Op != protocol.OpPausePlaying {
		t.Errorf("expected pause op, got %s", req.Op)
	}
	if req.CallID != "" {
		t.Errorf("callback-free request must not carry a call id, got %q", req.CallID)
	}
	if len(req.Args) != 1 || req.Args[0] != "h1" {
		t.Errorf("unexpected args: %v", req.Args)
	}
}

func TestStatusPushReachesRegistry(t *testing.T) {
	te := newTestExecutor(t, protocol.Capabilities{})
	reg := media.NewRegistry(zerolog.Nop())
	b := connectedBridge(t, te, reg)

	var cell chanState
	m, err := media.New(reg, b, "a.mp3", media.Callbacks{
		OnStatus: func(s protocol.State) { cell.set(s) },
	})
	if err != nil {
		t.Fatalf("failed to create handle: %v", err)
	}
	te.nextRequest() // create

	te.push(protocol.Inbound{
		Action: protocol.ActionStatus,
		Status: &protocol.StatusEvent{ID: m.ID(), MsgType: protocol.MsgState, Value: int(protocol.StateRunning)},
	})

	waitFor(t, "status event", func() bool {
		return cell.get() == protocol.StateRunning
	})
}

func TestUnknownActionDoesNotKillReadLoop(t *testing.T) {
	te := newTestExecutor(t, protocol.Capabilities{})
	reg := media.NewRegistry(zerolog.Nop())
	b := connectedBridge(t, te, reg)

	var cell chanState
	m, err := media.New(reg, b, "a.mp3", media.Callbacks{
		OnStatus: func(s protocol.State) { cell.set(s) },
	})
	if err != nil {
		t.Fatalf("failed to create handle: %v", err)
	}
	te.nextRequest() // create

	te.pushRaw(`{"action":"telemetry","status":{"id":"` + m.ID() + `"}}`)
	te.push(protocol.Inbound{
		Action: protocol.ActionStatus,
		Status: &protocol.StatusEvent{ID: m.ID(), MsgType: protocol.MsgState, Value: int(protocol.StatePaused)},
	})

	waitFor(t, "status event after unknown action", func() bool {
		return cell.get() == protocol.StatePaused
	})
	if !b.IsConnected() {
		t.Error("unknown action must not disconnect the bridge")
	}
}

func TestCallResultCorrelation(t *testing.T) {
	te := newTestExecutor(t, protocol.Capabilities{})
	reg := media.NewRegistry(zerolog.Nop())
	b := connectedBridge(t, te, reg)

	results := make(chan any, 1)
	b.Call(protocol.OpGetCurrentPosition, []any{"h1"},
		func(value any) { results <- value },
		func(err error) { t.Errorf("unexpected failure: %v", err) })

	req := te.nextRequest()
	if req.CallID == "" {
		t.Fatal("expected a call id on a request with callbacks")
	}

	te.push(protocol.Inbound{
		Action: protocol.ActionResult,
		Result: &protocol.CallResult{CallID: req.CallID, OK: true, Value: 4200.0},
	})

	select {
	case value := <-results:
		if ms, _ := protocol.CoerceNumber(value); ms != 4200 {
			t.Errorf("expected 4200, got %v", value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestCallResultFailure(t *testing.T) {
	te := newTestExecutor(t, protocol.Capabilities{})
	reg := media.NewRegistry(zerolog.Nop())
	b := connectedBridge(t, te, reg)

	failures := make(chan error, 1)
	b.Call(protocol.OpGetCurrentPosition, []any{"h1"},
		func(value any) { t.Errorf("unexpected success: %v", value) },
		func(err error) { failures <- err })

	req := te.nextRequest()
	te.push(protocol.Inbound{
		Action: protocol.ActionResult,
		Result: &protocol.CallResult{
			CallID: req.CallID,
			OK:     false,
			Error:  &protocol.MediaError{Code: protocol.ErrAborted, Message: "no active media"},
		},
	})

	select {
	case err := <-failures:
		if protocol.AsMediaError(err).Code != protocol.ErrAborted {
			t.Errorf("expected aborted, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure")
	}
}

func TestCallWithoutConnection(t *testing.T) {
	reg := media.NewRegistry(zerolog.Nop())
	b := New(Config{ServerAddr: "127.0.0.1:1", Registry: reg}, zerolog.Nop())

	var failed error
	b.Call(protocol.OpPausePlaying, []any{"h1"}, nil, func(err error) { failed = err })

	if failed == nil {
		t.Error("expected immediate failure before Connect")
	}
}

// chanState is a tiny mutex-guarded state cell for cross-goroutine asserts.
type chanState struct {
	mu sync.Mutex
	s  protocol.State
}

func (c *chanState) set(s protocol.State) {
	c.mu.Lock()
	c.s = s
	c.mu.Unlock()
}

func (c *chanState) get() protocol.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
