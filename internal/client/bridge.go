// ABOUTME: WebSocket bridge to a remote MediaRec executor
// ABOUTME: Handles connection, handshake, request forwarding, and status routing

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/pkg/media"
	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// Config holds bridge configuration.
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
	DeviceInfo protocol.DeviceInfo

	// Registry receives all status pushes from the executor.
	Registry *media.Registry
}

type pendingCall struct {
	success media.SuccessFunc
	failure media.FailureFunc
}

// Bridge is the executor-backed variant of media.Executor: every call is
// forwarded over a persistent WebSocket channel and outcomes are pushed back
// out of band.
type Bridge struct {
	config Config
	log    zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	caps      protocol.Capabilities

	pendingMu sync.Mutex
	pending   map[string]pendingCall

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a bridge. Connect must be called before any forwarding.
func New(config Config, logger zerolog.Logger) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		config:  config,
		log:     logger.With().Str("component", "bridge").Logger(),
		pending: make(map[string]pendingCall),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect dials the executor and performs the hello handshake. It returns
// only once the inbound status channel is live, so dependent startup can
// wait on it.
func (b *Bridge) Connect() error {
	u := url.URL{Scheme: "ws", Host: b.config.ServerAddr, Path: "/mediarec"}
	b.log.Info().Str("url", u.String()).Msg("connecting to executor")

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.connected = true
	b.mu.Unlock()

	if err := b.handshake(); err != nil {
		b.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go b.readMessages()

	return nil
}

// handshake exchanges hello messages and records the negotiated
// capabilities.
func (b *Bridge) handshake() error {
	hello := protocol.ClientHello{
		ClientID:   b.config.ClientID,
		Name:       b.config.Name,
		Version:    1,
		DeviceInfo: &b.config.DeviceInfo,
	}

	if err := b.sendJSON(protocol.Message{Type: "client/hello", Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	b.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := b.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	b.conn.SetReadDeadline(time.Time{}) // Clear deadline

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type != "server/hello" {
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	payload, _ := json.Marshal(msg.Payload)
	var serverHello protocol.ServerHello
	if err := json.Unmarshal(payload, &serverHello); err != nil {
		return fmt.Errorf("failed to parse server/hello payload: %w", err)
	}

	b.mu.Lock()
	b.caps = serverHello.Capabilities
	b.mu.Unlock()

	b.log.Info().Str("server", serverHello.Name).
		Str("record_levels", serverHello.Capabilities.RecordLevels).
		Msg("handshake complete")

	return nil
}

// Capabilities returns what the executor negotiated at handshake time.
func (b *Bridge) Capabilities() protocol.Capabilities {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caps
}

// Call forwards one operation. When either callback is supplied the request
// carries a call id and the matching result push resolves it, exactly once.
func (b *Bridge) Call(op protocol.Op, args []any, success media.SuccessFunc, failure media.FailureFunc) {
	req := protocol.Request{
		Service: protocol.Service,
		Op:      op,
		Args:    args,
	}

	if success != nil || failure != nil {
		req.CallID = uuid.New().String()
		b.pendingMu.Lock()
		b.pending[req.CallID] = pendingCall{success: success, failure: failure}
		b.pendingMu.Unlock()
	}

	if err := b.sendJSON(protocol.Message{Type: "media/request", Payload: req}); err != nil {
		if req.CallID != "" {
			b.pendingMu.Lock()
			delete(b.pending, req.CallID)
			b.pendingMu.Unlock()
		}
		if failure != nil {
			failure(err)
		}
	}
}

func (b *Bridge) sendJSON(msg protocol.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return fmt.Errorf("not connected")
	}
	return b.conn.WriteJSON(msg)
}

// readMessages pumps inbound pushes into the registry. An unrecognized
// action fails that message only; the loop keeps serving later pushes.
func (b *Bridge) readMessages() {
	defer b.Close()

	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}

		_, data, err := b.conn.ReadMessage()
		if err != nil {
			b.log.Debug().Err(err).Msg("read error")
			return
		}

		in, err := protocol.DecodeInbound(data)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownAction) {
				b.log.Error().Err(err).Msg("protocol mismatch on inbound message")
			} else {
				b.log.Warn().Err(err).Msg("failed to decode inbound message")
			}
			continue
		}

		switch in.Action {
		case protocol.ActionStatus:
			b.config.Registry.Dispatch(in.Status.ID, in.Status.MsgType, in.Status.Value)
		case protocol.ActionResult:
			b.resolveCall(in.Result)
		}
	}
}

// resolveCall delivers the terminal outcome for a pending call.
func (b *Bridge) resolveCall(res *protocol.CallResult) {
	b.pendingMu.Lock()
	call, ok := b.pending[res.CallID]
	delete(b.pending, res.CallID)
	b.pendingMu.Unlock()

	if !ok {
		b.log.Debug().Str("call_id", res.CallID).Msg("result for unknown call")
		return
	}

	if res.OK {
		if call.success != nil {
			call.success(res.Value)
		}
		return
	}

	if call.failure != nil {
		err := res.Error
		if err == nil {
			err = &protocol.MediaError{Code: protocol.ErrAborted, Message: "call failed"}
		}
		call.failure(err)
	}
}

// Close closes the connection.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		b.connected = false
		b.cancel()
		b.conn.Close()
		b.log.Info().Msg("connection closed")
	}
}

// IsConnected returns connection status.
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}
