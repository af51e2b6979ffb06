// ABOUTME: Per-connection session handling for the executor daemon
// ABOUTME: Decodes media requests and pushes status events back

package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/internal/engine"
	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// session is one connected bridge: a dedicated engine plus a write pump for
// out-of-band status pushes.
type session struct {
	server *Server
	conn   *websocket.Conn
	eng    *engine.Engine
	log    zerolog.Logger

	send      chan any
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(s *Server, conn *websocket.Conn) *session {
	sess := &session{
		server: s,
		conn:   conn,
		log:    s.log.With().Str("remote", conn.RemoteAddr().String()).Logger(),
		send:   make(chan any, 32),
		done:   make(chan struct{}),
	}

	sess.eng = engine.New(sess.pushStatus, sess.log, s.config.EngineOptions...)

	return sess
}

// run performs the handshake, then serves requests until the peer goes away.
func (s *session) run() {
	defer s.close()

	if err := s.handshake(); err != nil {
		s.log.Warn().Err(err).Msg("handshake failed")
		return
	}

	go s.writePump()
	s.readLoop()
}

// handshake waits for client/hello and answers with this executor's
// identity and capabilities.
func (s *session) handshake() error {
	s.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read client/hello: %w", err)
	}
	s.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse client/hello: %w", err)
	}
	if msg.Type != "client/hello" {
		return fmt.Errorf("expected client/hello, got %s", msg.Type)
	}

	payload, _ := json.Marshal(msg.Payload)
	var hello protocol.ClientHello
	if err := json.Unmarshal(payload, &hello); err != nil {
		return fmt.Errorf("failed to parse client/hello payload: %w", err)
	}

	s.log.Info().Str("client", hello.Name).Str("client_id", hello.ClientID).Msg("client connected")

	reply := protocol.Message{
		Type: "server/hello",
		Payload: protocol.ServerHello{
			ServerID:     s.server.serverID,
			Name:         s.server.config.Name,
			Version:      1,
			Capabilities: s.eng.Capabilities(),
		},
	}
	return s.conn.WriteJSON(reply)
}

// readLoop decodes and executes forwarded requests.
func (s *session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Msg("read error")
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn().Err(err).Msg("failed to parse message")
			continue
		}

		switch msg.Type {
		case "media/request":
			payload, _ := json.Marshal(msg.Payload)
			var req protocol.Request
			if err := json.Unmarshal(payload, &req); err != nil {
				s.log.Warn().Err(err).Msg("failed to parse media request")
				continue
			}
			s.handleRequest(req)

		default:
			s.log.Warn().Str("type", msg.Type).Msg("unknown message type")
		}
	}
}

// handleRequest runs one operation against the session engine, wiring a
// result push when the request carries a call id.
func (s *session) handleRequest(req protocol.Request) {
	if req.Service != protocol.Service {
		s.log.Warn().Str("service", req.Service).Str("op", string(req.Op)).
			Msg("request for unknown service")
		return
	}

	var success func(any)
	var failure func(error)
	if req.CallID != "" {
		callID := req.CallID
		success = func(value any) {
			s.push(protocol.Inbound{
				Action: protocol.ActionResult,
				Result: &protocol.CallResult{CallID: callID, OK: true, Value: value},
			})
		}
		failure = func(err error) {
			s.push(protocol.Inbound{
				Action: protocol.ActionResult,
				Result: &protocol.CallResult{CallID: callID, Error: protocol.AsMediaError(err)},
			})
		}
	}

	s.eng.Call(req.Op, req.Args, success, failure)
}

// pushStatus is the engine dispatch target.
func (s *session) pushStatus(id string, msgType protocol.MsgType, value any) {
	s.push(protocol.Inbound{
		Action: protocol.ActionStatus,
		Status: &protocol.StatusEvent{ID: id, MsgType: msgType, Value: value},
	})
}

func (s *session) push(msg any) {
	select {
	case s.send <- msg:
	default:
		s.log.Warn().Msg("send queue full, dropping push")
	}
}

// writePump serializes all outbound pushes onto the socket.
func (s *session) writePump() {
	for {
		select {
		case msg := <-s.send:
			if err := s.conn.WriteJSON(msg); err != nil {
				s.log.Debug().Err(err).Msg("write error")
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.eng.Close()
		s.conn.Close()
	})
}
