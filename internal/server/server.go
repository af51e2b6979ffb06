// ABOUTME: Reference MediaRec executor daemon
// ABOUTME: Serves bridge connections and drives a local engine per session

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/internal/engine"
)

// Config holds server configuration.
type Config struct {
	Port int
	Name string

	// EngineOptions are applied to every per-session engine.
	EngineOptions []engine.Option
}

// Server accepts bridge connections and executes forwarded media requests
// against a local engine, pushing status events back over the socket.
type Server struct {
	config   Config
	serverID string
	log      zerolog.Logger

	upgrader   websocket.Upgrader
	mux        *http.ServeMux
	httpServer *http.Server

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a server instance.
func New(config Config, logger zerolog.Logger) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		log:      logger.With().Str("component", "server").Logger(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Trusted local network deployment; non-browser clients
			// send no Origin header at all.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.mux.HandleFunc("/mediarec", s.handleWebSocket)

	return s
}

// Start listens for bridge connections. It blocks until Stop is called or
// the listener fails.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.mux,
	}

	s.log.Info().Int("port", s.config.Port).Str("name", s.config.Name).Msg("listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen failed: %w", err)
	}
	return nil
}

// Stop shuts the listener down and waits for live sessions to finish.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpServer.Shutdown(ctx)
		}
		s.wg.Wait()
	})
}

// handleWebSocket upgrades one bridge connection and runs its session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	sess := newSession(s, conn)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.run()
	}()
}
