// Package monitor exposes live engine state over HTTP for dashboards and
// debugging: a JSON snapshot endpoint and a websocket stream pushing the
// state set after every active tick.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tracksync/tracksync/internal/core/engine"
	"github.com/tracksync/tracksync/internal/core/observability/log"
	"github.com/tracksync/tracksync/internal/core/state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// frame is one websocket payload.
type frame struct {
	At     time.Time              `json:"at"`
	Tracks []state.AnimationState `json:"tracks"`
}

type Server struct {
	engine *engine.Engine
	logger log.Log
	http   *http.Server
}

func NewServer(addr string, e *engine.Engine, logger log.Log) *Server {
	if logger == nil {
		logger = log.Provide()
	}
	s := &Server{engine: e, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start serves until ctx is canceled, then shuts down with a bounded drain.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	s.logger.Info("monitor listening", log.String("addr", s.http.Addr))

	select {
	case err := <-errc:
		return fmt.Errorf("monitor server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	states, err := s.engine.States()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(frame{At: time.Now(), Tracks: states}); err != nil {
		s.logger.Debug("state encode failed", log.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := s.engine.Subscribe()
	defer cancel()

	// Reads are discarded; closing the read side ends the stream.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case states, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(frame{At: time.Now(), Tracks: states}); err != nil {
				return
			}
		}
	}
}
