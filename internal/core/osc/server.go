package osc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/tracksync/tracksync/internal/core/observability/log"
)

// Handler consumes one decoded message. A returned error is logged and
// contained; it never stops the server.
type Handler func(m Message) error

// maxFrame bounds a single TCP-framed packet.
const maxFrame = 1 << 20

// Server binds one endpoint, decodes inbound packets and dispatches them to
// registered handlers by address pattern. Every matching handler runs in
// registration order. Unmatched messages go to the default handler when one
// is configured, otherwise they are dropped.
type Server struct {
	cfg    Config
	logger log.Log

	mu       sync.RWMutex
	handlers []registration
	fallback Handler

	pc       net.PacketConn
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

type registration struct {
	pattern string
	handler Handler
}

// ServerOption adjusts optional server behavior.
type ServerOption func(*Server)

// WithDefaultHandler routes unmatched messages to h instead of dropping
// them.
func WithDefaultHandler(h Handler) ServerOption {
	return func(s *Server) { s.fallback = h }
}

// WithServerLogger sets the server logger.
func WithServerLogger(l log.Log) ServerOption {
	return func(s *Server) { s.logger = l }
}

func NewServer(cfg Config, opts ...ServerOption) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, logger: log.Provide()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle registers a handler for an address pattern. Registration order is
// dispatch order.
func (s *Server) Handle(pattern string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, registration{pattern: pattern, handler: h})
}

// Start binds the configured endpoint and begins receiving. A bind failure
// is fatal and surfaced as ErrConnectionFailed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	switch s.cfg.Protocol {
	case TCP:
		ln, err := net.Listen("tcp", s.cfg.Addr())
		if err != nil {
			return fmt.Errorf("%w: bind %s: %v", ErrConnectionFailed, s.cfg.Addr(), err)
		}
		s.listener = ln
		s.wg.Add(1)
		go s.acceptLoop(ctx, ln)
	default:
		pc, err := net.ListenPacket("udp", s.cfg.Addr())
		if err != nil {
			return fmt.Errorf("%w: bind %s: %v", ErrConnectionFailed, s.cfg.Addr(), err)
		}
		s.pc = pc
		s.wg.Add(1)
		go s.readLoop(pc)
	}

	s.started = true
	s.logger.Info("osc server listening",
		log.String("addr", s.cfg.Addr()),
		log.String("transport", string(s.cfg.Protocol)))
	return nil
}

// Close stops receiving, closes the socket and waits for in-flight dispatch
// to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	if s.pc != nil {
		s.pc.Close()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Server) readLoop(pc net.PacketConn) {
	defer s.wg.Done()
	buf := make([]byte, 64*1024)
	for {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("udp read failed", log.Error(err))
			}
			return
		}
		// deliver is synchronous, so the buffer can be reused afterwards.
		s.deliver(buf[:n])
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("tcp accept failed", log.Error(err))
			}
			return
		}
		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var header [4]byte
	for {
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("tcp stream ended", log.Error(err))
			}
			return
		}
		size := binary.BigEndian.Uint32(header[:])
		if size == 0 || size > maxFrame {
			s.logger.Warn("dropping oversized frame", log.Uint64("size", uint64(size)))
			return
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(conn, data); err != nil {
			return
		}
		s.deliver(data)
	}
}

// deliver decodes one packet and dispatches its messages. Decode failures
// are logged and dropped, never propagated.
func (s *Server) deliver(data []byte) {
	msgs, err := DecodePacket(data)
	if err != nil {
		s.logger.Warn("dropping malformed packet", log.Error(err))
		return
	}
	for _, m := range msgs {
		s.Dispatch(m)
	}
}

// Dispatch routes one message through the handler table. Exposed so the
// engine can unit-test routing without a socket.
func (s *Server) Dispatch(m Message) {
	s.mu.RLock()
	handlers := s.handlers
	fallback := s.fallback
	s.mu.RUnlock()

	matched := false
	for _, reg := range handlers {
		if !MatchAddress(reg.pattern, m.Address) {
			continue
		}
		matched = true
		if err := reg.handler(m); err != nil {
			s.logger.Warn("handler rejected message",
				log.String("address", m.Address),
				log.String("pattern", reg.pattern),
				log.Error(err))
		}
	}
	if matched {
		return
	}
	if fallback != nil {
		if err := fallback(m); err != nil {
			s.logger.Warn("default handler rejected message",
				log.String("address", m.Address),
				log.Error(err))
		}
		return
	}
	s.logger.Debug("dropping unmatched message", log.String("address", m.Address))
}
