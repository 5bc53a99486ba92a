package osc

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tracksync/tracksync/internal/core/observability/log"
)

// Client sends messages to one remote endpoint over the transport selected
// by its Config.
type Client interface {
	Send(m Message) error
	SendBundle(b Bundle) error
	Close() error
}

// ClientOption adjusts optional client behavior.
type ClientOption func(*clientOptions)

type clientOptions struct {
	reconnectAttempts int
	reconnectBackoff  time.Duration
	logger            log.Log
}

// WithReconnect tunes the TCP reconnect bound. UDP clients ignore it.
func WithReconnect(attempts int, backoff time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.reconnectAttempts = attempts
		o.reconnectBackoff = backoff
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l log.Log) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient builds a client for the configured transport. UDP clients do not
// touch the network until the first send; TCP clients connect eagerly.
func NewClient(cfg Config, opts ...ClientOption) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := clientOptions{
		reconnectAttempts: 3,
		reconnectBackoff:  100 * time.Millisecond,
		logger:            log.Provide(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	switch cfg.Protocol {
	case TCP:
		c := &tcpClient{cfg: cfg, opts: o}
		if err := c.connect(); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return &udpClient{cfg: cfg, opts: o}, nil
	}
}

// udpClient is fire-and-forget: a send either reaches the wire or fails
// immediately, with no retry and no delivery guarantee.
type udpClient struct {
	cfg  Config
	opts clientOptions

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func (c *udpClient) Send(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *udpClient) SendBundle(b Bundle) error {
	data, err := EncodeBundle(b)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *udpClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		conn, err := net.Dial("udp", c.cfg.Addr())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		c.conn = conn
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

func (c *udpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// tcpClient frames each packet with a big-endian 4-byte length, the common
// OSC-over-stream convention. Failed writes trigger bounded reconnects with
// doubling backoff before ErrConnectionFailed is surfaced.
type tcpClient struct {
	cfg  Config
	opts clientOptions

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func (c *tcpClient) connect() error {
	conn, err := net.Dial("tcp", c.cfg.Addr())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	c.conn = conn
	return nil
}

func (c *tcpClient) Send(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *tcpClient) SendBundle(b Bundle) error {
	data, err := EncodeBundle(b)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *tcpClient) write(data []byte) error {
	framed := make([]byte, 0, 4+len(data))
	framed = binary.BigEndian.AppendUint32(framed, uint32(len(data)))
	framed = append(framed, data...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	var lastErr error
	backoff := c.opts.reconnectBackoff
	for attempt := 0; attempt <= c.opts.reconnectAttempts; attempt++ {
		if attempt > 0 {
			c.opts.logger.Warn("reconnecting",
				log.String("addr", c.cfg.Addr()),
				log.Int("attempt", attempt),
				log.Error(lastErr))
			time.Sleep(backoff)
			backoff *= 2
			if c.conn != nil {
				c.conn.Close()
				c.conn = nil
			}
			if err := c.connect(); err != nil {
				lastErr = err
				continue
			}
		}
		if _, err := c.conn.Write(framed); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %d reconnect attempts exhausted: %v",
		ErrConnectionFailed, c.opts.reconnectAttempts, lastErr)
}

func (c *tcpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
