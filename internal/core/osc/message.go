// Package osc implements the Open Sound Control 1.0 message model, the
// binary wire codec, and UDP/TCP client and server transports with address
// pattern dispatch.
package osc

import (
	"fmt"
	"strings"
)

// Transport selects the wire transport for a client or server.
type Transport string

const (
	UDP Transport = "udp"
	TCP Transport = "tcp"
)

// Config selects the endpoint and transport at construction time.
type Config struct {
	Host     string    `json:"host" yaml:"host"`
	Port     uint16    `json:"port" yaml:"port"`
	Protocol Transport `json:"protocol" yaml:"protocol"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Validate() error {
	switch c.Protocol {
	case UDP, TCP:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrProtocol, c.Protocol)
	}
	if c.Port == 0 {
		return fmt.Errorf("%w: port must not be zero", ErrProtocol)
	}
	return nil
}

// Arg is one typed message argument. The tag is the OSC 1.0 type tag
// character; only the field matching the tag carries data.
type Arg struct {
	tag  byte
	i    int32
	f    float32
	s    string
	blob []byte
}

// Int32 builds an 'i' argument.
func Int32(v int32) Arg { return Arg{tag: 'i', i: v} }

// Float32 builds an 'f' argument.
func Float32(v float32) Arg { return Arg{tag: 'f', f: v} }

// String builds an 's' argument.
func String(v string) Arg { return Arg{tag: 's', s: v} }

// Blob builds a 'b' argument. The slice is not copied.
func Blob(v []byte) Arg { return Arg{tag: 'b', blob: v} }

// Bool builds a 'T' or 'F' argument. Booleans live entirely in the type tag
// string and carry no payload bytes.
func Bool(v bool) Arg {
	if v {
		return Arg{tag: 'T'}
	}
	return Arg{tag: 'F'}
}

func (a Arg) Tag() byte { return a.tag }

func (a Arg) Int() (int32, bool)     { return a.i, a.tag == 'i' }
func (a Arg) Float() (float32, bool) { return a.f, a.tag == 'f' }
func (a Arg) Str() (string, bool)    { return a.s, a.tag == 's' }
func (a Arg) Bytes() ([]byte, bool)  { return a.blob, a.tag == 'b' }
func (a Arg) Bool() (bool, bool)     { return a.tag == 'T', a.tag == 'T' || a.tag == 'F' }

func (a Arg) String() string {
	switch a.tag {
	case 'i':
		return fmt.Sprintf("i:%d", a.i)
	case 'f':
		return fmt.Sprintf("f:%g", a.f)
	case 's':
		return fmt.Sprintf("s:%q", a.s)
	case 'b':
		return fmt.Sprintf("b:%d bytes", len(a.blob))
	case 'T':
		return "T"
	case 'F':
		return "F"
	default:
		return fmt.Sprintf("?:%c", a.tag)
	}
}

// Message is one OSC message: a slash-rooted address plus ordered typed
// arguments. Transport-independent; the codec maps it to and from bytes.
type Message struct {
	Address string
	Args    []Arg
}

// NewMessage builds a message, leaving validation to Validate or Encode.
func NewMessage(address string, args ...Arg) Message {
	return Message{Address: address, Args: args}
}

func (m Message) Validate() error {
	if !strings.HasPrefix(m.Address, "/") {
		return fmt.Errorf("%w: address %q must start with '/'", ErrMalformed, m.Address)
	}
	if strings.IndexByte(m.Address, 0) >= 0 {
		return fmt.Errorf("%w: address contains a null byte", ErrMalformed)
	}
	for i, a := range m.Args {
		switch a.tag {
		case 'i', 'f', 's', 'b', 'T', 'F':
		default:
			return fmt.Errorf("%w: argument %d has unsupported type tag %q", ErrMalformed, i, string(a.tag))
		}
	}
	return nil
}

// TypeTags returns the comma-prefixed type tag string for the message.
func (m Message) TypeTags() string {
	var b strings.Builder
	b.Grow(len(m.Args) + 1)
	b.WriteByte(',')
	for _, a := range m.Args {
		b.WriteByte(a.tag)
	}
	return b.String()
}
