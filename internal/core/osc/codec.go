package osc

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// Wire layout per OSC 1.0: strings are null-terminated then zero-padded to a
// 4-byte boundary, numerics are big-endian fixed-width, and arguments follow
// the type tag string in declared order.

const bundleTag = "#bundle"

// TimeTag is a 64-bit NTP timestamp. The value 1 means "immediately".
type TimeTag uint64

const TimeTagImmediate TimeTag = 1

// ntpEpochOffset is the number of seconds between the NTP epoch (1900) and
// the Unix epoch (1970).
const ntpEpochOffset = 2208988800

// TimeTagAt converts a wall-clock time to an NTP timetag.
func TimeTagAt(t time.Time) TimeTag {
	secs := uint64(t.Unix()) + ntpEpochOffset
	frac := uint64(t.Nanosecond()) << 32 / 1e9
	return TimeTag(secs<<32 | frac)
}

// Time converts the timetag back to wall-clock time. Immediate tags map to
// the zero time.
func (tt TimeTag) Time() time.Time {
	if tt == TimeTagImmediate {
		return time.Time{}
	}
	secs := int64(tt>>32) - ntpEpochOffset
	nanos := int64(uint64(tt&0xffffffff) * 1e9 >> 32)
	return time.Unix(secs, nanos)
}

func paddedLen(n int) int {
	// Includes the null terminator.
	return (n + 4) &^ 3
}

func appendPaddedString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	for n := paddedLen(len(s)) - len(s); n > 0; n-- {
		dst = append(dst, 0)
	}
	return dst
}

// Encode serializes a message to its wire form.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	size := paddedLen(len(m.Address)) + paddedLen(len(m.Args)+1)
	for _, a := range m.Args {
		switch a.tag {
		case 'i', 'f':
			size += 4
		case 's':
			size += paddedLen(len(a.s))
		case 'b':
			size += 4 + (len(a.blob)+3)&^3
		}
	}

	buf := make([]byte, 0, size)
	buf = appendPaddedString(buf, m.Address)
	buf = appendPaddedString(buf, m.TypeTags())
	for _, a := range m.Args {
		switch a.tag {
		case 'i':
			buf = binary.BigEndian.AppendUint32(buf, uint32(a.i))
		case 'f':
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(a.f))
		case 's':
			buf = appendPaddedString(buf, a.s)
		case 'b':
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(a.blob)))
			buf = append(buf, a.blob...)
			for n := (4 - len(a.blob)&3) & 3; n > 0; n-- {
				buf = append(buf, 0)
			}
		}
	}
	return buf, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) paddedString() (string, error) {
	end := r.pos
	for end < len(r.data) && r.data[end] != 0 {
		end++
	}
	if end == len(r.data) {
		return "", fmt.Errorf("%w: unterminated string", ErrMalformed)
	}
	s := string(r.data[r.pos:end])
	next := r.pos + paddedLen(end-r.pos)
	if next > len(r.data) {
		return "", fmt.Errorf("%w: string padding truncated", ErrMalformed)
	}
	r.pos = next
	return s, nil
}

func (r *reader) uint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated argument payload", ErrMalformed)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) blob() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	size := int(n)
	if size < 0 || r.remaining() < (size+3)&^3 {
		return nil, fmt.Errorf("%w: truncated blob", ErrMalformed)
	}
	b := make([]byte, size)
	copy(b, r.data[r.pos:])
	r.pos += (size + 3) &^ 3
	return b, nil
}

// Decode deserializes a single message from its wire form. Trailing bytes
// beyond the declared arguments are rejected.
func Decode(data []byte) (Message, error) {
	var m Message
	r := &reader{data: data}

	addr, err := r.paddedString()
	if err != nil {
		return m, err
	}
	if !strings.HasPrefix(addr, "/") {
		return m, fmt.Errorf("%w: address %q must start with '/'", ErrMalformed, addr)
	}
	tags, err := r.paddedString()
	if err != nil {
		return m, err
	}
	if !strings.HasPrefix(tags, ",") {
		return m, fmt.Errorf("%w: type tag string %q must start with ','", ErrMalformed, tags)
	}

	m.Address = addr
	for _, tag := range []byte(tags[1:]) {
		var a Arg
		switch tag {
		case 'i':
			v, err := r.uint32()
			if err != nil {
				return Message{}, err
			}
			a = Int32(int32(v))
		case 'f':
			v, err := r.uint32()
			if err != nil {
				return Message{}, err
			}
			a = Float32(math.Float32frombits(v))
		case 's':
			v, err := r.paddedString()
			if err != nil {
				return Message{}, err
			}
			a = String(v)
		case 'b':
			v, err := r.blob()
			if err != nil {
				return Message{}, err
			}
			a = Blob(v)
		case 'T':
			a = Bool(true)
		case 'F':
			a = Bool(false)
		default:
			return Message{}, fmt.Errorf("%w: unsupported type tag %q", ErrMalformed, string(tag))
		}
		m.Args = append(m.Args, a)
	}
	if r.remaining() != 0 {
		return Message{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.remaining())
	}
	return m, nil
}

// Bundle is an OSC 1.0 bundle: a timetag plus nested messages.
type Bundle struct {
	Time     TimeTag
	Messages []Message
}

// EncodeBundle serializes a bundle. Nested bundles are not produced.
func EncodeBundle(b Bundle) ([]byte, error) {
	buf := appendPaddedString(nil, bundleTag)
	tt := b.Time
	if tt == 0 {
		tt = TimeTagImmediate
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(tt))
	for _, m := range b.Messages {
		elem, err := Encode(m)
		if err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(elem)))
		buf = append(buf, elem...)
	}
	return buf, nil
}

// DecodePacket decodes a datagram that may hold either a single message or a
// bundle, returning the contained messages in order. Nested bundles are
// flattened.
func DecodePacket(data []byte) ([]Message, error) {
	if !isBundle(data) {
		m, err := Decode(data)
		if err != nil {
			return nil, err
		}
		return []Message{m}, nil
	}

	r := &reader{data: data}
	if _, err := r.paddedString(); err != nil {
		return nil, err
	}
	if r.remaining() < 8 {
		return nil, fmt.Errorf("%w: truncated bundle timetag", ErrMalformed)
	}
	r.pos += 8

	var out []Message
	for r.remaining() > 0 {
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		size := int(n)
		if size <= 0 || r.remaining() < size {
			return nil, fmt.Errorf("%w: bad bundle element size %d", ErrMalformed, size)
		}
		elem := r.data[r.pos : r.pos+size]
		r.pos += size
		nested, err := DecodePacket(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func isBundle(data []byte) bool {
	return len(data) >= len(bundleTag) && string(data[:len(bundleTag)]) == bundleTag
}
