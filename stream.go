package bpgsql

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"time"

	"golang.org/x/xerrors"
)

// stream wraps the connected socket with a buffered reader.  It knows
// nothing about message framing beyond exact-count and
// delimiter-terminated reads; every read method panics with an
// operational error when the backend closes the connection, to be
// recovered by errRecover at the public API boundary.
type stream struct {
	c net.Conn
	r *bufio.Reader
}

func newStream(c net.Conn) *stream {
	return &stream{c: c, r: bufio.NewReader(c)}
}

func (s *stream) readExact(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		panic(operationalErrorf(err, "connection to backend closed"))
	}
	return b
}

func (s *stream) readByte() byte {
	b, err := s.r.ReadByte()
	if err != nil {
		panic(operationalErrorf(err, "connection to backend closed"))
	}
	return b
}

// readUntil returns the bytes preceding the first occurrence of delim,
// consuming and discarding the delimiter itself.
func (s *stream) readUntil(delim byte) []byte {
	b, err := s.r.ReadBytes(delim)
	if err != nil {
		panic(operationalErrorf(err, "connection to backend closed"))
	}
	return b[:len(b)-1]
}

func (s *stream) readCString() string {
	return string(s.readUntil(0))
}

func (s *stream) readInt16() int16 {
	return int16(binary.BigEndian.Uint16(s.readExact(2)))
}

func (s *stream) readInt32() int32 {
	return int32(binary.BigEndian.Uint32(s.readExact(4)))
}

// send transmits all of b, retrying partial writes.
func (s *stream) send(b []byte) {
	for len(b) > 0 {
		n, err := s.c.Write(b)
		if err != nil {
			panic(operationalErrorf(err, "send to backend failed"))
		}
		b = b[n:]
	}
}

// waitReadable reports whether at least one byte of a new message is
// available, waiting up to timeout for one to arrive.  A negative
// timeout waits indefinitely.  Once a byte has arrived the read
// deadline is cleared, so decoding the rest of the message never times
// out.
func (s *stream) waitReadable(timeout time.Duration) bool {
	if s.r.Buffered() > 0 {
		return true
	}
	if timeout >= 0 {
		// An already-expired deadline would reject data sitting in the
		// socket buffer, so a zero timeout still polls briefly.
		if timeout == 0 {
			timeout = time.Millisecond
		}
		s.c.SetReadDeadline(time.Now().Add(timeout))
		defer s.c.SetReadDeadline(time.Time{})
	}
	if _, err := s.r.Peek(1); err != nil {
		var ne net.Error
		if xerrors.As(err, &ne) && ne.Timeout() {
			return false
		}
		panic(operationalErrorf(err, "connection to backend closed"))
	}
	return true
}

func (s *stream) close() error {
	return s.c.Close()
}
