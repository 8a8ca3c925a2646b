package bpgsql

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T) (*stream, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return newStream(client), server
}

// catchStreamErr converts the stream's panic-based error reporting to a
// returned error.
func catchStreamErr(f func()) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = e.(*Error)
		}
	}()
	f()
	return nil
}

func TestStreamReadsAcrossFragmentedWrites(t *testing.T) {
	s, server := newTestStream(t)

	go func() {
		server.Write([]byte("ab"))
		time.Sleep(5 * time.Millisecond)
		server.Write([]byte("c\x00"))
		server.Write(beInt32(70000))
	}()

	assert.Equal(t, "abc", s.readCString())
	assert.Equal(t, int32(70000), s.readInt32())
}

func TestStreamReadExactPeerClose(t *testing.T) {
	s, server := newTestStream(t)

	go func() {
		server.Write([]byte("xy"))
		server.Close()
	}()

	err := catchStreamErr(func() { s.readExact(4) })
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindOperational, kind)
}

func TestStreamWaitReadable(t *testing.T) {
	s, server := newTestStream(t)

	// nothing pending: a bounded wait times out
	assert.False(t, s.waitReadable(10*time.Millisecond))

	go func() {
		time.Sleep(5 * time.Millisecond)
		server.Write([]byte{'Z'})
	}()
	assert.True(t, s.waitReadable(time.Second))

	// the byte is still unconsumed, so buffered data reports readable
	// even with a zero timeout
	assert.True(t, s.waitReadable(0))
	assert.Equal(t, byte('Z'), s.readByte())
	assert.False(t, s.waitReadable(0))
}

func TestWriteBufLayout(t *testing.T) {
	w := &writeBuf{}
	w.byte('Q')
	w.int16(2)
	w.int32(-1)
	w.cstring("hi")
	w.fixed("ab", 4)

	assert.Equal(t, []byte{
		'Q',
		0, 2,
		0xFF, 0xFF, 0xFF, 0xFF,
		'h', 'i', 0,
		'a', 'b', 0, 0,
	}, w.buf)
}

func TestWriteBufFixedTruncates(t *testing.T) {
	w := &writeBuf{}
	w.fixed("abcdef", 4)
	assert.Equal(t, []byte("abcd"), w.buf)
}
