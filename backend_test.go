package bpgsql

import (
	"bufio"
	"encoding/binary"
	"net"
	"testing"
)

// testBackend drives the server side of an in-process pipe, speaking
// just enough protocol 2.0 to exercise the client.  Scripts run in
// their own goroutine, so failures are reported with t.Errorf rather
// than t.Fatalf.
type testBackend struct {
	t *testing.T
	c net.Conn
	r *bufio.Reader
}

// newTestConn returns an authenticated client connection wired to a
// scriptable backend over net.Pipe.
func newTestConn(t *testing.T, cfg *Config) (*Conn, *testBackend) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	if cfg == nil {
		cfg = &Config{}
	}
	cn := &Conn{cfg: cfg, s: newStream(client)}
	cn.authenticated = true
	return cn, &testBackend{t: t, c: server, r: bufio.NewReader(server)}
}

func (b *testBackend) write(p []byte) {
	if _, err := b.c.Write(p); err != nil {
		b.t.Errorf("backend write: %v", err)
	}
}

func (b *testBackend) readN(n int) []byte {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		c, err := b.r.ReadByte()
		if err != nil {
			b.t.Errorf("backend read: %v", err)
			return buf
		}
		buf[i] = c
	}
	return buf
}

func (b *testBackend) readInt32() int32 {
	return int32(binary.BigEndian.Uint32(b.readN(4)))
}

func (b *testBackend) readCString() string {
	s, err := b.r.ReadString(0)
	if err != nil {
		b.t.Errorf("backend read cstring: %v", err)
		return s
	}
	return s[:len(s)-1]
}

func (b *testBackend) expectByte(want byte) {
	got, err := b.r.ReadByte()
	if err != nil {
		b.t.Errorf("backend read tag: %v", err)
		return
	}
	if got != want {
		b.t.Errorf("backend read tag %q, want %q", got, want)
	}
}

// readQuery consumes a 'Q' message and returns its SQL text.
func (b *testBackend) readQuery() string {
	b.expectByte('Q')
	return b.readCString()
}

// readPassword consumes a password response message and returns its
// text without the null terminator.
func (b *testBackend) readPassword() string {
	n := int(b.readInt32())
	body := b.readN(n - 4)
	return string(body[:len(body)-1])
}

// Message builders.

func beInt16(n int) []byte {
	x := make([]byte, 2)
	binary.BigEndian.PutUint16(x, uint16(n))
	return x
}

func beInt32(n int) []byte {
	x := make([]byte, 4)
	binary.BigEndian.PutUint32(x, uint32(n))
	return x
}

func msgAuth(code int, extra ...byte) []byte {
	m := append([]byte{'R'}, beInt32(code)...)
	return append(m, extra...)
}

func msgKeyData(pid, key int) []byte {
	m := append([]byte{'K'}, beInt32(pid)...)
	return append(m, beInt32(key)...)
}

func msgReady() []byte {
	return []byte{'Z'}
}

func msgCursorName(name string) []byte {
	return append(append([]byte{'P'}, name...), 0)
}

func msgRowDescription(cols ...Column) []byte {
	m := append([]byte{'T'}, beInt16(len(cols))...)
	for _, c := range cols {
		m = append(append(m, c.Name...), 0)
		m = append(m, beInt32(int(c.Type))...)
		m = append(m, beInt16(int(c.Size))...)
		m = append(m, beInt32(int(c.Modifier))...)
	}
	return m
}

func nullBitmap(fields [][]byte) []byte {
	bm := make([]byte, (len(fields)+7)/8)
	for i, f := range fields {
		if f != nil {
			bm[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return bm
}

// msgTextRow encodes a 'D' row; a nil field is transmitted as null.
// Text rows count the int32 length prefix in the field length.
func msgTextRow(fields ...[]byte) []byte {
	m := append([]byte{'D'}, nullBitmap(fields)...)
	for _, f := range fields {
		if f == nil {
			continue
		}
		m = append(m, beInt32(len(f)+4)...)
		m = append(m, f...)
	}
	return m
}

// msgBinaryRow encodes a 'B' row; the length prefix is the exact
// payload length.
func msgBinaryRow(fields ...[]byte) []byte {
	m := append([]byte{'B'}, nullBitmap(fields)...)
	for _, f := range fields {
		if f == nil {
			continue
		}
		m = append(m, beInt32(len(f))...)
		m = append(m, f...)
	}
	return m
}

func msgComplete(tag string) []byte {
	return append(append([]byte{'C'}, tag...), 0)
}

func msgError(text string) []byte {
	return append(append([]byte{'E'}, text...), 0)
}

func msgNotice(text string) []byte {
	return append(append([]byte{'N'}, text...), 0)
}

func msgEmptyQuery() []byte {
	return []byte{'I', 0}
}

func msgNotify(pid int, channel string) []byte {
	m := append([]byte{'A'}, beInt32(pid)...)
	return append(append(m, channel...), 0)
}

func concat(msgs ...[]byte) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m...)
	}
	return out
}
