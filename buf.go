package bpgsql

import "encoding/binary"

// writeBuf assembles outgoing messages.  Protocol 2.0 carries no
// uniform length header, so unlike later protocol revisions nothing is
// framed automatically; callers lay out each message explicitly.
type writeBuf struct {
	buf []byte
}

func (b *writeBuf) byte(c byte) {
	b.buf = append(b.buf, c)
}

func (b *writeBuf) bytes(v []byte) {
	b.buf = append(b.buf, v...)
}

func (b *writeBuf) int16(n int) {
	x := make([]byte, 2)
	binary.BigEndian.PutUint16(x, uint16(n))
	b.buf = append(b.buf, x...)
}

func (b *writeBuf) int32(n int) {
	x := make([]byte, 4)
	binary.BigEndian.PutUint32(x, uint32(n))
	b.buf = append(b.buf, x...)
}

func (b *writeBuf) cstring(s string) {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
}

// fixed appends s as an n-byte null-padded field, truncating values
// longer than the field width.
func (b *writeBuf) fixed(s string, n int) {
	if len(s) > n {
		s = s[:n]
	}
	b.buf = append(b.buf, s...)
	for i := len(s); i < n; i++ {
		b.buf = append(b.buf, 0)
	}
}
