package bpgsql

import (
	"encoding/binary"

	"github.com/bpgsql/bpgsql/oid"
)

// Funcall performs a low-level call to a server-side function.
// Arguments must be integers (sent as 4-byte values) or strings/byte
// slices (sent length-prefixed).  The returned payload is the raw
// function result, or nil when the function returned no value.
//
// A function call owns the connection until the server reports ready;
// it must not be interleaved with a query.
func (cn *Conn) Funcall(fn oid.Oid, args ...interface{}) (res []byte, err error) {
	if cn.closed {
		return nil, interfaceErrorf("connection is closed")
	}
	defer cn.errRecover(&err)
	return cn.funcall(fn, args), nil
}

func (cn *Conn) funcall(fn oid.Oid, args []interface{}) []byte {
	if cn.shouldLog(LogLevelTrace) {
		name := cn.loNames[fn]
		cn.log(LogLevelTrace, "function call", map[string]interface{}{"oid": uint32(fn), "name": name, "args": len(args)})
	}

	w := &writeBuf{}
	w.byte('F')
	w.byte(0)
	w.int32(int(fn))
	w.int32(len(args))
	for _, a := range args {
		switch v := a.(type) {
		case int:
			w.int32(4)
			w.int32(v)
		case int32:
			w.int32(4)
			w.int32(int(v))
		case []byte:
			w.int32(len(v))
			w.bytes(v)
		case string:
			w.int32(len(v))
			w.bytes([]byte(v))
		default:
			panic(interfaceErrorf("unsupported function argument type %T", a))
		}
	}

	cn.ready = false
	cn.s.send(w.buf)
	cn.waitUntilReady()

	res := cn.funcResult
	cn.funcResult = nil
	return res
}

// unpackInt32 interprets a 4-byte function result as a big-endian
// integer.
func unpackInt32(b []byte) int32 {
	if len(b) != 4 {
		panic(interfaceErrorf("malformed function result: expected 4 bytes, got %d", len(b)))
	}
	return int32(binary.BigEndian.Uint32(b))
}
