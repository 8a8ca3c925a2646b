package bpgsql

import (
	"strconv"

	"github.com/bpgsql/bpgsql/oid"
)

// Large-object open modes.
const (
	InvWrite = 0x00020000
	InvRead  = 0x00040000
)

// Whence values for LargeObject.Seek.
type Whence int

const (
	SeekSet Whence = 0 // from the start of the object
	SeekCur Whence = 1 // from the current offset
	SeekEnd Whence = 2 // from the end of the object
)

// loOID resolves a large-object function name to its oid, building the
// catalog on first use.  The catalog is a name→oid map over every
// server function whose name begins with "lo" (a few non-lobject
// functions may slip in, which is harmless), memoized for the life of
// the connection.
func (cn *Conn) loOID(name string) oid.Oid {
	if cn.loFuncs == nil {
		blocks, err := cn.Execute("SELECT proname, oid FROM pg_proc WHERE proname LIKE 'lo%'")
		if err != nil {
			panic(err)
		}
		cn.loFuncs = make(map[string]oid.Oid)
		cn.loNames = make(map[oid.Oid]string)
		for _, blk := range blocks {
			for _, row := range blk.Rows {
				if len(row) < 2 || row[0] == nil || row[1] == nil {
					continue
				}
				n, err := strconv.ParseUint(string(row[1]), 10, 32)
				if err != nil {
					continue
				}
				cn.loFuncs[string(row[0])] = oid.Oid(n)
				cn.loNames[oid.Oid(n)] = string(row[0])
			}
		}
		cn.log(LogLevelDebug, "large object catalog loaded", map[string]interface{}{"functions": len(cn.loFuncs)})
	}
	fn, ok := cn.loFuncs[name]
	if !ok {
		panic(interfaceErrorf("no server function %q in the large object catalog", name))
	}
	return fn
}

// LoCreate creates a new large object with the given mode and returns
// its oid.
func (cn *Conn) LoCreate(mode int) (o oid.Oid, err error) {
	defer cn.errRecover(&err)
	r := cn.funcall(cn.loOID("lo_creat"), []interface{}{mode})
	return oid.Oid(unpackInt32(r)), nil
}

// LoOpen opens the large object with the given oid and returns a handle
// positioned at offset 0.
func (cn *Conn) LoOpen(o oid.Oid, mode int) (lo *LargeObject, err error) {
	defer cn.errRecover(&err)
	r := cn.funcall(cn.loOID("lo_open"), []interface{}{int(o), mode})
	lo = &LargeObject{cn: cn, fd: unpackInt32(r)}
	lo.seek(0, SeekSet)
	return lo, nil
}

// LoUnlink deletes the large object with the given oid.
func (cn *Conn) LoUnlink(o oid.Oid) (err error) {
	defer cn.errRecover(&err)
	cn.funcall(cn.loOID("lo_unlink"), []interface{}{int(o)})
	return nil
}

// LargeObject is a file-like handle on a server-side large object.  All
// operations are function calls delegated through the owning
// connection; a closed handle holds no connection reference and every
// further operation fails with a usage error.
type LargeObject struct {
	cn *Conn
	fd int32
}

func (lo *LargeObject) guard() (*Conn, error) {
	if lo.cn == nil {
		return nil, interfaceErrorf("operation on closed large object")
	}
	return lo.cn, nil
}

// Read returns up to maxLen bytes from the current offset.
func (lo *LargeObject) Read(maxLen int) (b []byte, err error) {
	cn, err := lo.guard()
	if err != nil {
		return nil, err
	}
	defer cn.errRecover(&err)
	return cn.funcall(cn.loOID("loread"), []interface{}{int(lo.fd), maxLen}), nil
}

// Write writes data at the current offset and returns the number of
// bytes written.
func (lo *LargeObject) Write(data []byte) (n int, err error) {
	cn, err := lo.guard()
	if err != nil {
		return 0, err
	}
	defer cn.errRecover(&err)
	r := cn.funcall(cn.loOID("lowrite"), []interface{}{int(lo.fd), data})
	return int(unpackInt32(r)), nil
}

// Seek moves the current offset.
func (lo *LargeObject) Seek(offset int, whence Whence) (err error) {
	cn, err := lo.guard()
	if err != nil {
		return err
	}
	defer cn.errRecover(&err)
	lo.seek(offset, whence)
	return nil
}

func (lo *LargeObject) seek(offset int, whence Whence) {
	cn := lo.cn
	cn.funcall(cn.loOID("lo_lseek"), []interface{}{int(lo.fd), offset, int(whence)})
}

// Tell returns the current offset.
func (lo *LargeObject) Tell() (offset int, err error) {
	cn, err := lo.guard()
	if err != nil {
		return 0, err
	}
	defer cn.errRecover(&err)
	r := cn.funcall(cn.loOID("lo_tell"), []interface{}{int(lo.fd)})
	return int(unpackInt32(r)), nil
}

// Close releases the handle.  The connection reference is cleared even
// when the underlying call fails, so a handle is never closed twice.
func (lo *LargeObject) Close() (err error) {
	cn, err := lo.guard()
	if err != nil {
		return err
	}
	lo.cn = nil
	defer cn.errRecover(&err)
	cn.funcall(cn.loOID("lo_close"), []interface{}{int(lo.fd)})
	return nil
}
