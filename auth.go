package bpgsql

import (
	"crypto/md5"
	"encoding/hex"
)

// Protocol 2.0, as spoken by PostgreSQL 6.3 and later.
const (
	protocolMajor = 2
	protocolMinor = 0
)

// Startup packet field widths, fixed by the protocol version.
const (
	startupPacketLen = 296
	databaseFieldLen = 64
	userFieldLen     = 32
	optionsFieldLen  = 64
	reservedFieldLen = 64 // unused + tty
)

// Authentication request codes carried in 'R' messages.
const (
	authOK                = 0
	authKerberosV4        = 1
	authKerberosV5        = 2
	authCleartextPassword = 3
	authCryptPassword     = 4
	authMD5Password       = 5
)

// startupPacket lays out the fixed-width startup message: total length,
// protocol version, then null-padded dbname, user, options and two
// reserved fields.  Values longer than their field are truncated.
func startupPacket(cfg *Config) []byte {
	w := &writeBuf{buf: make([]byte, 0, startupPacketLen)}
	w.int32(startupPacketLen)
	w.int16(protocolMajor)
	w.int16(protocolMinor)
	w.fixed(cfg.Database, databaseFieldLen)
	w.fixed(cfg.User, userFieldLen)
	w.fixed(cfg.Options, optionsFieldLen)
	w.fixed("", reservedFieldLen)
	w.fixed("", reservedFieldLen)
	return w.buf
}

// startup sends the startup packet and dispatches responses until the
// server reports ready; the 'R' handler completes authentication along
// the way.
func (cn *Conn) startup() {
	cn.ready = false
	cn.s.send(startupPacket(cn.cfg))
	cn.waitUntilReady()
	if !cn.authenticated {
		panic(interfaceErrorf("server reported ready without authenticating the session"))
	}
	cn.log(LogLevelDebug, "session established", nil)
}

func (cn *Conn) handleAuth() {
	switch code := cn.s.readInt32(); code {
	case authOK:
		cn.authenticated = true
	case authKerberosV4, authKerberosV5:
		panic(unsupportedAuth(code, "Kerberos authentication is required by the server but not supported by this client"))
	case authCryptPassword:
		cn.s.readExact(2) // salt
		panic(unsupportedAuth(code, "crypt authentication is required by the server but not supported by this client"))
	case authCleartextPassword:
		cn.sendPassword(cn.cfg.Password)
	case authMD5Password:
		salt := cn.s.readExact(4)
		cn.sendPassword(md5Response(cn.cfg.Password, cn.cfg.User, salt))
	default:
		panic(unsupportedAuth(code, "unknown authentication response code %d", code))
	}
}

// sendPassword transmits a password response: an int32 length counting
// itself, the response text, and a null terminator.
func (cn *Conn) sendPassword(pw string) {
	w := &writeBuf{}
	w.int32(len(pw) + 5)
	w.bytes([]byte(pw))
	w.byte(0)
	cn.s.send(w.buf)
}

// md5Response computes the MD5 challenge response
//
//	"md5" + hex(md5(hex(md5(password + user)) + salt))
//
// The inner digest is concatenated as its hex string, not raw bytes;
// servers verify the exact composition.
func md5Response(password, user string, salt []byte) string {
	inner := md5hex([]byte(password + user))
	outer := md5hex(append([]byte(inner), salt...))
	return "md5" + outer
}

func md5hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
