// Package bpgsql is a minimal client for the legacy PostgreSQL 2.0
// wire protocol, as spoken by PostgreSQL 6.3 through 7.3 era servers.
//
// The client is deliberately small and synchronous: a Conn owns one
// socket, every operation blocks until the server reports ready, and
// there is no pooling, no prepared-statement protocol and no TLS.  On
// top of the protocol engine sit a scrollable Cursor, a bulk COPY
// bridge, LISTEN/NOTIFY delivery via WaitForNotification, and
// file-like access to server-side large objects.
//
//	cn, err := bpgsql.Connect("host=10.0.0.1 user=app dbname=app")
//	if err != nil { ... }
//	defer cn.Close()
//
//	cur := cn.Cursor()
//	if err := cur.Execute("SELECT oid, typname FROM pg_type WHERE oid = $1", 23); err != nil { ... }
//	row, err := cur.FetchOne()
package bpgsql
