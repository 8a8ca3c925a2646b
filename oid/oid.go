// Package oid holds PostgreSQL type object identifiers.
package oid

// Oid is a PostgreSQL object identifier.
type Oid uint32

// Type oids for the built-in types a protocol 2.0 server commonly
// reports in row descriptions.
const (
	T_bool    Oid = 16
	T_bytea   Oid = 17
	T_char    Oid = 18
	T_name    Oid = 19
	T_int8    Oid = 20
	T_int2    Oid = 21
	T_int4    Oid = 23
	T_text    Oid = 25
	T_oid     Oid = 26
	T_float4  Oid = 700
	T_float8  Oid = 701
	T_unknown Oid = 705
	T_varchar Oid = 1043
)
