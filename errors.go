package docdb

import "fmt"

// One struct per failure kind, each carrying enough context to
// reproduce the failure from a log line. ParseError and
// UnderlyingKVError wrap an inner error and satisfy Unwrap; the other
// kinds carry only their own fields.

// ParseError signals that caller input couldn't be decoded in the
// declared format, or that a previously stored blob failed to decode as
// InternalBinary (data corruption).
type ParseError struct {
	Collection CollectionHandle
	Key        Key
	Format     Format
	Off        int
	Err        error
}

func (e *ParseError) Unwrap() error { return e.Err }
func (e *ParseError) Error() string {
	return fmt.Sprintf("docdb: parse error (collection=%d key=%d format=%v off=%d): %v",
		e.Collection, e.Key, e.Format, e.Off, e.Err)
}

// UnsupportedFormatError signals that the declared format cannot be
// used on this path (e.g. RawBinary dump of an object root).
type UnsupportedFormatError struct {
	Format Format
	Detail string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("docdb: unsupported format %v: %s", e.Format, e.Detail)
}

// ArgumentInvalidError signals a null required field pointer, malformed
// JSON Pointer, or mismatched per-entry array strides.
type ArgumentInvalidError struct {
	Detail string
}

func (e *ArgumentInvalidError) Error() string {
	return "docdb: invalid argument: " + e.Detail
}

// OutOfMemoryError signals arena exhaustion.
type OutOfMemoryError struct {
	Requested int
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("docdb: out of memory (requested %d bytes)", e.Requested)
}

// UnderlyingKVError wraps any error returned by the KV engine, verbatim.
type UnderlyingKVError struct {
	Op  string
	Err error
}

func (e *UnderlyingKVError) Unwrap() error { return e.Err }
func (e *UnderlyingKVError) Error() string {
	return fmt.Sprintf("docdb: underlying kv error during %s: %v", e.Op, e.Err)
}

// UninitializedError signals that a required handle (database,
// transaction) is nil.
type UninitializedError struct {
	What string
}

func (e *UninitializedError) Error() string {
	return "docdb: uninitialized " + e.What
}
