package docdb

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"
)

// CollectionHandle is an opaque identifier for a named collection,
// derived from the collection's name by FNV-1a (collisions are not
// detected; two distinct names collapsing to the same 64-bit hash is
// astronomically unlikely and out of scope here, same as the original
// system's own collection-handle allocator never checking for reuse).
type CollectionHandle uint64

// Key identifies one document within a collection. Unlike
// CollectionHandle, Key is caller-assigned and signed.
type Key int64

// Collection resolves name to the handle under which its documents are
// stored. Two calls with the same name always return the same handle;
// no separate "create" step is needed; the bucket backing the
// collection is created lazily on first write.
func Collection(name string) CollectionHandle {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return CollectionHandle(h.Sum64())
}

// collectionBucket is the outer bucket name under which every
// collection lives as a nested bucket (storageTx.Bucket(name, sub)).
const collectionBucket = "docs"

func (h CollectionHandle) bucketName() string {
	return strconv.FormatUint(uint64(h), 36)
}

func (tx *Tx) docsBucket(h CollectionHandle) storageBucket {
	return tx.bucket(h.bucketName())
}

func (tx *Tx) docsBucketForWrite(h CollectionHandle) (storageBucket, error) {
	return tx.createBucket(h.bucketName())
}

// encodeDocKey renders k as a big-endian 8-byte key, so bucket
// iteration order (used by backends that support range scans) matches
// numeric key order regardless of sign.
func encodeDocKey(k Key) []byte {
	buf := getKeyBytes()
	buf = buf[:8]
	binary.BigEndian.PutUint64(buf, uint64(k)^signBit)
	return buf
}

// signBit flips the sign bit so two's-complement negative keys sort
// before non-negative ones in unsigned big-endian byte order.
const signBit = uint64(1) << 63

func decodeDocKey(buf []byte) Key {
	return Key(binary.BigEndian.Uint64(buf) ^ signBit)
}

// Format names a document wire representation. Every value except the
// two patch modes is a conversion target/source for Parse/Dump; FormatJSONPatch and
// FormatJSONMergePatch never name a storable document shape by
// themselves — they tell ReadModifyWrite to interpret the entry's
// payload as an RFC 6902 operation list or an RFC 7396 merge object
// applied to whatever already lives at the target, rather than as a
// new value to store outright.
type Format uint8

const (
	// FormatInternalBinary is MessagePack, the format every document is
	// stored in at rest.
	FormatInternalBinary Format = iota
	FormatJSON
	FormatJSONPatch
	FormatJSONMergePatch
	FormatBSON
	FormatCBOR
	FormatUBJSON
	// FormatRawBinary treats the document as an opaque byte string: the
	// root must be KindBin (write) or is dumped as the raw bytes of a
	// KindBin leaf (read). Any other root shape is UnsupportedFormatError.
	FormatRawBinary
)

// IsPatchMode reports whether f names a patch-application mode rather
// than a value format; ReadModifyWrite branches on this before ever
// calling Parse on the entry's payload.
func (f Format) IsPatchMode() bool {
	return f == FormatJSONPatch || f == FormatJSONMergePatch
}

func (f Format) String() string {
	switch f {
	case FormatInternalBinary:
		return "internal-binary"
	case FormatJSON:
		return "json-text"
	case FormatJSONPatch:
		return "json-patch"
	case FormatJSONMergePatch:
		return "json-merge-patch"
	case FormatBSON:
		return "bson"
	case FormatCBOR:
		return "cbor"
	case FormatUBJSON:
		return "ubjson"
	case FormatRawBinary:
		return "raw-binary"
	default:
		return "unknown"
	}
}
