/*
Package docdb implements the document modality of a multi-model
database: structured, JSON-like documents addressed by
(collection, key) and stored on top of a generic binary key-value
engine.

We implement:

1. A lossless document codec across JSON, MessagePack, BSON, CBOR,
UBJSON and raw binary, with JSON Pointer / JSON Patch / JSON Merge
Patch support for addressing and mutating sub-documents.

2. A batched request engine that turns a slice of
(collection, key, field) tuples into a single pass over the
underlying KV engine: keys are deduplicated and read once each, and
results come back in the caller's original order.

3. A columnar gather operation that projects a batch of documents
through one JSON Pointer per output column, producing Arrow-style
validity/conversion/collision bitmaps alongside scalar or
variable-length column buffers.

# Technical details

**Buckets.** Each collection is one Bolt bucket (or its equivalent in
other backends); keys inside a bucket are the caller-supplied document
keys, encoded as fixed-width big-endian integers so that bucket
iteration order matches key order.

**At-rest format.** Every stored value is MessagePack — the "internal
binary" format in the codec's Format enum. Documents submitted in any
other format are parsed and immediately re-encoded to MessagePack
before the write lands; reads decode MessagePack back out to whatever
format the caller asked for. A write whose format already is
MessagePack and that touches no field is stored verbatim, without a
parse/dump round trip.

**Duplicates.** A write batch may name the same key more than once.
ReplaceDocs applies such entries sequentially, so the last entry wins;
ReadModifyWrite applies every entry's patch to the same in-memory
document in caller order and writes only the final state, one KV write
per unique key.

**Compression.** With Options.Compress set, values at or above the
configured threshold are stored gzipped behind a one-byte envelope
marker (0xc1, the byte MessagePack reserves and never emits). Reads
unwrap the envelope unconditionally, so the option can be toggled
between runs without migrating data.
*/
package docdb
