package docdb

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Stored values are MessagePack, whose encoding permanently reserves
// the 0xc1 byte ("never used"). A stored value starting with 0xc1 is
// therefore unambiguously a compression envelope: the magic byte
// followed by a gzip stream of the MessagePack bytes.
const compressedValueMagic = 0xc1

// defaultCompressThreshold is the value size below which compression
// is skipped outright; gzip overhead dominates on tiny documents.
const defaultCompressThreshold = 512

// compressValue wraps raw in the compression envelope. If the result
// comes out no smaller than the input, the input is returned verbatim
// and stored uncompressed.
func compressValue(raw []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(raw) / 2)
	buf.WriteByte(compressedValueMagic)
	zw := gzip.NewWriter(&buf)
	zw.Write(raw) //nolint:errcheck // writes to bytes.Buffer never fail
	if err := zw.Close(); err != nil || buf.Len() >= len(raw) {
		return raw
	}
	return buf.Bytes()
}

// decompressValue undoes compressValue; values without the envelope
// come back untouched. Decompression does not consult Options.Compress,
// so a database written with compression on stays readable after the
// option is turned off.
func decompressValue(stored []byte) ([]byte, error) {
	if len(stored) == 0 || stored[0] != compressedValueMagic {
		return stored, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(stored[1:]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
