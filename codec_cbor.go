package docdb

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

func parseCBOR(data []byte) (Document, error) {
	var v any
	if err := cbor.Unmarshal(data, &v); err != nil {
		return Discarded(), err
	}
	return fromGoValue(v)
}

func dumpCBOR(w io.Writer, d Document) error {
	enc := cbor.NewEncoder(w)
	return enc.Encode(toGoValue(d))
}
