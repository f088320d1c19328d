package docdb

import (
	"bytes"
	"errors"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

var errMsgpackTrailingBytes = errors.New("trailing bytes after msgpack value")

// parseMsgpack decodes the internal binary format. Unlike the other
// formats, this one is parsed strictly: any byte left over after the
// single top-level value is itself an error, since a MessagePack blob
// with trailing garbage can only be the result of corruption (this is
// never handed to us directly by a caller the way JSON text is).
func parseMsgpack(data []byte) (Document, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	var v any
	if err := dec.Decode(&v); err != nil {
		return Discarded(), err
	}
	if r.Len() != 0 {
		return Discarded(), errMsgpackTrailingBytes
	}
	return fromGoValue(v)
}

func dumpMsgpack(w io.Writer, d Document) error {
	return msgpack.NewEncoder(w).Encode(toGoValue(d))
}
