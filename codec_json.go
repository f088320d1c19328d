package docdb

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-json"
)

var errJSONTrailingBytes = errors.New("trailing content after JSON value")

// parseJSON decodes JSON text leniently: a byte-order mark or
// surrounding whitespace is fine, but trailing non-whitespace content
// after the top-level value is rejected the same as any other format.
func parseJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Discarded(), err
	}
	if dec.More() {
		return Discarded(), errJSONTrailingBytes
	}
	return fromGoValue(v)
}

func dumpJSON(w io.Writer, d Document) error {
	return json.NewEncoder(w).Encode(toGoValue(d))
}
