package docdb

import "io"

// Parse decodes data, encoded per format, into a Document. Malformed
// input never panics; it comes back as a plain error describing where
// decoding failed, which callers wrap into a ParseError with the
// (collection, key) context the codec itself doesn't have.
func Parse(format Format, data []byte) (Document, error) {
	switch format {
	case FormatInternalBinary:
		return parseMsgpack(data)
	case FormatJSON:
		return parseJSON(data)
	case FormatBSON:
		return parseBSON(data)
	case FormatCBOR:
		return parseCBOR(data)
	case FormatUBJSON:
		return parseUBJSON(data)
	case FormatRawBinary:
		return Bin(append([]byte(nil), data...)), nil
	case FormatJSONPatch, FormatJSONMergePatch:
		return Discarded(), &UnsupportedFormatError{Format: format, Detail: "a patch payload has no standalone document value; apply it with ApplyJSONPatch/ApplyMergePatch"}
	default:
		return Discarded(), &UnsupportedFormatError{Format: format, Detail: "parse: unknown format"}
	}
}

// Dump encodes d, per format, into w.
func Dump(w io.Writer, d Document, format Format) error {
	switch format {
	case FormatInternalBinary:
		return dumpMsgpack(w, d)
	case FormatJSON:
		return dumpJSON(w, d)
	case FormatBSON:
		return dumpBSON(w, d)
	case FormatCBOR:
		return dumpCBOR(w, d)
	case FormatUBJSON:
		return dumpUBJSON(w, d)
	case FormatRawBinary:
		return dumpRawBinary(w, d)
	case FormatJSONPatch, FormatJSONMergePatch:
		return &UnsupportedFormatError{Format: format, Detail: "a patch mode cannot be dumped as a value"}
	default:
		return &UnsupportedFormatError{Format: format, Detail: "dump: unknown format"}
	}
}

// dumpRawBinary requires the root to be a binary leaf and validates
// that before writing anything to w, so a rejected dump never leaves
// a partial write behind (the write path feeds w a Tape entry, and a
// half-written entry would otherwise be indistinguishable from a
// short binary value).
func dumpRawBinary(w io.Writer, d Document) error {
	bin, ok := d.AsBin()
	if !ok {
		return &UnsupportedFormatError{Format: FormatRawBinary, Detail: "root is not a binary leaf, got " + d.Kind().String()}
	}
	_, err := w.Write(bin)
	return err
}
