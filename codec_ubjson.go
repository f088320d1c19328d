package docdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// UBJSON (Universal Binary JSON) has no Go library in wide enough use
// to justify a dependency (the one well-known implementation predates
// Go modules and is unmaintained); this is a small hand-written
// encoder/decoder for the subset of the format this package needs:
// Z/T/F, the signed/unsigned integer and float markers, S strings,
// and [ ] / { } containers. Binary Documents round-trip through the
// strongly-typed-array convention ($U# followed by raw bytes), the
// same trick most UBJSON implementations use since the format has no
// dedicated binary-blob marker.

const (
	ubNull   = 'Z'
	ubTrue   = 'T'
	ubFalse  = 'F'
	ubInt8   = 'i'
	ubUInt8  = 'U'
	ubInt16  = 'I'
	ubInt32  = 'l'
	ubInt64  = 'L'
	ubFloat  = 'd'
	ubDouble = 'D'
	ubHighP  = 'H'
	ubString = 'S'
	ubArrayS = '['
	ubArrayE = ']'
	ubObjS   = '{'
	ubObjE   = '}'
	ubType   = '$'
	ubCount  = '#'
)

func parseUBJSON(data []byte) (Document, error) {
	r := &ubReader{buf: data}
	d, err := r.readValue()
	if err != nil {
		return Discarded(), err
	}
	if r.pos != len(r.buf) {
		return Discarded(), fmt.Errorf("trailing bytes after UBJSON value at offset %d", r.pos)
	}
	return d, nil
}

type ubReader struct {
	buf []byte
	pos int
}

func (r *ubReader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *ubReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readInt reads one length/count value: a marker byte identifying its
// width, followed by the integer itself, per the UBJSON "optimized
// integer" convention used for string lengths and container counts.
func (r *ubReader) readInt() (int64, error) {
	marker, err := r.byte()
	if err != nil {
		return 0, err
	}
	return r.readIntBody(marker)
}

func (r *ubReader) readIntBody(marker byte) (int64, error) {
	switch marker {
	case ubInt8:
		b, err := r.byte()
		return int64(int8(b)), err
	case ubUInt8:
		b, err := r.byte()
		return int64(b), err
	case ubInt16:
		b, err := r.take(2)
		if err != nil {
			return 0, err
		}
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case ubInt32:
		b, err := r.take(4)
		if err != nil {
			return 0, err
		}
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case ubInt64:
		b, err := r.take(8)
		if err != nil {
			return 0, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("docdb: expected an integer marker, got %q", marker)
	}
}

func (r *ubReader) readString() (string, error) {
	marker, err := r.byte()
	if err != nil {
		return "", err
	}
	if marker != ubString {
		return "", fmt.Errorf("docdb: expected string marker 'S', got %q", marker)
	}
	n, err := r.readInt()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readKey reads an object member name: a length-prefixed byte run
// with no leading 'S' marker, per the UBJSON object grammar.
func (r *ubReader) readKey() (string, error) {
	n, err := r.readInt()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *ubReader) readValue() (Document, error) {
	marker, err := r.byte()
	if err != nil {
		return Document{}, err
	}
	switch marker {
	case ubNull:
		return Null(), nil
	case ubTrue:
		return Bool(true), nil
	case ubFalse:
		return Bool(false), nil
	case ubInt8, ubUInt8, ubInt16, ubInt32, ubInt64:
		v, err := r.readIntBody(marker)
		return I64(v), err
	case ubFloat:
		b, err := r.take(4)
		if err != nil {
			return Document{}, err
		}
		return F64(float64(math.Float32frombits(binary.BigEndian.Uint32(b)))), nil
	case ubDouble:
		b, err := r.take(8)
		if err != nil {
			return Document{}, err
		}
		return F64(math.Float64frombits(binary.BigEndian.Uint64(b))), nil
	case ubHighP:
		s, err := r.readHighPString()
		if err != nil {
			return Document{}, err
		}
		return parseJSONNumber(s)
	case ubString:
		n, err := r.readInt()
		if err != nil {
			return Document{}, err
		}
		b, err := r.take(int(n))
		if err != nil {
			return Document{}, err
		}
		return Str(string(b)), nil
	case ubArrayS:
		return r.readArray()
	case ubObjS:
		return r.readObject()
	default:
		return Document{}, fmt.Errorf("docdb: unsupported UBJSON marker %q", marker)
	}
}

// readHighPString reads the length-prefixed ASCII decimal text that
// follows an 'H' marker, without the leading 'S'.
func (r *ubReader) readHighPString() (string, error) {
	n, err := r.readInt()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *ubReader) readArray() (Document, error) {
	// Peek for a strongly-typed byte array: "[$U#<count><bytes>".
	if r.pos < len(r.buf) && r.buf[r.pos] == ubType {
		save := r.pos
		r.pos++
		typeMarker, err := r.byte()
		if err != nil {
			return Document{}, err
		}
		if typeMarker == ubUInt8 {
			hash, err := r.byte()
			if err != nil || hash != ubCount {
				return Document{}, fmt.Errorf("docdb: malformed typed UBJSON array")
			}
			n, err := r.readInt()
			if err != nil {
				return Document{}, err
			}
			b, err := r.take(int(n))
			if err != nil {
				return Document{}, err
			}
			return Bin(append([]byte(nil), b...)), nil
		}
		// Not the byte-array convention we emit; rewind and fall through
		// to the generic element loop. Typed arrays of any other element
		// type are not supported: that loop rejects the '$' as an
		// unsupported marker.
		r.pos = save
	}

	var elems []Document
	for {
		if r.pos >= len(r.buf) {
			return Document{}, io.ErrUnexpectedEOF
		}
		if r.buf[r.pos] == ubArrayE {
			r.pos++
			return Arr(elems...), nil
		}
		v, err := r.readValue()
		if err != nil {
			return Document{}, err
		}
		elems = append(elems, v)
	}
}

func (r *ubReader) readObject() (Document, error) {
	obj := EmptyObj()
	for {
		if r.pos >= len(r.buf) {
			return Document{}, io.ErrUnexpectedEOF
		}
		if r.buf[r.pos] == ubObjE {
			r.pos++
			return obj, nil
		}
		key, err := r.readKey()
		if err != nil {
			return Document{}, err
		}
		v, err := r.readValue()
		if err != nil {
			return Document{}, err
		}
		obj.SetMember(key, v)
	}
}

func dumpUBJSON(w io.Writer, d Document) error {
	var buf bytes.Buffer
	if err := writeUBValue(&buf, d); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeUBValue(buf *bytes.Buffer, d Document) error {
	switch d.kind {
	case KindNull, KindDiscarded:
		buf.WriteByte(ubNull)
		return nil
	case KindBool:
		v, _ := d.AsBool()
		if v {
			buf.WriteByte(ubTrue)
		} else {
			buf.WriteByte(ubFalse)
		}
		return nil
	case KindI64:
		v, _ := d.AsI64()
		writeUBInt(buf, v)
		return nil
	case KindU64:
		v, _ := d.AsU64()
		if v <= math.MaxInt64 {
			writeUBInt(buf, int64(v))
		} else {
			s := strconv.FormatUint(v, 10)
			buf.WriteByte(ubHighP)
			writeUBLen(buf, len(s))
			buf.WriteString(s)
		}
		return nil
	case KindF64:
		v, _ := d.AsF64()
		buf.WriteByte(ubDouble)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
		return nil
	case KindStr:
		v, _ := d.AsStr()
		buf.WriteByte(ubString)
		writeUBLen(buf, len(v))
		buf.WriteString(v)
		return nil
	case KindBin:
		v, _ := d.AsBin()
		buf.WriteByte(ubArrayS)
		buf.WriteByte(ubType)
		buf.WriteByte(ubUInt8)
		buf.WriteByte(ubCount)
		writeUBLen(buf, len(v))
		buf.Write(v)
		return nil
	case KindArr:
		arr, _ := d.AsArr()
		buf.WriteByte(ubArrayS)
		for _, e := range arr {
			if err := writeUBValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(ubArrayE)
		return nil
	case KindObj:
		buf.WriteByte(ubObjS)
		for _, m := range d.Members() {
			writeUBLen(buf, len(m.Name))
			buf.WriteString(m.Name)
			if err := writeUBValue(buf, m.Val); err != nil {
				return err
			}
		}
		buf.WriteByte(ubObjE)
		return nil
	default:
		return fmt.Errorf("docdb: cannot dump Document kind %v as UBJSON", d.kind)
	}
}

// writeUBInt picks the narrowest integer marker that represents v
// exactly, matching the "optimized format" every UBJSON writer uses.
func writeUBInt(buf *bytes.Buffer, v int64) {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		buf.WriteByte(ubInt8)
		buf.WriteByte(byte(int8(v)))
	case v >= 0 && v <= math.MaxUint8:
		buf.WriteByte(ubUInt8)
		buf.WriteByte(byte(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		buf.WriteByte(ubInt16)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(int16(v)))
		buf.Write(b[:])
	case v >= math.MinInt32 && v <= math.MaxInt32:
		buf.WriteByte(ubInt32)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int32(v)))
		buf.Write(b[:])
	default:
		buf.WriteByte(ubInt64)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v))
		buf.Write(b[:])
	}
}

func writeUBLen(buf *bytes.Buffer, n int) {
	writeUBInt(buf, int64(n))
}
