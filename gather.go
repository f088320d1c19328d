package docdb

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/apache/arrow/go/v11/arrow/bitutil"
	"github.com/apache/arrow/go/v11/arrow/float16"
	"github.com/google/uuid"
)

// CellType tags the target element type of one DocsGather output
// column.
type CellType uint8

const (
	CellBool CellType = iota
	CellI8
	CellI16
	CellI32
	CellI64
	CellU8
	CellU16
	CellU32
	CellU64
	CellF16
	CellF32
	CellF64
	CellUUID
	CellStr
	CellBin
	CellNull
)

// isVariableLength reports whether t's cells live in the joined string
// tape (offset+length pairs) rather than a fixed-width scalar buffer.
func (t CellType) isVariableLength() bool { return t == CellStr || t == CellBin }

// cellWidth returns the fixed byte width of t's scalar representation,
// or 0 for variable-length/null types.
func cellWidth(t CellType) int {
	switch t {
	case CellBool, CellI8, CellU8:
		return 1
	case CellI16, CellU16, CellF16:
		return 2
	case CellI32, CellU32, CellF32:
		return 4
	case CellI64, CellU64, CellF64:
		return 8
	case CellUUID:
		return 16
	default:
		return 0
	}
}

// GatherColumn holds one requested field's output buffers: Arrow-style
// validity/conversion/collision bitmaps plus either a packed
// fixed-width Scalars buffer (little-endian) or parallel StrOffsets/
// StrLengths into the call's shared JoinedStrings tape.
type GatherColumn struct {
	Type       CellType
	Validity   []byte
	Conversion []byte
	Collision  []byte
	Scalars    []byte
	StrOffsets []int32
	StrLengths []int32
}

// GatherResult is the output of DocsGather: one GatherColumn per
// requested field, all variable-length cell bytes for every column
// joined into a single shared tape.
type GatherResult struct {
	Columns       []GatherColumn
	JoinedStrings []byte
}

// DocsGather projects N documents (ids) through M typed field
// selectors into columnar buffers: one KV read and one
// parse per unique document, then a best-effort lexical/numeric
// coercion per (document, field) cell into the requested CellType.
func (tx *Tx) DocsGather(ids []DocumentId, fields []FieldSelector, types []CellType) (*GatherResult, error) {
	if len(fields) != len(types) {
		return nil, &ArgumentInvalidError{Detail: "fields and types must be the same length"}
	}

	plan := planBatch(ids)
	tx.logPlan("DocsGather", len(ids), plan)
	raw, err := tx.kvReadUnique(plan)
	if err != nil {
		return nil, err
	}
	docs, err := parseUniqueDocs(plan, raw)
	if err != nil {
		return nil, err
	}

	n := len(ids)
	m := len(fields)
	bitmapLen := int(bitutil.BytesForBits(int64(n)))

	columns := make([]GatherColumn, m)
	for j := range columns {
		columns[j] = GatherColumn{
			Type:       types[j],
			Validity:   make([]byte, bitmapLen),
			Conversion: make([]byte, bitmapLen),
			Collision:  make([]byte, bitmapLen),
		}
		if types[j].isVariableLength() {
			columns[j].StrOffsets = make([]int32, n)
			columns[j].StrLengths = make([]int32, n)
		} else {
			columns[j].Scalars = make([]byte, n*cellWidth(types[j]))
		}
	}

	var joined []byte
	for i := range ids {
		ui := plan.UniqueIndex(i)
		doc := docs[ui]
		for j := range fields {
			sub, found := doc, true
			if len(fields[j]) > 0 {
				sub, found = fields[j].Resolve(doc)
			} else if doc.IsDiscarded() {
				found = false
			}

			res := coerceCell(sub, found, types[j])

			// Update order matters: conversion and
			// collision first, validity last, so a reader never
			// observes validity=1 before the payload column it
			// depends on is written.
			bitutil.SetBitTo(columns[j].Conversion, i, res.conversion)
			bitutil.SetBitTo(columns[j].Collision, i, res.collision)

			if res.validity {
				if types[j].isVariableLength() {
					off := len(joined)
					joined = append(joined, res.str...)
					columns[j].StrOffsets[i] = int32(off)
					columns[j].StrLengths[i] = int32(len(res.str))
				} else {
					w := cellWidth(types[j])
					copy(columns[j].Scalars[i*w:(i+1)*w], res.scalar)
				}
			}
			bitutil.SetBitTo(columns[j].Validity, i, res.validity)
		}
	}

	return &GatherResult{Columns: columns, JoinedStrings: joined}, nil
}

// cellResult is the outcome of coercing one source Document into one
// target CellType: at most one of (validity) or (collision) is ever
// true, and a payload accompanies validity only.
type cellResult struct {
	validity   bool
	conversion bool
	collision  bool
	scalar     []byte // fixed-width, little-endian, len == cellWidth(target)
	str        []byte // variable-length payload for Str/Bin targets
}

// coerceCell maps one source value onto one target cell.
func coerceCell(sub Document, found bool, t CellType) cellResult {
	if t == CellNull {
		return cellResult{}
	}
	if !found || sub.Kind() == KindNull {
		return cellResult{}
	}
	switch sub.Kind() {
	case KindObj, KindArr, KindDiscarded:
		return cellResult{collision: true}
	}

	switch t {
	case CellStr:
		return coerceToStr(sub)
	case CellBin:
		return coerceToBin(sub)
	case CellUUID:
		return coerceToUUID(sub)
	default:
		return coerceToScalar(sub, t)
	}
}

func coerceToStr(sub Document) cellResult {
	switch sub.Kind() {
	case KindStr:
		s, _ := sub.AsStr()
		return cellResult{validity: true, str: []byte(s)}
	case KindBool:
		b, _ := sub.AsBool()
		txt := "false"
		if b {
			txt = "true"
		}
		return cellResult{validity: true, conversion: true, str: []byte(txt)}
	case KindI64:
		v, _ := sub.AsI64()
		return cellResult{validity: true, conversion: true, str: []byte(strconv.FormatInt(v, 10))}
	case KindU64:
		v, _ := sub.AsU64()
		return cellResult{validity: true, conversion: true, str: []byte(strconv.FormatUint(v, 10))}
	case KindF64:
		v, _ := sub.AsF64()
		return cellResult{validity: true, conversion: true, str: []byte(strconv.FormatFloat(v, 'g', -1, 64))}
	default:
		return cellResult{collision: true}
	}
}

func coerceToBin(sub Document) cellResult {
	switch sub.Kind() {
	case KindBin:
		b, _ := sub.AsBin()
		return cellResult{validity: true, str: append([]byte(nil), b...)}
	case KindStr:
		s, _ := sub.AsStr()
		return cellResult{validity: true, conversion: true, str: []byte(s)}
	default:
		return cellResult{collision: true}
	}
}

func coerceToUUID(sub Document) cellResult {
	switch sub.Kind() {
	case KindBin:
		b, _ := sub.AsBin()
		if len(b) != 16 {
			return cellResult{collision: true}
		}
		return cellResult{validity: true, scalar: append([]byte(nil), b...)}
	case KindStr:
		s, _ := sub.AsStr()
		u, err := uuid.Parse(s)
		if err != nil {
			return cellResult{collision: true}
		}
		raw := u[:]
		return cellResult{validity: true, conversion: true, scalar: append([]byte(nil), raw...)}
	default:
		return cellResult{collision: true}
	}
}

func coerceToScalar(sub Document, t CellType) cellResult {
	switch sub.Kind() {
	case KindBin:
		b, _ := sub.AsBin()
		if len(b) != cellWidth(t) {
			return cellResult{collision: true}
		}
		return cellResult{validity: true, scalar: append([]byte(nil), b...)}
	case KindStr:
		s, _ := sub.AsStr()
		return coerceStrToScalar(s, t)
	case KindBool:
		b, _ := sub.AsBool()
		return coerceBoolToScalar(b, t)
	case KindI64:
		v, _ := sub.AsI64()
		return coerceNumericToScalar(t, KindI64, v, 0, 0)
	case KindU64:
		v, _ := sub.AsU64()
		return coerceNumericToScalar(t, KindU64, 0, v, 0)
	case KindF64:
		v, _ := sub.AsF64()
		return coerceNumericToScalar(t, KindF64, 0, 0, v)
	default:
		return cellResult{collision: true}
	}
}

func coerceBoolToScalar(b bool, t CellType) cellResult {
	if t == CellBool {
		var raw [1]byte
		if b {
			raw[0] = 1
		}
		return cellResult{validity: true, scalar: raw[:]}
	}
	var iv int64
	if b {
		iv = 1
	}
	switch {
	case t >= CellI8 && t <= CellI64:
		return cellResult{validity: true, conversion: true, scalar: encodeSignedWidth(t, iv)}
	case t >= CellU8 && t <= CellU64:
		return cellResult{validity: true, conversion: true, scalar: encodeUnsignedWidth(t, uint64(iv))}
	case t >= CellF16 && t <= CellF64:
		return cellResult{validity: true, conversion: true, scalar: encodeFloatWidth(t, float64(iv))}
	default:
		return cellResult{collision: true}
	}
}

// coerceNumericToScalar handles int/uint/float → scalar target casts
// (bool sources go through coerceBoolToScalar). The conversion bit
// compares the source's native type class
// against the target's: an i64 cell gathered into an i32 column is a
// width adjustment within one class and stays unflagged, while i64
// into f32 or bool into i32 crosses classes and sets conversion.
// srcKind is one of KindI64, KindU64, KindF64; exactly one of
// i64/u64/f64 is populated accordingly.
func coerceNumericToScalar(t CellType, srcKind Kind, i64 int64, u64 uint64, f64 float64) cellResult {
	conversion := classOfKind(srcKind) != classOfCell(t)
	switch {
	case t == CellBool:
		var v bool
		switch srcKind {
		case KindI64:
			v = i64 != 0
		case KindU64:
			v = u64 != 0
		case KindF64:
			v = f64 != 0
		}
		var raw [1]byte
		if v {
			raw[0] = 1
		}
		return cellResult{validity: true, conversion: conversion, scalar: raw[:]}
	case t >= CellI8 && t <= CellI64:
		var v int64
		switch srcKind {
		case KindI64:
			v = i64
		case KindU64:
			v = int64(u64)
		case KindF64:
			v = int64(f64)
		}
		return cellResult{validity: true, conversion: conversion, scalar: encodeSignedWidth(t, v)}
	case t >= CellU8 && t <= CellU64:
		var v uint64
		switch srcKind {
		case KindI64:
			v = uint64(i64)
		case KindU64:
			v = u64
		case KindF64:
			v = uint64(f64)
		}
		return cellResult{validity: true, conversion: conversion, scalar: encodeUnsignedWidth(t, v)}
	case t >= CellF16 && t <= CellF64:
		var v float64
		switch srcKind {
		case KindI64:
			v = float64(i64)
		case KindU64:
			v = float64(u64)
		case KindF64:
			v = f64
		}
		return cellResult{validity: true, conversion: conversion, scalar: encodeFloatWidth(t, v)}
	default:
		return cellResult{collision: true}
	}
}

// cellClass buckets CellTypes and Document Kinds into the type
// classes the conversion bit compares: bool, signed integer, unsigned
// integer, float.
type cellClass uint8

const (
	classOther cellClass = iota
	classBool
	classInt
	classUint
	classFloat
)

func classOfCell(t CellType) cellClass {
	switch {
	case t == CellBool:
		return classBool
	case t >= CellI8 && t <= CellI64:
		return classInt
	case t >= CellU8 && t <= CellU64:
		return classUint
	case t >= CellF16 && t <= CellF64:
		return classFloat
	default:
		return classOther
	}
}

func classOfKind(k Kind) cellClass {
	switch k {
	case KindBool:
		return classBool
	case KindI64:
		return classInt
	case KindU64:
		return classUint
	case KindF64:
		return classFloat
	default:
		return classOther
	}
}

// coerceStrToScalar implements the "full-string match required" rule:
// a string cell coerces into a scalar target only if the whole string
// parses as that target's literal form.
func coerceStrToScalar(s string, t CellType) cellResult {
	switch {
	case t == CellBool:
		switch s {
		case "true":
			return cellResult{validity: true, conversion: true, scalar: []byte{1}}
		case "false":
			return cellResult{validity: true, conversion: true, scalar: []byte{0}}
		default:
			return cellResult{collision: true}
		}
	case t >= CellI8 && t <= CellI64:
		v, err := strconv.ParseInt(s, 10, bitsForSigned(t))
		if err != nil {
			return cellResult{collision: true}
		}
		return cellResult{validity: true, conversion: true, scalar: encodeSignedWidth(t, v)}
	case t >= CellU8 && t <= CellU64:
		v, err := strconv.ParseUint(s, 10, bitsForUnsigned(t))
		if err != nil {
			return cellResult{collision: true}
		}
		return cellResult{validity: true, conversion: true, scalar: encodeUnsignedWidth(t, v)}
	case t >= CellF16 && t <= CellF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return cellResult{collision: true}
		}
		return cellResult{validity: true, conversion: true, scalar: encodeFloatWidth(t, v)}
	default:
		return cellResult{collision: true}
	}
}

func bitsForSigned(t CellType) int {
	switch t {
	case CellI8:
		return 8
	case CellI16:
		return 16
	case CellI32:
		return 32
	default:
		return 64
	}
}

func bitsForUnsigned(t CellType) int {
	switch t {
	case CellU8:
		return 8
	case CellU16:
		return 16
	case CellU32:
		return 32
	default:
		return 64
	}
}

func encodeSignedWidth(t CellType, v int64) []byte {
	w := cellWidth(t)
	buf := make([]byte, w)
	switch w {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	}
	return buf
}

func encodeUnsignedWidth(t CellType, v uint64) []byte {
	w := cellWidth(t)
	buf := make([]byte, w)
	switch w {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	}
	return buf
}

func encodeFloatWidth(t CellType, v float64) []byte {
	switch t {
	case CellF16:
		buf := make([]byte, 2)
		h := float16.New(float32(v))
		binary.LittleEndian.PutUint16(buf, h.Uint16())
		return buf
	case CellF32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return buf
	default:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		return buf
	}
}
