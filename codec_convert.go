package docdb

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// toGoValue renders d as the generic Go value a third-party
// marshaler (msgpack, cbor, bson) expects to encode: maps, slices,
// and the usual scalar types.
func toGoValue(d Document) any {
	switch d.kind {
	case KindNull, KindDiscarded:
		return nil
	case KindBool:
		v, _ := d.AsBool()
		return v
	case KindI64:
		v, _ := d.AsI64()
		return v
	case KindU64:
		v, _ := d.AsU64()
		return v
	case KindF64:
		v, _ := d.AsF64()
		return v
	case KindStr:
		v, _ := d.AsStr()
		return v
	case KindBin:
		v, _ := d.AsBin()
		if v == nil {
			// A nil slice would encode as null rather than a zero-length
			// byte string.
			return []byte{}
		}
		return v
	case KindArr:
		arr, _ := d.AsArr()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = toGoValue(e)
		}
		return out
	case KindObj:
		out := make(map[string]any, d.Len())
		for _, m := range d.Members() {
			out[m.Name] = toGoValue(m.Val)
		}
		return out
	default:
		return nil
	}
}

// fromGoValue is the inverse of toGoValue: it accepts whatever a
// third-party decoder produced for an `any` target and builds the
// equivalent Document.
//
// Integers are normalized: every value representable as int64 becomes
// KindI64, and KindU64 appears only for values above MaxInt64. The
// compact integer encodings of MessagePack, CBOR and UBJSON all erase
// the signed/unsigned distinction for small values, so without this
// rule the same number could come back under a different Kind than it
// went in with and round trips would not be stable.
func fromGoValue(v any) (Document, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case int:
		return I64(int64(x)), nil
	case int8:
		return I64(int64(x)), nil
	case int16:
		return I64(int64(x)), nil
	case int32:
		return I64(int64(x)), nil
	case int64:
		return I64(x), nil
	case uint:
		return normUint(uint64(x)), nil
	case uint8:
		return I64(int64(x)), nil
	case uint16:
		return I64(int64(x)), nil
	case uint32:
		return I64(int64(x)), nil
	case uint64:
		return normUint(x), nil
	case float32:
		return F64(float64(x)), nil
	case float64:
		return F64(x), nil
	case json.Number:
		return parseJSONNumber(string(x))
	case string:
		return Str(x), nil
	case []byte:
		return Bin(append([]byte(nil), x...)), nil
	case []any:
		arr := make([]Document, len(x))
		for i, e := range x {
			d, err := fromGoValue(e)
			if err != nil {
				return Document{}, err
			}
			arr[i] = d
		}
		return Arr(arr...), nil
	case map[string]any:
		pairs := make(map[string]Document, len(x))
		for k, e := range x {
			d, err := fromGoValue(e)
			if err != nil {
				return Document{}, err
			}
			pairs[k] = d
		}
		return Obj(pairs), nil
	case map[any]any:
		// Some decoders (e.g. cbor with its default map type) hand back
		// untyped-key maps; every key a real document codec produces is
		// itself a string, so this only ever widens the key type.
		pairs := make(map[string]Document, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return Document{}, fmt.Errorf("docdb: non-string map key %v (%T)", k, k)
			}
			d, err := fromGoValue(e)
			if err != nil {
				return Document{}, err
			}
			pairs[ks] = d
		}
		return Obj(pairs), nil
	default:
		return Document{}, fmt.Errorf("docdb: unsupported decoded value of type %T", v)
	}
}

// normUint applies the integer normalization rule from fromGoValue's
// doc comment.
func normUint(v uint64) Document {
	if v <= math.MaxInt64 {
		return I64(int64(v))
	}
	return U64(v)
}

// parseJSONNumber classifies a JSON number token: prefer the
// narrowest exact representation, signed before unsigned before
// floating point.
func parseJSONNumber(s string) (Document, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return I64(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return U64(u), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return F64(f), nil
	}
	return Document{}, fmt.Errorf("docdb: invalid JSON number %q", s)
}
