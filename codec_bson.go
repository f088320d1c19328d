package docdb

import (
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// parseBSON decodes a BSON document. The root must be a document
// (bson.D/bson.M), same restriction BSON itself imposes: there is no
// such thing as a top-level BSON scalar or array.
func parseBSON(data []byte) (Document, error) {
	var v bson.M
	if err := bson.Unmarshal(data, &v); err != nil {
		return Discarded(), err
	}
	return fromGoValue(bsonToAny(v))
}

// bsonToAny recursively replaces bson.M/bson.D/bson.A with the plain
// map[string]any/[]any fromGoValue already knows how to walk, and
// widens the handful of BSON-specific value types (nested documents
// decode as bson.D under the driver's default registry, binary fields
// as primitive.Binary).
func bsonToAny(v any) any {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = bsonToAny(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = bsonToAny(e.Value)
		}
		return out
	case primitive.Binary:
		return x.Data
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = bsonToAny(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = bsonToAny(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = bsonToAny(e)
		}
		return out
	case int32:
		return int64(x)
	default:
		return x
	}
}

func dumpBSON(w io.Writer, d Document) error {
	if d.Kind() != KindObj {
		return &UnsupportedFormatError{Format: FormatBSON, Detail: "root is not an object, got " + d.Kind().String()}
	}
	b, err := bson.Marshal(toGoValue(d))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
