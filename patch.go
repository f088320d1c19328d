package docdb

import (
	"bytes"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ApplyJSONPatch applies an RFC 6902 JSON Patch (patchJSON is the
// `[{"op": ..., "path": ..., ...}, ...]` operation list) to d, by
// round-tripping d through JSON text: evanphx/json-patch only speaks
// JSON bytes, and reimplementing its op/path/test semantics on the
// Document tree would just be a worse copy of a library that already
// gets RFC 6902 right.
func ApplyJSONPatch(d Document, patchJSON []byte) (Document, error) {
	orig, err := dumpToJSON(d)
	if err != nil {
		return Document{}, err
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return Document{}, &ArgumentInvalidError{Detail: "invalid JSON Patch: " + err.Error()}
	}
	out, err := patch.Apply(orig)
	if err != nil {
		return Document{}, err
	}
	return parseJSON(out)
}

// ApplyMergePatch applies an RFC 7396 JSON Merge Patch to d: object
// members set to null are deleted, other members are merged
// recursively, and a non-object patch simply replaces d outright.
func ApplyMergePatch(d Document, patchJSON []byte) (Document, error) {
	orig, err := dumpToJSON(d)
	if err != nil {
		return Document{}, err
	}
	out, err := jsonpatch.MergePatch(orig, patchJSON)
	if err != nil {
		return Document{}, err
	}
	return parseJSON(out)
}

func dumpToJSON(d Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Dump(&buf, d, FormatJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
