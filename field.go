package docdb

// FieldSelector addresses a sub-document inside a Document: either the
// whole document (nil/empty Pointer), a single top-level member name,
// or a compiled JSON Pointer. It is represented as a Pointer because a
// bare member name "foo" and the pointer "/foo" resolve identically —
// one token, looked up at the root — so the addressing code in
// pointer.go already does the right thing for both shapes.
type FieldSelector = Pointer

// ParseFieldSelector compiles a raw field string: empty
// selects the whole document, a leading '/' compiles as a JSON Pointer
// (RFC 6901, with '~0'/'~1' escaping), anything else is a single
// top-level member name applied at the root.
func ParseFieldSelector(s string) (FieldSelector, error) {
	if s == "" {
		return nil, nil
	}
	if s[0] == '/' {
		return ParsePointer(s)
	}
	return FieldSelector{s}, nil
}
