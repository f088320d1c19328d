package docdb

import (
	"strconv"
	"strings"
)

// Pointer is a compiled JSON Pointer (RFC 6901): an ordered list of
// already-unescaped tokens. An empty Pointer addresses the document
// root.
type Pointer []string

// ParsePointer compiles a JSON Pointer string. s must either be empty
// (root) or start with '/'; anything else is ArgumentInvalidError.
func ParsePointer(s string) (Pointer, error) {
	if s == "" {
		return nil, nil
	}
	if s[0] != '/' {
		return nil, &ArgumentInvalidError{Detail: "JSON Pointer must start with '/': " + s}
	}
	parts := strings.Split(s[1:], "/")
	tokens := make(Pointer, len(parts))
	for i, p := range parts {
		tokens[i] = unescapeToken(p)
	}
	return tokens, nil
}

func unescapeToken(tok string) string {
	if !strings.Contains(tok, "~") {
		return tok
	}
	var b strings.Builder
	b.Grow(len(tok))
	for i := 0; i < len(tok); i++ {
		if tok[i] == '~' && i+1 < len(tok) {
			switch tok[i+1] {
			case '0':
				b.WriteByte('~')
				i++
				continue
			case '1':
				b.WriteByte('/')
				i++
				continue
			}
		}
		b.WriteByte(tok[i])
	}
	return b.String()
}

func escapeToken(tok string) string {
	if !strings.ContainsAny(tok, "~/") {
		return tok
	}
	tok = strings.ReplaceAll(tok, "~", "~0")
	tok = strings.ReplaceAll(tok, "/", "~1")
	return tok
}

func itoaToken(i int) string { return strconv.Itoa(i) }

// String re-encodes the pointer into RFC 6901 textual form.
func (p Pointer) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range p {
		b.WriteByte('/')
		b.WriteString(escapeToken(t))
	}
	return b.String()
}

// Clone returns an independent copy, since Pointer values built during
// flattening get reused as append targets.
func (p Pointer) Clone() Pointer {
	out := make(Pointer, len(p))
	copy(out, p)
	return out
}

// Resolve walks d following the pointer's tokens. ok is false if any
// intermediate token is missing, or indexes past the end of an array,
// or descends into a scalar.
func (p Pointer) Resolve(d Document) (Document, bool) {
	cur := d
	for _, tok := range p {
		switch cur.kind {
		case KindObj:
			v, ok := cur.Member(tok)
			if !ok {
				return Document{}, false
			}
			cur = v
		case KindArr:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(cur.arr) {
				return Document{}, false
			}
			cur = cur.arr[idx]
		default:
			return Document{}, false
		}
	}
	return cur, true
}

// Assign writes v at the location addressed by p, creating missing
// intermediate objects as needed. An array index equal to the array's
// length appends (an empty object, when the index is not the last
// token); an index past that is an error.
func (p Pointer) Assign(d *Document, v Document) error {
	if len(p) == 0 {
		*d = v
		return nil
	}
	cur := d
	for i, tok := range p {
		last := i == len(p)-1
		switch cur.kind {
		case KindNull:
			cur.kind = KindObj
			fallthrough
		case KindObj:
			if last {
				cur.SetMember(tok, v)
				return nil
			}
			existing, ok := cur.Member(tok)
			if !ok {
				existing = EmptyObj()
			}
			cur.SetMember(tok, existing)
			// re-fetch a pointer into the stored slot
			idx := cur.memberIndex(tok)
			cur = &cur.obj[idx].val
		case KindArr:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx > len(cur.arr) {
				return &ArgumentInvalidError{Detail: "JSON Pointer array index out of range: " + tok}
			}
			if last {
				if idx == len(cur.arr) {
					cur.arr = append(cur.arr, v)
				} else {
					cur.arr[idx] = v
				}
				return nil
			}
			if idx == len(cur.arr) {
				cur.arr = append(cur.arr, EmptyObj())
			}
			cur = &cur.arr[idx]
		default:
			return &ArgumentInvalidError{Detail: "JSON Pointer descends into a scalar at token: " + tok}
		}
	}
	return nil
}

func (d Document) memberIndex(name string) int {
	for i, m := range d.obj {
		if m.name == name {
			return i
		}
	}
	return -1
}
