package docdb

import (
	"bytes"
	"sort"
)

// Kind tags the variant held by a Document.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI64
	KindU64
	KindF64
	KindStr
	KindBin
	KindArr
	KindObj
	// KindDiscarded signals a parse failure. A discarded Document is
	// never valid to store.
	KindDiscarded
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF64:
		return "f64"
	case KindStr:
		return "str"
	case KindBin:
		return "bin"
	case KindArr:
		return "arr"
	case KindObj:
		return "obj"
	case KindDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// member is one name/value pair of an object. Objects keep members
// sorted by name so lookup is a binary search and dumps are stable
// regardless of how the document was built.
type member struct {
	name string
	val  Document
}

// Document is a recursive JSON-like value: the in-memory form every
// codec parses into and dumps out of. The zero Document is KindNull.
type Document struct {
	kind Kind
	b    bool
	i64  int64
	u64  uint64
	f64  float64
	str  string
	bin  []byte
	arr  []Document
	obj  []member
}

// Null returns the null Document.
func Null() Document { return Document{kind: KindNull} }

// Discarded returns the sentinel for a failed parse.
func Discarded() Document { return Document{kind: KindDiscarded} }

// Bool, I64, U64, F64, Str, Bin construct scalar/leaf Documents.
func Bool(v bool) Document    { return Document{kind: KindBool, b: v} }
func I64(v int64) Document    { return Document{kind: KindI64, i64: v} }
func U64(v uint64) Document   { return Document{kind: KindU64, u64: v} }
func F64(v float64) Document  { return Document{kind: KindF64, f64: v} }
func Str(v string) Document   { return Document{kind: KindStr, str: v} }
func Bin(v []byte) Document   { return Document{kind: KindBin, bin: v} }

// Arr constructs an array Document from its elements.
func Arr(items ...Document) Document {
	return Document{kind: KindArr, arr: items}
}

// Obj constructs an object Document from name/value pairs, sorting
// members by name and keeping the last value for duplicate names.
func Obj(pairs map[string]Document) Document {
	members := make([]member, 0, len(pairs))
	for k, v := range pairs {
		members = append(members, member{k, v})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })
	return Document{kind: KindObj, obj: members}
}

// EmptyObj returns an empty, mutable object Document.
func EmptyObj() Document { return Document{kind: KindObj} }

func (d Document) Kind() Kind        { return d.kind }
func (d Document) IsDiscarded() bool { return d.kind == KindDiscarded }
func (d Document) IsNull() bool      { return d.kind == KindNull }

func (d Document) AsBool() (bool, bool)       { return d.b, d.kind == KindBool }
func (d Document) AsI64() (int64, bool)       { return d.i64, d.kind == KindI64 }
func (d Document) AsU64() (uint64, bool)      { return d.u64, d.kind == KindU64 }
func (d Document) AsF64() (float64, bool)     { return d.f64, d.kind == KindF64 }
func (d Document) AsStr() (string, bool)      { return d.str, d.kind == KindStr }
func (d Document) AsBin() ([]byte, bool)      { return d.bin, d.kind == KindBin }
func (d Document) AsArr() ([]Document, bool)  { return d.arr, d.kind == KindArr }

// Len returns the number of elements (array) or members (object); 0 for
// anything else.
func (d Document) Len() int {
	switch d.kind {
	case KindArr:
		return len(d.arr)
	case KindObj:
		return len(d.obj)
	default:
		return 0
	}
}

// Member looks up a top-level member by name. ok is false if d is not
// an object or has no such member.
func (d Document) Member(name string) (Document, bool) {
	if d.kind != KindObj {
		return Document{}, false
	}
	i := sort.Search(len(d.obj), func(i int) bool { return d.obj[i].name >= name })
	if i < len(d.obj) && d.obj[i].name == name {
		return d.obj[i].val, true
	}
	return Document{}, false
}

// Members returns the object's members in sorted-name order. Returns
// nil if d is not an object.
func (d Document) Members() []struct {
	Name string
	Val  Document
} {
	if d.kind != KindObj {
		return nil
	}
	out := make([]struct {
		Name string
		Val  Document
	}, len(d.obj))
	for i, m := range d.obj {
		out[i].Name = m.name
		out[i].Val = m.val
	}
	return out
}

// SetMember assigns name to v, inserting or replacing it. Converts d to
// an (empty) object first if it was null; panics if d is a non-object,
// non-null kind, since that is always a programmer error.
func (d *Document) SetMember(name string, v Document) {
	if d.kind == KindNull {
		d.kind = KindObj
	}
	if d.kind != KindObj {
		panic("docdb: SetMember on a non-object Document")
	}
	i := sort.Search(len(d.obj), func(i int) bool { return d.obj[i].name >= name })
	if i < len(d.obj) && d.obj[i].name == name {
		d.obj[i].val = v
		return
	}
	d.obj = append(d.obj, member{})
	copy(d.obj[i+1:], d.obj[i:])
	d.obj[i] = member{name, v}
}

// DeleteMember removes name from the object, if present. No-op if d is
// not an object or has no such member.
func (d *Document) DeleteMember(name string) {
	if d.kind != KindObj {
		return
	}
	i := sort.Search(len(d.obj), func(i int) bool { return d.obj[i].name >= name })
	if i < len(d.obj) && d.obj[i].name == name {
		d.obj = append(d.obj[:i], d.obj[i+1:]...)
	}
}

// Equal reports deep structural equality. Used by round-trip property
// tests; NaN floats compare unequal to everything, including
// themselves, matching IEEE-754 semantics.
func (d Document) Equal(o Document) bool {
	if d.kind != o.kind {
		return false
	}
	switch d.kind {
	case KindNull, KindDiscarded:
		return true
	case KindBool:
		return d.b == o.b
	case KindI64:
		return d.i64 == o.i64
	case KindU64:
		return d.u64 == o.u64
	case KindF64:
		return d.f64 == o.f64
	case KindStr:
		return d.str == o.str
	case KindBin:
		return bytes.Equal(d.bin, o.bin)
	case KindArr:
		if len(d.arr) != len(o.arr) {
			return false
		}
		for i := range d.arr {
			if !d.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObj:
		if len(d.obj) != len(o.obj) {
			return false
		}
		for i := range d.obj {
			if d.obj[i].name != o.obj[i].name || !d.obj[i].val.Equal(o.obj[i].val) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// flattenInto walks d and appends one (path, value) pair per leaf
// (scalar, string, or binary) reachable from the root; DocsGist
// accumulates these across a batch.
func (d Document) flattenInto(prefix Pointer, out *[]flatLeaf) {
	switch d.kind {
	case KindArr:
		for i, el := range d.arr {
			el.flattenInto(append(prefix, itoaToken(i)), out)
		}
	case KindObj:
		for _, m := range d.obj {
			m.val.flattenInto(append(prefix, m.name), out)
		}
	case KindNull:
		// Null is a leaf: a member explicitly set to null still
		// contributes its path.
		*out = append(*out, flatLeaf{prefix.Clone(), d})
	default:
		*out = append(*out, flatLeaf{prefix.Clone(), d})
	}
}

type flatLeaf struct {
	path Pointer
	val  Document
}
