package docdb

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func dumpBytes(t testing.TB, d Document, f Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Dump(&buf, d, f); err != nil {
		t.Fatalf("Dump(%v): %v", f, err)
	}
	return buf.Bytes()
}

func reparse(t testing.TB, d Document, f Format) Document {
	t.Helper()
	out, err := Parse(f, dumpBytes(t, d, f))
	if err != nil {
		t.Fatalf("Parse(%v): %v", f, err)
	}
	return out
}

func checkRoundTrip(t *testing.T, d Document, f Format) {
	t.Helper()
	got := reparse(t, d, f)
	if !got.Equal(d) {
		t.Errorf("round trip via %v = %v, wanted %v", f, toGoValue(got), toGoValue(d))
	}
}

// sampleDoc exercises every Document kind inside one tree.
func sampleDoc() Document {
	return Obj(map[string]Document{
		"null": Null(),
		"t":    Bool(true),
		"f":    Bool(false),
		"neg":  I64(-123456789),
		"pos":  I64(4095),
		"big":  U64(math.MaxUint64 - 5),
		"pi":   F64(3.25),
		"s":    Str("héllo ~/ world"),
		"b":    Bin([]byte{0, 1, 2, 254, 255}),
		"arr":  Arr(I64(1), Str("two"), F64(2.5), Null()),
		"o":    Obj(map[string]Document{"nested": I64(7), "deep": Arr(Bool(false))}),
	})
}

func TestRoundTripInternalBinary(t *testing.T) {
	checkRoundTrip(t, sampleDoc(), FormatInternalBinary)
}

func TestRoundTripCBOR(t *testing.T) {
	checkRoundTrip(t, sampleDoc(), FormatCBOR)
}

func TestRoundTripUBJSON(t *testing.T) {
	checkRoundTrip(t, sampleDoc(), FormatUBJSON)
}

func TestRoundTripJSON(t *testing.T) {
	// Textual JSON cannot carry binary blobs (they come back as
	// base64 strings), so the sample excludes them.
	d := sampleDoc()
	d.DeleteMember("b")
	checkRoundTrip(t, d, FormatJSON)
}

func TestRoundTripBSON(t *testing.T) {
	// BSON has no uint64 type, so values above MaxInt64 are out.
	d := sampleDoc()
	d.DeleteMember("big")
	checkRoundTrip(t, d, FormatBSON)
}

func TestRoundTripScalarRoots(t *testing.T) {
	scalars := []Document{
		Null(),
		Bool(true),
		I64(-1),
		I64(200), // fits uint8 but not int8; exercises narrow encodings
		U64(math.MaxUint64),
		F64(-0.5),
		Str(""),
		Str("plain"),
		Bin(nil),
		Bin([]byte{42}),
		Arr(),
		Arr(I64(1), I64(2)),
	}
	for _, d := range scalars {
		for _, f := range []Format{FormatInternalBinary, FormatCBOR, FormatUBJSON} {
			checkRoundTrip(t, d, f)
		}
	}
}

func randomDoc(rnd *rand.Rand, depth int) Document {
	k := rnd.Intn(9)
	if depth <= 0 && k >= 7 {
		k = rnd.Intn(7)
	}
	switch k {
	case 0:
		return Null()
	case 1:
		return Bool(rnd.Intn(2) == 0)
	case 2:
		return I64(rnd.Int63() - rnd.Int63())
	case 3:
		// U64 only holds values above MaxInt64; smaller unsigned values
		// normalize to I64 on parse.
		return U64(uint64(math.MaxInt64) + 1 + uint64(rnd.Int63()))
	case 4:
		return F64(rnd.NormFloat64() * 1e6)
	case 5:
		return Str(randomString(rnd))
	case 6:
		b := make([]byte, rnd.Intn(12))
		rnd.Read(b)
		return Bin(b)
	case 7:
		n := rnd.Intn(4)
		elems := make([]Document, n)
		for i := range elems {
			elems[i] = randomDoc(rnd, depth-1)
		}
		return Arr(elems...)
	default:
		n := rnd.Intn(4)
		pairs := make(map[string]Document, n)
		for i := 0; i < n; i++ {
			pairs[randomString(rnd)] = randomDoc(rnd, depth-1)
		}
		return Obj(pairs)
	}
}

func randomString(rnd *rand.Rand) string {
	const alphabet = "abcdefghijklmnop/~0 é"
	n := rnd.Intn(10)
	b := make([]rune, n)
	for i := range b {
		b[i] = []rune(alphabet)[rnd.Intn(len([]rune(alphabet)))]
	}
	return string(b)
}

func TestRoundTripRandomDocs(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		d := randomDoc(rnd, 3)
		for _, f := range []Format{FormatInternalBinary, FormatCBOR, FormatUBJSON} {
			got := reparse(t, d, f)
			if !got.Equal(d) {
				t.Fatalf("iteration %d: round trip via %v = %v, wanted %v", i, f, toGoValue(got), toGoValue(d))
			}
		}
	}
}

func TestParseJSONRejectsTrailingGarbage(t *testing.T) {
	if _, err := Parse(FormatJSON, []byte(`{"a":1} trailing`)); err == nil {
		t.Fatalf("Parse(JSON with trailing garbage) err = nil, wanted error")
	}
	// Trailing whitespace is fine.
	if _, err := Parse(FormatJSON, []byte("{\"a\":1}\n  ")); err != nil {
		t.Fatalf("Parse(JSON with trailing whitespace): %v", err)
	}
}

func TestParseMsgpackRejectsTrailingBytes(t *testing.T) {
	b := dumpBytes(t, I64(5), FormatInternalBinary)
	b = append(b, 0xcc)
	if _, err := Parse(FormatInternalBinary, b); err == nil {
		t.Fatalf("Parse(msgpack with trailing bytes) err = nil, wanted error")
	}
}

func TestDumpRawBinary(t *testing.T) {
	var buf bytes.Buffer
	if err := Dump(&buf, Bin([]byte{1, 2, 3}), FormatRawBinary); err != nil {
		t.Fatalf("Dump(raw binary leaf): %v", err)
	}
	deepEqual(t, buf.Bytes(), []byte{1, 2, 3})

	buf.Reset()
	err := Dump(&buf, sampleDoc(), FormatRawBinary)
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("Dump(raw binary of object root) err = %v, wanted UnsupportedFormatError", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("rejected raw-binary dump wrote %d bytes, wanted none", buf.Len())
	}
}

func TestParseRawBinary(t *testing.T) {
	parsed, err := Parse(FormatRawBinary, []byte{9, 8, 7})
	d := mustID(t, parsed, err)
	if !d.Equal(Bin([]byte{9, 8, 7})) {
		t.Fatalf("Parse(raw binary) = %v, wanted binary leaf", d.Kind())
	}
}

func TestDumpBSONRequiresObjectRoot(t *testing.T) {
	var buf bytes.Buffer
	err := Dump(&buf, I64(5), FormatBSON)
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("Dump(BSON of scalar root) err = %v, wanted UnsupportedFormatError", err)
	}
}

func TestPatchModesHaveNoValueCodec(t *testing.T) {
	for _, f := range []Format{FormatJSONPatch, FormatJSONMergePatch} {
		if _, err := Parse(f, []byte(`{}`)); err == nil {
			t.Fatalf("Parse(%v) err = nil, wanted error", f)
		}
		if err := Dump(&bytes.Buffer{}, Null(), f); err == nil {
			t.Fatalf("Dump(%v) err = nil, wanted error", f)
		}
	}
}

func TestJSONNumberClassification(t *testing.T) {
	tests := []struct {
		in   string
		want Document
	}{
		{"5", I64(5)},
		{"-5", I64(-5)},
		{"9223372036854775807", I64(math.MaxInt64)},
		{"9223372036854775808", U64(uint64(math.MaxInt64) + 1)},
		{"18446744073709551615", U64(math.MaxUint64)},
		{"1.5", F64(1.5)},
		{"1e3", F64(1000)},
		{"-0.25", F64(-0.25)},
	}
	for _, tt := range tests {
		parsed, err := Parse(FormatJSON, []byte(tt.in))
		got := mustID(t, parsed, err)
		if !got.Equal(tt.want) {
			t.Errorf("Parse(JSON %q) = %v/%v, wanted %v/%v", tt.in, got.Kind(), toGoValue(got), tt.want.Kind(), toGoValue(tt.want))
		}
	}
}

func TestParseFailuresReturnDiscarded(t *testing.T) {
	inputs := map[Format][]byte{
		FormatJSON:           []byte(`{"unterminated`),
		FormatInternalBinary: {0xc1},
		FormatUBJSON:         []byte("Q"),
		FormatCBOR:           {0xff},
	}
	for f, in := range inputs {
		d, err := Parse(f, in)
		if err == nil {
			t.Errorf("Parse(%v, malformed) err = nil, wanted error", f)
		}
		if !d.IsDiscarded() {
			t.Errorf("Parse(%v, malformed) kind = %v, wanted discarded", f, d.Kind())
		}
	}
}
