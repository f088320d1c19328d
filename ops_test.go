package docdb

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteJSONReadInternalBinary(t *testing.T) {
	db := setup(t)
	id := ID(Collection("things"), 42)
	writeJSONDoc(t, db, id, `{"a":1,"b":"x"}`)

	noErr(t, db.ReadErr(func(tx *Tx) error {
		tape, err := tx.DocsRead([]DocumentId{id}, nil, FormatInternalBinary)
		if err != nil {
			return err
		}
		parsed, parseErr := Parse(FormatInternalBinary, tape.EntryBytes(0))
		got := mustID(t, parsed, parseErr)
		want := Obj(map[string]Document{"a": I64(1), "b": Str("x")})
		if !got.Equal(want) {
			t.Errorf("read back = %v, wanted %v", toGoValue(got), toGoValue(want))
		}
		return nil
	}))
}

func TestBatchReadDuplicates(t *testing.T) {
	db := setup(t)
	col := Collection("dups")
	writeJSONDoc(t, db, ID(col, 10), `{"x":7}`)
	writeJSONDoc(t, db, ID(col, 11), `{"x":8}`)

	docs := readBackJSON(t, db, ID(col, 10), ID(col, 10), ID(col, 11), ID(col, 10))
	for i, want := range []int64{7, 7, 8, 7} {
		x, ok := docs[i].Member("x")
		if !ok || !x.Equal(I64(want)) {
			t.Errorf("output %d: x = %v, wanted %d", i, toGoValue(x), want)
		}
	}
}

func TestMergePatchAtField(t *testing.T) {
	db := setup(t)
	id := ID(Collection("patched"), 1)
	writeJSONDoc(t, db, id, `{"a":{"b":1,"c":2}}`)

	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{id}, []FieldSelector{mustSel("/a")},
			FormatJSONMergePatch, [][]byte{[]byte(`{"b":null,"d":3}`)})
	}))

	got := readBackJSON(t, db, id)[0]
	want := Obj(map[string]Document{
		"a": Obj(map[string]Document{"c": I64(2), "d": I64(3)}),
	})
	if !got.Equal(want) {
		t.Fatalf("after merge patch = %v, wanted %v", toGoValue(got), toGoValue(want))
	}
}

func TestInternalBinaryShortCircuit(t *testing.T) {
	db := setup(t)
	id := ID(Collection("verbatim"), 5)
	content := dumpBytes(t, sampleDoc(), FormatInternalBinary)

	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{id}, nil, FormatInternalBinary, [][]byte{content})
	}))
	noErr(t, db.ReadErr(func(tx *Tx) error {
		tape, err := tx.DocsRead([]DocumentId{id}, nil, FormatInternalBinary)
		if err != nil {
			return err
		}
		if !bytes.Equal(tape.EntryBytes(0), content) {
			t.Errorf("short-circuit read differs from the bytes written")
		}
		return nil
	}))
}

func TestReadFields(t *testing.T) {
	db := setup(t)
	id := ID(Collection("fields"), 1)
	writeJSONDoc(t, db, id, `{"a":{"b":5},"top":1}`)

	noErr(t, db.ReadErr(func(tx *Tx) error {
		tape, err := tx.DocsRead(
			[]DocumentId{id, id, id},
			[]FieldSelector{mustSel("a"), mustSel("/a/b"), mustSel("/missing")},
			FormatJSON)
		if err != nil {
			return err
		}
		parsed0, parseErr0 := Parse(FormatJSON, tape.EntryBytes(0))
		got0 := mustID(t, parsed0, parseErr0)
		if !got0.Equal(Obj(map[string]Document{"b": I64(5)})) {
			t.Errorf("field \"a\" = %v", toGoValue(got0))
		}
		parsed1, parseErr1 := Parse(FormatJSON, tape.EntryBytes(1))
		got1 := mustID(t, parsed1, parseErr1)
		if !got1.Equal(I64(5)) {
			t.Errorf("field \"/a/b\" = %v", toGoValue(got1))
		}
		if tape.Present(2) {
			t.Errorf("missing field came back present")
		}
		return nil
	}))
}

func TestReadMissingDocument(t *testing.T) {
	db := setup(t)
	col := Collection("sparse")
	writeJSONDoc(t, db, ID(col, 1), `{"here":true}`)

	docs := readBackJSON(t, db, ID(col, 99), ID(col, 1), ID(Collection("nosuch"), 1))
	if !docs[0].IsDiscarded() || !docs[2].IsDiscarded() {
		t.Fatalf("missing documents must come back absent")
	}
	if docs[1].IsDiscarded() {
		t.Fatalf("present document came back absent")
	}
}

func TestReplaceDocsAtomicParseFailure(t *testing.T) {
	db := setup(t)
	col := Collection("atomic")
	err := db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite(
			[]DocumentId{ID(col, 1), ID(col, 2)}, nil, FormatJSON,
			[][]byte{[]byte(`{"good":1}`), []byte(`{"bad`)})
	})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("batch with malformed entry err = %v, wanted ParseError", err)
	}

	docs := readBackJSON(t, db, ID(col, 1))
	if !docs[0].IsDiscarded() {
		t.Fatalf("aborted batch still wrote entry 1: %v", toGoValue(docs[0]))
	}
}

func TestWriteRequiresWritableTx(t *testing.T) {
	db := setup(t)
	noErr(t, db.ReadErr(func(tx *Tx) error {
		err := tx.DocsWrite([]DocumentId{ID(1, 1)}, nil, FormatJSON, [][]byte{[]byte(`1`)})
		var ue *UninitializedError
		if !errors.As(err, &ue) {
			t.Errorf("DocsWrite in read tx err = %v, wanted UninitializedError", err)
		}
		return nil
	}))
}

func TestWriteArgumentValidation(t *testing.T) {
	db := setup(t)
	noErr(t, db.Tx(true, func(tx *Tx) error {
		var aie *ArgumentInvalidError

		err := tx.DocsWrite([]DocumentId{ID(1, 1), ID(1, 2)}, nil, FormatJSON, [][]byte{[]byte(`1`)})
		if !errors.As(err, &aie) {
			t.Errorf("mismatched contents err = %v, wanted ArgumentInvalidError", err)
		}

		err = tx.DocsWrite([]DocumentId{ID(1, 1)}, []FieldSelector{mustSel("a"), mustSel("b")},
			FormatJSON, [][]byte{[]byte(`1`)})
		if !errors.As(err, &aie) {
			t.Errorf("mismatched fields err = %v, wanted ArgumentInvalidError", err)
		}

		err = tx.ReplaceDocs([]DocumentId{ID(1, 1)}, FormatJSONMergePatch, [][]byte{[]byte(`{}`)})
		if !errors.As(err, &aie) {
			t.Errorf("ReplaceDocs with patch format err = %v, wanted ArgumentInvalidError", err)
		}
		return nil
	}))
}

func TestReadModifyWriteDuplicateIds(t *testing.T) {
	db := setup(t)
	id := ID(Collection("rmwdup"), 3)

	// Two entries for the same key in one batch: both updates land on
	// the same in-memory document, and only the final state is written.
	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite(
			[]DocumentId{id, id},
			[]FieldSelector{mustSel("a"), mustSel("b")},
			FormatJSON,
			[][]byte{[]byte(`1`), []byte(`2`)})
	}))

	got := readBackJSON(t, db, id)[0]
	want := Obj(map[string]Document{"a": I64(1), "b": I64(2)})
	if !got.Equal(want) {
		t.Fatalf("after duplicate-id writes = %v, wanted %v", toGoValue(got), toGoValue(want))
	}
}

func TestReplaceFieldUpsert(t *testing.T) {
	db := setup(t)
	id := ID(Collection("upsert"), 1)

	// Field-targeted Replace against a missing document starts from an
	// empty root.
	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{id}, []FieldSelector{mustSel("meta")},
			FormatJSON, [][]byte{[]byte(`{"x":1}`)})
	}))

	got := readBackJSON(t, db, id)[0]
	want := Obj(map[string]Document{"meta": Obj(map[string]Document{"x": I64(1)})})
	if !got.Equal(want) {
		t.Fatalf("upsert = %v, wanted %v", toGoValue(got), toGoValue(want))
	}
}

func TestPatchMissingPathIsNoOp(t *testing.T) {
	db := setup(t)
	id := ID(Collection("noop"), 1)
	writeJSONDoc(t, db, id, `{"a":1}`)

	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{id}, []FieldSelector{mustSel("/nope/deep")},
			FormatJSONMergePatch, [][]byte{[]byte(`{"z":9}`)})
	}))

	got := readBackJSON(t, db, id)[0]
	if !got.Equal(Obj(map[string]Document{"a": I64(1)})) {
		t.Fatalf("patch at missing path changed the document: %v", toGoValue(got))
	}
}

func TestJSONPatchWrite(t *testing.T) {
	db := setup(t)
	id := ID(Collection("jp"), 1)
	writeJSONDoc(t, db, id, `{"a":1}`)

	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{id}, nil, FormatJSONPatch,
			[][]byte{[]byte(`[{"op":"add","path":"/b","value":2},{"op":"remove","path":"/a"}]`)})
	}))

	got := readBackJSON(t, db, id)[0]
	if !got.Equal(Obj(map[string]Document{"b": I64(2)})) {
		t.Fatalf("after json patch write = %v", toGoValue(got))
	}
}

func TestRawBinaryRoundTrip(t *testing.T) {
	db := setup(t)
	id := ID(Collection("blobs"), 7)
	blob := []byte{0x00, 0xc1, 0xff, 0x10}

	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{id}, nil, FormatRawBinary, [][]byte{blob})
	}))
	noErr(t, db.ReadErr(func(tx *Tx) error {
		tape, err := tx.DocsRead([]DocumentId{id}, nil, FormatRawBinary)
		if err != nil {
			return err
		}
		if !bytes.Equal(tape.EntryBytes(0), blob) {
			t.Errorf("raw binary read = %x, wanted %x", tape.EntryBytes(0), blob)
		}
		return nil
	}))
}

func TestDocsReadRejectsPatchFormat(t *testing.T) {
	db := setup(t)
	noErr(t, db.ReadErr(func(tx *Tx) error {
		_, err := tx.DocsRead([]DocumentId{ID(1, 1)}, nil, FormatJSONMergePatch)
		var ufe *UnsupportedFormatError
		if !errors.As(err, &ufe) {
			t.Errorf("DocsRead(merge patch) err = %v, wanted UnsupportedFormatError", err)
		}
		return nil
	}))
}

func TestMultiCollectionBatch(t *testing.T) {
	db := setup(t)
	a, b := Collection("multi_a"), Collection("multi_b")
	idA, idB := ID(a, 1), ID(b, 1)

	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{idA, idB}, nil, FormatJSON,
			[][]byte{[]byte(`{"from":"a"}`), []byte(`{"from":"b"}`)})
	}))

	docs := readBackJSON(t, db, idB, idA)
	f0, _ := docs[0].Member("from")
	f1, _ := docs[1].Member("from")
	if !f0.Equal(Str("b")) || !f1.Equal(Str("a")) {
		t.Fatalf("cross-collection batch = %v, %v", toGoValue(docs[0]), toGoValue(docs[1]))
	}
}

func TestNegativeKeys(t *testing.T) {
	db := setup(t)
	col := Collection("signed")
	writeJSONDoc(t, db, ID(col, -5), `{"k":-5}`)
	writeJSONDoc(t, db, ID(col, 5), `{"k":5}`)

	docs := readBackJSON(t, db, ID(col, -5), ID(col, 5))
	k0, _ := docs[0].Member("k")
	k1, _ := docs[1].Member("k")
	if !k0.Equal(I64(-5)) || !k1.Equal(I64(5)) {
		t.Fatalf("negative-key read = %v, %v", toGoValue(docs[0]), toGoValue(docs[1]))
	}
}
