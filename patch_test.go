package docdb

import "testing"

func TestApplyMergePatch(t *testing.T) {
	doc := Obj(map[string]Document{"b": I64(1), "c": I64(2)})
	patch := []byte(`{"b":null,"d":3}`)

	merged, err := ApplyMergePatch(doc, patch)
	got := mustID(t, merged, err)
	want := Obj(map[string]Document{"c": I64(2), "d": I64(3)})
	if !got.Equal(want) {
		t.Fatalf("merge patch = %v, wanted %v", toGoValue(got), toGoValue(want))
	}

	// Idempotence: applying the same merge patch twice equals once.
	mergedAgain, err := ApplyMergePatch(got, patch)
	again := mustID(t, mergedAgain, err)
	if !again.Equal(got) {
		t.Fatalf("merge patch applied twice = %v, wanted %v", toGoValue(again), toGoValue(got))
	}
}

func TestApplyMergePatchReplacesNonObjects(t *testing.T) {
	replaced, err := ApplyMergePatch(Obj(map[string]Document{"a": I64(1)}), []byte(`[1,2]`))
	got := mustID(t, replaced, err)
	if !got.Equal(Arr(I64(1), I64(2))) {
		t.Fatalf("non-object merge patch = %v, wanted the patch value itself", toGoValue(got))
	}

	onScalar, err := ApplyMergePatch(Str("scalar"), []byte(`{"a":1}`))
	got = mustID(t, onScalar, err)
	if !got.Equal(Obj(map[string]Document{"a": I64(1)})) {
		t.Fatalf("merge patch onto scalar = %v", toGoValue(got))
	}
}

func TestApplyMergePatchRecursive(t *testing.T) {
	doc := Obj(map[string]Document{
		"keep": Str("k"),
		"nest": Obj(map[string]Document{"x": I64(1), "y": I64(2)}),
	})
	merged, err := ApplyMergePatch(doc, []byte(`{"nest":{"y":null,"z":9}}`))
	got := mustID(t, merged, err)
	want := Obj(map[string]Document{
		"keep": Str("k"),
		"nest": Obj(map[string]Document{"x": I64(1), "z": I64(9)}),
	})
	if !got.Equal(want) {
		t.Fatalf("recursive merge = %v, wanted %v", toGoValue(got), toGoValue(want))
	}
}

func TestApplyJSONPatch(t *testing.T) {
	doc := Obj(map[string]Document{
		"a": I64(1),
		"arr": Arr(I64(10), I64(20)),
	})
	patch := []byte(`[
		{"op":"test","path":"/a","value":1},
		{"op":"replace","path":"/a","value":2},
		{"op":"add","path":"/b","value":"new"},
		{"op":"add","path":"/arr/1","value":15},
		{"op":"remove","path":"/arr/0"}
	]`)
	patched, err := ApplyJSONPatch(doc, patch)
	got := mustID(t, patched, err)
	want := Obj(map[string]Document{
		"a": I64(2),
		"b": Str("new"),
		"arr": Arr(I64(15), I64(20)),
	})
	if !got.Equal(want) {
		t.Fatalf("json patch = %v, wanted %v", toGoValue(got), toGoValue(want))
	}
}

func TestApplyJSONPatchFailedTest(t *testing.T) {
	doc := Obj(map[string]Document{"a": I64(1)})
	if _, err := ApplyJSONPatch(doc, []byte(`[{"op":"test","path":"/a","value":99}]`)); err == nil {
		t.Fatalf("json patch with failing test op err = nil, wanted error")
	}
}

func TestApplyJSONPatchMalformed(t *testing.T) {
	if _, err := ApplyJSONPatch(Null(), []byte(`{"not":"an array"}`)); err == nil {
		t.Fatalf("malformed json patch err = nil, wanted error")
	}
}
