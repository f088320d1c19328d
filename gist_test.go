package docdb

import (
	"bytes"
	"testing"
)

func TestDocsGist(t *testing.T) {
	db := setup(t)
	col := Collection("gist")
	writeJSONDoc(t, db, ID(col, 1), `{"a":1}`)
	writeJSONDoc(t, db, ID(col, 2), `{"a":2,"b":{"c":3}}`)

	noErr(t, db.ReadErr(func(tx *Tx) error {
		res, err := tx.DocsGist([]DocumentId{ID(col, 1), ID(col, 2)})
		if err != nil {
			return err
		}
		deepEqual(t, res.Paths, []string{"/a", "/b/c"})
		return nil
	}))
}

func TestDocsGistPacking(t *testing.T) {
	db := setup(t)
	col := Collection("gistpack")
	writeJSONDoc(t, db, ID(col, 1), `{"arr":[{"z":1},{"z":2}],"s~x":null}`)

	noErr(t, db.ReadErr(func(tx *Tx) error {
		res, err := tx.DocsGist([]DocumentId{ID(col, 1)})
		if err != nil {
			return err
		}
		// Array leaves get index tokens; names with '~' are re-escaped;
		// null is still a leaf.
		deepEqual(t, res.Paths, []string{"/arr/0/z", "/arr/1/z", "/s~0x"})

		if len(res.Offsets) != len(res.Paths)+1 {
			t.Fatalf("len(Offsets) = %d, wanted %d", len(res.Offsets), len(res.Paths)+1)
		}
		for i, p := range res.Paths {
			chunk := res.Packed[res.Offsets[i]:res.Offsets[i+1]]
			want := append([]byte(p), 0)
			if !bytes.Equal(chunk, want) {
				t.Errorf("packed path %d = %q, wanted %q", i, chunk, want)
			}
		}
		return nil
	}))
}

func TestDocsGistSkipsMissing(t *testing.T) {
	db := setup(t)
	col := Collection("gistmiss")
	writeJSONDoc(t, db, ID(col, 1), `{"only":1}`)

	noErr(t, db.ReadErr(func(tx *Tx) error {
		res, err := tx.DocsGist([]DocumentId{ID(col, 1), ID(col, 999)})
		if err != nil {
			return err
		}
		deepEqual(t, res.Paths, []string{"/only"})
		return nil
	}))
}

func TestDocsGistEmpty(t *testing.T) {
	db := setup(t)
	noErr(t, db.ReadErr(func(tx *Tx) error {
		res, err := tx.DocsGist(nil)
		if err != nil {
			return err
		}
		if len(res.Paths) != 0 || len(res.Packed) != 0 {
			t.Fatalf("gist of empty batch = %v", res.Paths)
		}
		deepEqual(t, res.Offsets, []int{0})
		return nil
	}))
}
