package docdb

import (
	"reflect"
	"testing"
)

func setup(t testing.TB) *DB {
	t.Helper()
	db, err := Open("", Options{Backend: BackendMem, IsTesting: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func mustID(t testing.TB, d Document, err error) Document {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func mustv[T any](t testing.TB, v T, err error) T {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func noErr(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func mustSel(s string) FieldSelector {
	sel, err := ParseFieldSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

func writeJSONDoc(t testing.TB, db *DB, id DocumentId, body string) {
	t.Helper()
	noErr(t, db.Tx(true, func(tx *Tx) error {
		return tx.DocsWrite([]DocumentId{id}, nil, FormatJSON, [][]byte{[]byte(body)})
	}))
}

// readBackJSON reads each id's whole document as JSON text and parses
// it back into a Document; absent documents come back as Discarded.
func readBackJSON(t testing.TB, db *DB, ids ...DocumentId) []Document {
	t.Helper()
	out := make([]Document, len(ids))
	noErr(t, db.ReadErr(func(tx *Tx) error {
		tape, err := tx.DocsRead(ids, nil, FormatJSON)
		if err != nil {
			return err
		}
		for i := range ids {
			if !tape.Present(i) {
				out[i] = Discarded()
				continue
			}
			parsed, parseErr := Parse(FormatJSON, tape.EntryBytes(i))
			out[i] = mustID(t, parsed, parseErr)
		}
		return nil
	}))
	return out
}
