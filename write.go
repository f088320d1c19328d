package docdb

// DocsWrite is the batched write operation. It dispatches to
// ReplaceDocs when every entry names no field and the format isn't a
// patch mode (a plain whole-document overwrite needs no prior read),
// and to ReadModifyWrite otherwise.
func (tx *Tx) DocsWrite(ids []DocumentId, fields []FieldSelector, format Format, contents [][]byte) error {
	if !format.IsPatchMode() && !anyFieldSet(fields) {
		return tx.ReplaceDocs(ids, format, contents)
	}
	return tx.ReadModifyWrite(ids, fields, format, contents)
}

func anyFieldSet(fields []FieldSelector) bool {
	for _, f := range fields {
		if len(f) > 0 {
			return true
		}
	}
	return false
}

func checkWriteArgs(tx *Tx, ids []DocumentId, contents [][]byte) error {
	if !tx.IsWritable() {
		return &UninitializedError{What: "writable transaction"}
	}
	if len(contents) != len(ids) {
		return &ArgumentInvalidError{Detail: "contents must be the same length as ids"}
	}
	return nil
}

// ReplaceDocs overwrites whole documents, parsing each content from
// format and re-encoding it as InternalBinary before writing. Every
// entry is parsed before anything is written: a Parse failure on any
// entry aborts the whole batch, leaving the store untouched.
func (tx *Tx) ReplaceDocs(ids []DocumentId, format Format, contents [][]byte) error {
	if err := checkWriteArgs(tx, ids, contents); err != nil {
		return err
	}
	if format.IsPatchMode() {
		return &ArgumentInvalidError{Detail: "ReplaceDocs cannot take a patch-mode format; use ReadModifyWrite"}
	}

	// Short-circuit: the caller's bytes are already the at-rest form,
	// so skip parse+dump entirely.
	if format == FormatInternalBinary {
		return tx.kvWriteAll(ids, contents)
	}

	tape := NewTape(tx.Arena())
	for i, c := range contents {
		doc, err := Parse(format, c)
		if err != nil {
			return &ParseError{Collection: ids[i].Collection, Key: ids[i].Key, Format: format, Err: err}
		}
		tape.BeginEntry()
		if err := Dump(tape, doc, FormatInternalBinary); err != nil {
			return &ParseError{Collection: ids[i].Collection, Key: ids[i].Key, Format: FormatInternalBinary, Err: err}
		}
		tape.EndEntry(true)
	}

	entries := make([][]byte, len(ids))
	for i := range ids {
		entries[i] = tape.EntryBytes(i)
	}
	return tx.kvWriteAll(ids, entries)
}

// ReadModifyWrite applies a patch (Replace/JsonPatch/JsonMergePatch)
// at each entry's field selector against the currently-stored
// document. Duplicate ids in the input are applied in caller order
// against the same in-memory document; only the final state per unique
// document is dumped and written, so the KV write count equals the
// unique document count, never the input length.
func (tx *Tx) ReadModifyWrite(ids []DocumentId, fields []FieldSelector, format Format, contents [][]byte) error {
	if err := checkWriteArgs(tx, ids, contents); err != nil {
		return err
	}
	if fields != nil && len(fields) != len(ids) {
		return &ArgumentInvalidError{Detail: "fields must be nil or the same length as ids"}
	}

	plan := planBatch(ids)
	tx.logPlan("ReadModifyWrite", len(ids), plan)
	raw, err := tx.kvReadUnique(plan)
	if err != nil {
		return err
	}
	docs, err := parseUniqueDocs(plan, raw)
	if err != nil {
		return err
	}
	// A missing document upserts against an empty root: absence is not
	// an error at read time, and that carries through to the write path.
	for i, d := range docs {
		if d.IsDiscarded() {
			docs[i] = Null()
		}
	}

	for i, id := range ids {
		ui := plan.UniqueIndex(i)
		var sel FieldSelector
		if fields != nil {
			sel = fields[i]
		}
		next, err := applyOneUpdate(docs[ui], sel, format, contents[i])
		if err != nil {
			return &ParseError{Collection: id.Collection, Key: id.Key, Format: format, Err: err}
		}
		docs[ui] = next
	}

	tape := NewTape(tx.Arena())
	for _, d := range docs {
		tape.BeginEntry()
		if err := Dump(tape, d, FormatInternalBinary); err != nil {
			return err
		}
		tape.EndEntry(true)
	}

	entries := make([][]byte, len(plan.unique))
	for i := range plan.unique {
		entries[i] = tape.EntryBytes(i)
	}
	return tx.kvWriteAll(plan.unique, entries)
}

// applyOneUpdate applies the update payload at sel against cur,
// always producing the whole modified document, never just the
// patched subtree: a subtree-only dump would silently drop sibling
// fields on every nested-field patch.
func applyOneUpdate(cur Document, sel FieldSelector, format Format, payload []byte) (Document, error) {
	if format.IsPatchMode() {
		sub := cur
		found := true
		if len(sel) > 0 {
			sub, found = sel.Resolve(cur)
		}
		if !found {
			// Silent no-op: a patch targeting an absent path has nothing
			// to transform, matching RFC 6902/7396 semantics.
			return cur, nil
		}
		var newSub Document
		var err error
		if format == FormatJSONPatch {
			newSub, err = ApplyJSONPatch(sub, payload)
		} else {
			newSub, err = ApplyMergePatch(sub, payload)
		}
		if err != nil {
			return Document{}, err
		}
		if len(sel) == 0 {
			return newSub, nil
		}
		if err := sel.Assign(&cur, newSub); err != nil {
			return Document{}, err
		}
		return cur, nil
	}

	// Replace mode: parse the payload in the caller's format and
	// assign it at sel, creating missing intermediate objects.
	val, err := Parse(format, payload)
	if err != nil {
		return Document{}, err
	}
	if len(sel) == 0 {
		return val, nil
	}
	if err := sel.Assign(&cur, val); err != nil {
		return Document{}, err
	}
	return cur, nil
}

// kvWriteAll issues one bucket Put per (id, content) pair, creating the
// backing collection bucket lazily. Values are stored as given (apart
// from optional compression) and never parsed here, so this step cannot
// itself produce a Parse error — only an UnderlyingKVError.
func (tx *Tx) kvWriteAll(ids []DocumentId, contents [][]byte) error {
	var bucket storageBucket
	var curColl CollectionHandle
	haveBucket := false
	for i, id := range ids {
		if !haveBucket || id.Collection != curColl {
			b, err := tx.docsBucketForWrite(id.Collection)
			if err != nil {
				return &UnderlyingKVError{Op: "createBucket", Err: err}
			}
			bucket = b
			curColl = id.Collection
			haveBucket = true
		}
		value := contents[i]
		if tx.db.compress && len(value) >= tx.db.compressThreshold {
			value = compressValue(value)
		}
		if err := bucket.Put(encodeDocKey(id.Key), value); err != nil {
			return &UnderlyingKVError{Op: "put", Err: err}
		}
	}
	tx.markWritten()
	return nil
}
