package docdb

// DocsRead is the batched read operation: for each (id, field) pair,
// resolves the addressed sub-document (or the whole document, if
// fields is nil or that entry's selector is empty) and dumps it into
// the returned Tape's format-encoded form, in caller order.
//
// fields may be nil (every entry reads the whole document) or must
// have the same length as ids.
func (tx *Tx) DocsRead(ids []DocumentId, fields []FieldSelector, format Format) (*Tape, error) {
	if fields != nil && len(fields) != len(ids) {
		return nil, &ArgumentInvalidError{Detail: "fields must be nil or the same length as ids"}
	}
	if format.IsPatchMode() {
		return nil, &UnsupportedFormatError{Format: format, Detail: "a patch mode is not a readable document format"}
	}

	plan := planBatch(ids)
	tx.logPlan("DocsRead", len(ids), plan)
	tape := NewTape(tx.Arena())

	// Short-circuit: InternalBinary with no field selectors never
	// needs to touch the codec at all; the stored bytes are already
	// the caller's requested wire format.
	if format == FormatInternalBinary && fields == nil {
		raw, err := tx.kvReadUnique(plan)
		if err != nil {
			return nil, err
		}
		for i := range ids {
			ui := plan.UniqueIndex(i)
			b := raw[ui]
			if b == nil {
				tape.AppendNull()
				continue
			}
			tape.AppendBytes(b)
		}
		return tape, nil
	}

	raw, err := tx.kvReadUnique(plan)
	if err != nil {
		return nil, err
	}
	docs, err := parseUniqueDocs(plan, raw)
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		ui := plan.UniqueIndex(i)
		doc := docs[ui]
		if doc.IsDiscarded() {
			tape.AppendNull()
			continue
		}

		target := doc
		if fields != nil && len(fields[i]) > 0 {
			v, ok := fields[i].Resolve(doc)
			if !ok {
				tape.AppendNull()
				continue
			}
			target = v
		}

		tape.BeginEntry()
		if err := Dump(tape, target, format); err != nil {
			return nil, &ParseError{Collection: id.Collection, Key: id.Key, Format: format, Err: err}
		}
		tape.EndEntry(true)
	}

	return tape, nil
}
