package docdb

import "sort"

// batchPlan is the output of the batch read planner: the
// deduplicated, sorted set of DocumentIds actually worth reading from
// the KV engine, plus a mapping from each original input index back to
// its slot in that set.
type batchPlan struct {
	unique       []DocumentId
	origToUnique []int
}

// planBatch decides between the fast path and the general path: if
// ids already arrives strictly ascending with no duplicates,
// it is used verbatim (origToUnique stays nil and UniqueIndex returns
// each index unchanged). Otherwise a sorted, deduplicated copy is built,
// and every original index is mapped to its slot while the sorted
// (id, original index) pairs are deduplicated.
func planBatch(ids []DocumentId) batchPlan {
	n := len(ids)
	if isAscendingUnique(ids) {
		return batchPlan{unique: ids, origToUnique: nil}
	}

	type indexed struct {
		id   DocumentId
		orig int
	}
	tmp := make([]indexed, n)
	for i, id := range ids {
		tmp[i] = indexed{id, i}
	}
	sort.Slice(tmp, func(a, b int) bool { return tmp[a].id.Less(tmp[b].id) })

	unique := make([]DocumentId, 0, n)
	origToUnique := make([]int, n)
	for _, t := range tmp {
		if len(unique) == 0 || !unique[len(unique)-1].Equal(t.id) {
			unique = append(unique, t.id)
		}
		origToUnique[t.orig] = len(unique) - 1
	}
	return batchPlan{unique: unique, origToUnique: origToUnique}
}

func isAscendingUnique(ids []DocumentId) bool {
	for i := 1; i < len(ids); i++ {
		if !ids[i-1].Less(ids[i]) {
			return false
		}
	}
	return true
}

// logPlan emits a verbose debug trace of the planner's fast-path vs.
// general-path decision.
func (tx *Tx) logPlan(op string, n int, plan batchPlan) {
	if tx.db.verbose {
		tx.db.logf("docdb: %s batch n=%d unique=%d fast_path=%v", op, n, len(plan.unique), plan.origToUnique == nil)
	}
}

// UniqueIndex returns the index into Unique() that original input i
// resolves to.
func (p batchPlan) UniqueIndex(i int) int {
	if p.origToUnique == nil {
		return i
	}
	return p.origToUnique[i]
}

// Unique returns the deduplicated, sorted DocumentId set the plan will
// issue exactly one KV read per entry for.
func (p batchPlan) Unique() []DocumentId { return p.unique }

// kvReadUnique issues one KV Get per entry of plan.Unique(), grouping
// consecutive entries that share a collection under a single bucket
// lookup (plan.Unique() is always sorted, so same-collection entries
// are contiguous). A missing bucket or missing key both come back as a
// nil slice; callers treat that as a Discarded Document.
// Values carrying the compression envelope are unwrapped here, so
// every caller — the codec paths and the InternalBinary short-circuit
// alike — only ever sees plain MessagePack bytes.
func (tx *Tx) kvReadUnique(plan batchPlan) ([][]byte, error) {
	out := make([][]byte, len(plan.unique))
	var bucket storageBucket
	var curColl CollectionHandle
	haveBucket := false
	for i, id := range plan.unique {
		if !haveBucket || id.Collection != curColl {
			bucket = tx.docsBucket(id.Collection)
			curColl = id.Collection
			haveBucket = true
		}
		if bucket == nil {
			continue
		}
		stored := bucket.Get(encodeDocKey(id.Key))
		if stored == nil {
			continue
		}
		raw, err := decompressValue(stored)
		if err != nil {
			return nil, &ParseError{Collection: id.Collection, Key: id.Key, Format: FormatInternalBinary, Err: err}
		}
		out[i] = raw
	}
	return out, nil
}

// parseUniqueDocs parses each unique KV value as InternalBinary
// (MessagePack), the sole at-rest format. A nil value
// (missing key) becomes Discarded(); any other decode failure is data
// corruption and aborts with a ParseError carrying the offending
// DocumentId.
func parseUniqueDocs(plan batchPlan, raw [][]byte) ([]Document, error) {
	docs := make([]Document, len(raw))
	for i, b := range raw {
		if b == nil {
			docs[i] = Discarded()
			continue
		}
		d, err := parseMsgpack(b)
		if err != nil {
			id := plan.unique[i]
			return nil, &ParseError{Collection: id.Collection, Key: id.Key, Format: FormatInternalBinary, Err: err}
		}
		docs[i] = d
	}
	return docs, nil
}
