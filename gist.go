package docdb

import "sort"

// GistResult is the packed output of DocsGist: the distinct set of
// JSON Pointer paths reachable from any document in the batch,
// concatenated NUL-terminated with a parallel offsets array.
type GistResult struct {
	Paths   []string // sorted, for a deterministic packed encoding
	Packed  []byte   // NUL-terminated paths back to back
	Offsets []int    // len(Offsets) == len(Paths)+1, start offset of each path in Packed
}

// DocsGist discovers every JSON Pointer path occurring in the batch
// of documents named by ids: read once, parse once, flatten every
// leaf, and accumulate the set of distinct path strings.
func (tx *Tx) DocsGist(ids []DocumentId) (*GistResult, error) {
	plan := planBatch(ids)
	tx.logPlan("DocsGist", len(ids), plan)
	raw, err := tx.kvReadUnique(plan)
	if err != nil {
		return nil, err
	}
	docs, err := parseUniqueDocs(plan, raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var leaves []flatLeaf
	for _, d := range docs {
		if d.IsDiscarded() {
			continue
		}
		leaves = leaves[:0]
		d.flattenInto(nil, &leaves)
		for _, l := range leaves {
			seen[l.path.String()] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	packed := make([]byte, 0, len(paths)*8)
	offsets := make([]int, 0, len(paths)+1)
	for _, p := range paths {
		offsets = append(offsets, len(packed))
		packed = append(packed, p...)
		packed = append(packed, 0)
	}
	offsets = append(offsets, len(packed))

	return &GistResult{Paths: paths, Packed: packed, Offsets: offsets}, nil
}
