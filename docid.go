package docdb

// DocumentId addresses a single document by (collection, key). Equality
// and ordering are lexicographic on the pair.
type DocumentId struct {
	Collection CollectionHandle
	Key        Key
}

// ID is a convenience constructor for DocumentId.
func ID(collection CollectionHandle, key Key) DocumentId {
	return DocumentId{Collection: collection, Key: key}
}

// Less reports whether d sorts strictly before o in (collection, key)
// lexicographic order.
func (d DocumentId) Less(o DocumentId) bool {
	if d.Collection != o.Collection {
		return d.Collection < o.Collection
	}
	return d.Key < o.Key
}

// Equal reports whether d and o address the same document.
func (d DocumentId) Equal(o DocumentId) bool {
	return d.Collection == o.Collection && d.Key == o.Key
}
