package docdb

// inc increments data in place as a big-endian byte string, returning
// false on overflow (all 0xFF). Used by boltCursor/sqliteCursor.SeekLast
// to turn a prefix into its exclusive upper bound.
func inc(data []byte) bool {
	n := len(data)
	for i := n - 1; i >= 0; i-- {
		if data[i] != 0xFF {
			for j := i; j < n; j++ {
				data[j]++
			}
			return true
		}
	}
	return false
}
