package docdb

// Arena is a scoped bump allocator. Every transaction that runs a
// batched call gets one (Tx.Arena); the byte buffers backing each
// call's Tape are carved out of it, and the whole thing is released in
// one shot via Reset when the transaction closes.
//
// It grows by appending fixed-size chunks rather than reallocating a
// single backing array, so slices handed out earlier stay valid even as
// later allocations grow the arena.
type Arena struct {
	chunks    [][]byte
	chunkSize int
	cur       int // index into chunks of the chunk currently being carved
}

const defaultArenaChunkSize = 64 * 1024

// NewArena creates an arena with the given chunk size (0 selects a
// default). The arena starts with zero chunks; the first Alloc call
// grows it lazily.
func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = defaultArenaChunkSize
	}
	return &Arena{chunkSize: chunkSize}
}

// Alloc returns a zeroed byte slice of length n, carved from the
// current chunk or a freshly grown one if it doesn't fit. The returned
// slice's capacity may exceed n; callers that need growth call
// AllocCap instead.
func (a *Arena) Alloc(n int) []byte {
	return a.AllocCap(n, n)
}

// AllocCap returns a byte slice of length n with at least capacity c,
// carved from the arena.
func (a *Arena) AllocCap(n, c int) []byte {
	if c < n {
		c = n
	}
	if len(a.chunks) == 0 || cap(a.chunks[a.cur])-len(a.chunks[a.cur]) < c {
		a.grow(c)
	}
	chunk := a.chunks[a.cur]
	off := len(chunk)
	chunk = chunk[:off+c]
	a.chunks[a.cur] = chunk
	clear(chunk[off : off+c]) // the first chunk is reused dirty after Reset
	return chunk[off : off+n : off+c]
}

func (a *Arena) grow(minCap int) {
	size := a.chunkSize
	if minCap > size {
		size = minCap
	}
	a.chunks = append(a.chunks, make([]byte, 0, size))
	a.cur = len(a.chunks) - 1
}

// Reset releases all chunks for reuse by a later call. Capacity of the
// first chunk is kept so a subsequent small call can avoid reallocating.
func (a *Arena) Reset() {
	if len(a.chunks) == 0 {
		return
	}
	first := a.chunks[0][:0]
	a.chunks = a.chunks[:1]
	a.chunks[0] = first
	a.cur = 0
}

// Bytes reports how many bytes are currently allocated out of the arena
// across all chunks, for diagnostics and tests.
func (a *Arena) Bytes() int {
	n := 0
	for _, c := range a.chunks {
		n += len(c)
	}
	return n
}
