package docdb

// Tape is an append-only buffer over an Arena. It accumulates the
// output of N independent encode calls into one contiguous byte array,
// while recording three parallel views over the N entries: a presence
// bit, a length, and an (inclusive-prefix-sum) offset.
//
// Usage is: BeginEntry, then any number of WriteByte/Write calls
// (Tape implements io.Writer and io.ByteWriter so it can be handed to a
// codec Dump call directly), then EndEntry(present).
type Tape struct {
	arena    *Arena
	buf      []byte
	entryOff int // start offset of the entry currently being written, -1 if none

	presence []bool
	lengths  []int
	offsets  []int // len() == number of entries + 1; offsets[0] == 0
}

// NewTape creates an empty tape backed by the given arena.
func NewTape(a *Arena) *Tape {
	return &Tape{
		arena:    a,
		entryOff: -1,
		offsets:  []int{0},
	}
}

// BeginEntry marks the start of a new tape entry. Panics if a previous
// entry was started but never closed with EndEntry.
func (t *Tape) BeginEntry() {
	if t.entryOff >= 0 {
		panic("docdb: Tape.BeginEntry called while an entry is already open")
	}
	t.entryOff = len(t.buf)
}

// EndEntry closes the entry opened by BeginEntry, recording its
// presence bit, length and offset. If present is false, any bytes
// written since BeginEntry are kept (normally none) and the length is
// still the number of bytes written — callers that want a zero-length
// logical null should not write anything before calling EndEntry(false).
func (t *Tape) EndEntry(present bool) {
	if t.entryOff < 0 {
		panic("docdb: Tape.EndEntry called without a matching BeginEntry")
	}
	length := len(t.buf) - t.entryOff
	t.presence = append(t.presence, present)
	t.lengths = append(t.lengths, length)
	t.offsets = append(t.offsets, len(t.buf))
	t.entryOff = -1
}

// AppendNull appends a zero-length, not-present entry in one call.
func (t *Tape) AppendNull() {
	t.BeginEntry()
	t.EndEntry(false)
}

// AppendBytes appends a present entry whose content is exactly b, in
// one call.
func (t *Tape) AppendBytes(b []byte) {
	t.BeginEntry()
	t.Write(b) //nolint:errcheck // Tape.Write never errors
	t.EndEntry(true)
}

// WriteByte implements io.ByteWriter.
func (t *Tape) WriteByte(b byte) error {
	t.buf = t.growAndAppend(t.buf, 1)
	t.buf[len(t.buf)-1] = b
	return nil
}

// Write implements io.Writer.
func (t *Tape) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}
	old := len(t.buf)
	t.buf = t.growAndAppend(t.buf, n)
	copy(t.buf[old:], p)
	return n, nil
}

// growAndAppend grows buf by extra bytes (zeroed), reusing arena
// capacity when available and falling back to a fresh arena block
// (copying old content) otherwise.
func (t *Tape) growAndAppend(buf []byte, extra int) []byte {
	if cap(buf)-len(buf) >= extra {
		return buf[:len(buf)+extra]
	}
	newCap := cap(buf) * 2
	need := len(buf) + extra
	if newCap < need {
		newCap = need
	}
	if newCap < 64 {
		newCap = 64
	}
	fresh := t.arena.AllocCap(len(buf), newCap)
	copy(fresh, buf)
	return fresh[:len(buf)+extra]
}

// Len returns the number of entries recorded so far.
func (t *Tape) Len() int { return len(t.lengths) }

// EntryBytes returns the raw bytes of entry i.
func (t *Tape) EntryBytes(i int) []byte {
	off := t.offsets[i]
	return t.buf[off : off+t.lengths[i]]
}

// Present reports whether entry i was closed with EndEntry(true).
func (t *Tape) Present(i int) bool { return t.presence[i] }

// Presence returns the presence bit for every entry, in order.
func (t *Tape) Presence() []bool { return t.presence }

// Lengths returns the byte length of every entry, in order.
func (t *Tape) Lengths() []int { return t.lengths }

// Offsets returns the inclusive prefix sums of Lengths: len(Offsets())
// == Len()+1, and Offsets()[i+1]-Offsets()[i] == Lengths()[i].
func (t *Tape) Offsets() []int { return t.offsets }

// Bytes returns the single contiguous byte array backing every entry.
func (t *Tape) Bytes() []byte { return t.buf }
