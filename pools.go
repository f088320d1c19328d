package docdb

import "sync"

// arenaPool recycles Arenas across batch calls so a busy DB doesn't
// churn chunk allocations call after call.
var arenaPool = sync.Pool{
	New: func() any { return NewArena(defaultArenaChunkSize) },
}

func getArena() *Arena {
	return arenaPool.Get().(*Arena)
}

func putArena(a *Arena) {
	a.Reset()
	arenaPool.Put(a)
}

// keyBytesPool hands out the scratch buffers used to encode document
// keys into their big-endian on-disk form. Buffers are never put back
// into the pool: bbolt keeps references to Put keys until the
// transaction commits, so recycling them early would corrupt writes.
var keyBytesPool = sync.Pool{
	New: func() any { return make([]byte, 0, 16) },
}

func getKeyBytes() []byte {
	return keyBytesPool.Get().([]byte)[:0]
}
