package docdb

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Txish lets helpers accept either a *Tx or anything that embeds one.
type Txish interface {
	DBTx() *Tx
}

// Tx is a single KV transaction plus the per-call scratch state (arena,
// memo cache) that the batch and gather operations build on top of it.
type Tx struct {
	db      *DB
	stx     storageTx
	managed bool
	closed  bool

	written          bool
	commitDespiteErr bool

	memo map[string]any

	arena *Arena

	startTime time.Time
	stack     string
}

func (db *DB) newTx(stx storageTx, managed bool, memo map[string]any) *Tx {
	tx := &Tx{db: db, stx: stx, managed: managed, memo: memo, startTime: time.Now()}
	if trackTxns {
		tx.stack = string(debug.Stack())
	}
	db.addTx(tx)
	return tx
}

// DBTx implements Txish.
func (tx *Tx) DBTx() *Tx { return tx }

func (tx *Tx) DB() *DB { return tx.db }

// Arena returns the arena backing this transaction's batch operations,
// checking one out of the shared pool lazily on first use. It goes back
// to the pool when the transaction closes, which also invalidates any
// Tape a batch operation returned: tape views are only valid until the
// transaction ends.
func (tx *Tx) Arena() *Arena {
	if tx.arena == nil {
		tx.arena = getArena()
	}
	return tx.arena
}

func (tx *Tx) bucket(collection string) storageBucket {
	return tx.stx.Bucket(collectionBucket, collection)
}

func (tx *Tx) createBucket(collection string) (storageBucket, error) {
	return tx.stx.CreateBucket(collectionBucket, collection)
}

// Tx runs f in a transaction, retrying is not attempted here (unlike
// the single Bolt-only predecessor of this type, the storage interface
// also serves the in-memory and SQLite backends, neither of which has
// an equivalent to bbolt's batched-commit optimization). A read-only
// transaction is always rolled back. A writable one is committed when f
// returns nil, or when f returns an error after writing something and
// calling CommitDespiteError; otherwise it is rolled back.
func (db *DB) Tx(writable bool, f func(tx *Tx) error) error {
	stx, err := db.store.BeginTx(writable)
	if err != nil {
		return &UnderlyingKVError{Op: "begin", Err: err}
	}
	tx := db.newTx(stx, false, nil)
	defer tx.Close()

	if writable {
		db.WriteCount.Add(1)
	} else {
		db.ReadCount.Add(1)
	}

	funcErr := safelyCall(f, tx)
	if !writable {
		return funcErr
	}
	if funcErr != nil && !(tx.written && tx.commitDespiteErr) {
		return funcErr
	}
	if cerr := tx.Commit(); cerr != nil {
		return &UnderlyingKVError{Op: "commit", Err: cerr}
	}
	return funcErr
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}

func (db *DB) BeginRead() *Tx {
	stx, err := db.store.BeginTx(false)
	if err != nil {
		panic(fmt.Errorf("docdb: failed to start reading: %w", err))
	}
	db.ReadCount.Add(1)
	return db.newTx(stx, false, nil)
}

func (db *DB) Read(f func(tx *Tx)) {
	tx := db.BeginRead()
	defer tx.Close()
	f(tx)
}

func (db *DB) ReadErr(f func(tx *Tx) error) error {
	tx := db.BeginRead()
	defer tx.Close()
	return f(tx)
}

func (db *DB) Write(f func(tx *Tx)) {
	tx := db.BeginUpdate()
	defer tx.Close()
	f(tx)
	if err := tx.Commit(); err != nil {
		panic(fmt.Errorf("docdb: commit: %w", err))
	}
}

func (db *DB) BeginUpdate() *Tx {
	stx, err := db.store.BeginTx(true)
	if err != nil {
		panic(fmt.Errorf("docdb: failed to start writing: %w", err))
	}
	db.WriteCount.Add(1)
	return db.newTx(stx, false, nil)
}

func (tx *Tx) IsWritable() bool { return tx.stx.Writable() }

func (tx *Tx) CommitDespiteError() { tx.commitDespiteErr = true }

func (tx *Tx) markWritten() { tx.written = true }

func (tx *Tx) Close() {
	if !tx.closed {
		tx.closed = true
		// The only error Rollback returns once a commit already
		// happened is a "tx closed" sentinel, which we treat as success.
		_ = tx.stx.Rollback()
	}
	if tx.arena != nil {
		putArena(tx.arena)
		tx.arena = nil
	}
	tx.db.removeTx(tx)
}

func (tx *Tx) Commit() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	if tx.stx.Writable() {
		tx.db.lastSize.Store(tx.stx.Size())
	}
	return tx.stx.Commit()
}

func (tx *Tx) GetMemo(key string) (any, bool) {
	v, found := tx.memo[key]
	return v, found
}

func (tx *Tx) Memo(key string, f func() (any, error)) (any, error) {
	v, found := tx.memo[key]
	if found {
		if e, ok := v.(error); ok {
			return nil, e
		}
		return v, nil
	}

	if tx.memo == nil {
		tx.memo = make(map[string]any)
	}

	v, err := f()
	if err != nil {
		tx.memo[key] = err
	} else {
		tx.memo[key] = v
	}
	return v, err
}

// Memo caches the result of f under key for the lifetime of the
// transaction, generically typed.
func Memo[T any](txish Txish, key string, f func() (T, error)) (T, error) {
	tx := txish.DBTx()
	v, err := tx.Memo(key, func() (any, error) {
		return f()
	})
	typed, _ := v.(T)
	return typed, err
}
