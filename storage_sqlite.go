package docdb

import (
	"bytes"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteStorage is a storage backend on top of a single SQLite file,
// one table per (name, sub) bucket, each holding a BLOB primary key and
// a BLOB value — grounded on the single-database, one-table-per-
// collection shape of the sync-server example's SqliteStore, adapted
// here to the generic storageBucket interface instead of a
// collection-specific Get/Put surface.
type sqliteStorage struct {
	mu sync.Mutex // serializes writers; SQLite itself only allows one writer
	db *sql.DB
}

func newSQLiteStorage(path string) (storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _buckets (
		name TEXT NOT NULL,
		sub TEXT NOT NULL,
		PRIMARY KEY (name, sub)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStorage{db: db}, nil
}

func (s *sqliteStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		s.mu.Lock()
	}
	stx, err := s.db.Begin()
	if err != nil {
		if writable {
			s.mu.Unlock()
		}
		return nil, err
	}
	return &sqliteStorageTx{s: s, tx: stx, writable: writable}, nil
}

func (s *sqliteStorage) Close() error { return s.db.Close() }

type sqliteStorageTx struct {
	s        *sqliteStorage
	tx       *sql.Tx
	writable bool
	closed   bool
}

func (tx *sqliteStorageTx) Writable() bool { return tx.writable }

// tableName derives a SQL-safe table name from a bucket's (name, sub)
// pair. name/sub are always docdb-internal identifiers (a fixed
// "docs" literal and a base-36 collection handle), never caller
// strings, so a simple prefixed, escaped identifier is sufficient.
func tableName(name, sub string) string {
	if sub == "" {
		return "b_" + sqlIdent(name)
	}
	return "b_" + sqlIdent(name) + "__" + sqlIdent(sub)
}

func sqlIdent(s string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (tx *sqliteStorageTx) bucketExists(name, sub string) (bool, error) {
	var n int
	err := tx.tx.QueryRow(`SELECT COUNT(*) FROM _buckets WHERE name = ? AND sub = ?`, name, sub).Scan(&n)
	return n > 0, err
}

func (tx *sqliteStorageTx) Bucket(name, sub string) storageBucket {
	ok, err := tx.bucketExists(name, sub)
	if err != nil || !ok {
		return nil
	}
	return sqliteBucket{tx: tx, table: tableName(name, sub)}
}

func (tx *sqliteStorageTx) CreateBucket(name, sub string) (storageBucket, error) {
	if !tx.writable {
		return nil, fmt.Errorf("tx not writable")
	}
	if sub != "" {
		if err := tx.ensureBucket(name, ""); err != nil {
			return nil, err
		}
	}
	if err := tx.ensureBucket(name, sub); err != nil {
		return nil, err
	}
	return sqliteBucket{tx: tx, table: tableName(name, sub)}, nil
}

func (tx *sqliteStorageTx) ensureBucket(name, sub string) error {
	ok, err := tx.bucketExists(name, sub)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	table := tableName(name, sub)
	if _, err := tx.tx.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		k BLOB PRIMARY KEY,
		v BLOB NOT NULL
	)`, table)); err != nil {
		return err
	}
	_, err = tx.tx.Exec(`INSERT OR IGNORE INTO _buckets (name, sub) VALUES (?, ?)`, name, sub)
	return err
}

func (tx *sqliteStorageTx) DeleteBucket(name, sub string) error {
	if !tx.writable {
		return fmt.Errorf("tx not writable")
	}
	if sub == "" {
		return ErrBucketNotFound
	}
	ok, err := tx.bucketExists(name, sub)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBucketNotFound
	}
	if _, err := tx.tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName(name, sub))); err != nil {
		return err
	}
	_, err = tx.tx.Exec(`DELETE FROM _buckets WHERE name = ? AND sub = ?`, name, sub)
	return err
}

func (tx *sqliteStorageTx) Commit() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	err := tx.tx.Commit()
	if tx.writable {
		tx.s.mu.Unlock()
	}
	return err
}

func (tx *sqliteStorageTx) Rollback() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	err := tx.tx.Rollback()
	if tx.writable {
		tx.s.mu.Unlock()
	}
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func (tx *sqliteStorageTx) Size() int64 { return 0 }

// sqliteBucket talks to one table via the enclosing transaction.
// Cursor() snapshots the table into a sorted in-memory slice, the same
// simplicity-over-efficiency tradeoff storage_mem.go makes for its
// transaction snapshots: batched document calls scan a handful of keys
// at a time, never whole tables.
type sqliteBucket struct {
	tx    *sqliteStorageTx
	table string
}

func (b sqliteBucket) Get(key []byte) []byte {
	var v []byte
	err := b.tx.tx.QueryRow(fmt.Sprintf(`SELECT v FROM %s WHERE k = ?`, b.table), key).Scan(&v)
	if err != nil {
		return nil
	}
	return v
}

func (b sqliteBucket) Put(key, value []byte) error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	_, err := b.tx.tx.Exec(fmt.Sprintf(`INSERT INTO %s (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, b.table), key, value)
	return err
}

func (b sqliteBucket) Delete(key []byte) error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	_, err := b.tx.tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, b.table), key)
	return err
}

func (b sqliteBucket) Cursor() storageCursor {
	rows, err := b.tx.tx.Query(fmt.Sprintf(`SELECT k, v FROM %s ORDER BY k ASC`, b.table))
	if err != nil {
		return &sqliteCursor{pos: -1}
	}
	defer rows.Close()
	var items []memKV
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			break
		}
		items = append(items, memKV{key: k, value: v})
	}
	return &sqliteCursor{items: items, pos: -1}
}

func (b sqliteBucket) Stats() bucketStats {
	return bucketStats{KeyN: b.KeyCount()}
}

func (b sqliteBucket) KeyCount() int {
	var n int
	_ = b.tx.tx.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, b.table)).Scan(&n)
	return n
}

// sqliteCursor replays storage_mem.go's memCursor logic over a static
// snapshot slice, since the underlying rows have already been drained.
type sqliteCursor struct {
	items []memKV
	pos   int
}

func (c *sqliteCursor) First() ([]byte, []byte) {
	if len(c.items) == 0 {
		c.pos = 0
		return nil, nil
	}
	c.pos = 0
	return c.items[0].key, c.items[0].value
}

func (c *sqliteCursor) Last() ([]byte, []byte) {
	if len(c.items) == 0 {
		c.pos = 0
		return nil, nil
	}
	c.pos = len(c.items) - 1
	return c.items[c.pos].key, c.items[c.pos].value
}

func (c *sqliteCursor) Seek(seek []byte) ([]byte, []byte) {
	i := sort.Search(len(c.items), func(i int) bool {
		return bytes.Compare(c.items[i].key, seek) >= 0
	})
	c.pos = i
	if i >= len(c.items) {
		return nil, nil
	}
	return c.items[i].key, c.items[i].value
}

func (c *sqliteCursor) SeekLast(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return c.Last()
	}
	limit := append([]byte(nil), prefix...)
	if inc(limit) {
		i := sort.Search(len(c.items), func(i int) bool {
			return bytes.Compare(c.items[i].key, limit) >= 0
		})
		if i == 0 {
			c.pos = 0
			return nil, nil
		}
		c.pos = i - 1
		return c.items[c.pos].key, c.items[c.pos].value
	}
	return c.Last()
}

func (c *sqliteCursor) Next() ([]byte, []byte) {
	if c.pos < 0 {
		return c.First()
	}
	c.pos++
	if c.pos >= len(c.items) {
		return nil, nil
	}
	return c.items[c.pos].key, c.items[c.pos].value
}

func (c *sqliteCursor) Prev() ([]byte, []byte) {
	if c.pos < 0 {
		return nil, nil
	}
	c.pos--
	if c.pos < 0 || c.pos >= len(c.items) {
		return nil, nil
	}
	return c.items[c.pos].key, c.items[c.pos].value
}

func (c *sqliteCursor) Delete() error {
	return fmt.Errorf("docdb: sqlite cursor delete unsupported; use Bucket.Delete")
}
