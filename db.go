package docdb

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

const trackTxns = true

// Backend selects which KV engine implementation backs a DB.
type Backend int

const (
	// BackendBolt stores data in a single Bolt file (go.etcd.io/bbolt).
	// This is the default and the only backend meant for production use.
	BackendBolt Backend = iota
	// BackendMem keeps everything in process memory; used in tests.
	BackendMem
	// BackendSQLite stores data in a SQLite database file, one table per
	// collection, via mattn/go-sqlite3.
	BackendSQLite
)

type DB struct {
	store   storage
	logf    func(format string, args ...any)
	verbose bool

	compress          bool
	compressThreshold int

	lastSize   atomic.Int64
	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64

	txns     []*Tx
	txnsLock sync.Mutex
}

type Options struct {
	Backend   Backend
	Logf      func(format string, args ...any)
	Verbose   bool
	IsTesting bool
	MmapSize  int

	// Compress gzips stored values at or above CompressThreshold bytes
	// (a built-in default applies when CompressThreshold is zero).
	// Reading compressed values back works whether or not the option is
	// set, so it is safe to toggle between runs.
	Compress          bool
	CompressThreshold int
}

// Open opens (creating if necessary) a database at path, using the
// backend named by opt.Backend. path is ignored for BackendMem.
func Open(path string, opt Options) (*DB, error) {
	store, err := openStore(path, opt)
	if err != nil {
		return nil, err
	}

	logf := opt.Logf
	if logf == nil {
		logf = func(format string, args ...any) { slog.Debug(fmt.Sprintf(format, args...)) }
	}

	threshold := opt.CompressThreshold
	if threshold <= 0 {
		threshold = defaultCompressThreshold
	}

	return &DB{
		store:             store,
		logf:              logf,
		verbose:           opt.Verbose,
		compress:          opt.Compress,
		compressThreshold: threshold,
	}, nil
}

func openStore(path string, opt Options) (storage, error) {
	switch opt.Backend {
	case BackendMem:
		return newMemStorage(), nil
	case BackendSQLite:
		s, err := newSQLiteStorage(path)
		if err != nil {
			return nil, fmt.Errorf("docdb: opening sqlite store: %w", err)
		}
		return s, nil
	default:
		bopt := *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024 * 5
		} else {
			bopt.InitialMmapSize = 1024 * 1024 * 1024
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MmapSize != 0 {
			bopt.InitialMmapSize = opt.MmapSize
		}
		bdb, err := bbolt.Open(path, 0666, &bopt)
		if err != nil {
			return nil, fmt.Errorf("docdb: opening bolt store: %w", err)
		}
		return newBoltStorage(bdb), nil
	}
}

// SetLogger swaps the logf callback used for batch-planning debug
// traces (dedup decisions, fast-path/general-path choice). Passing nil
// restores the slog.Debug default Open installed.
func (db *DB) SetLogger(logf func(format string, args ...any)) {
	if logf == nil {
		logf = func(format string, args ...any) { slog.Debug(fmt.Sprintf(format, args...)) }
	}
	db.logf = logf
}

func (db *DB) Size() int64 { return db.lastSize.Load() }

func (db *DB) Close() error {
	return db.store.Close()
}

func (db *DB) addTx(tx *Tx) {
	if !trackTxns {
		return
	}
	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()
	db.txns = append(db.txns, tx)
}

func (db *DB) removeTx(tx *Tx) {
	if !trackTxns {
		return
	}
	db.txnsLock.Lock()
	defer db.txnsLock.Unlock()

	found := -1
	for i, t := range db.txns {
		if t == tx {
			found = i
			break
		}
	}
	if found < 0 {
		return
	}

	n := len(db.txns)
	db.txns[found] = db.txns[n-1]
	db.txns[n-1] = nil
	db.txns = db.txns[:n-1]
}

func (db *DB) DescribeOpenTxns() string {
	if !trackTxns {
		return "OPEN TX TRACKING DISABLED"
	}

	db.txnsLock.Lock()
	txns := slices.Clone(db.txns)
	db.txnsLock.Unlock()

	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	slices.SortFunc(txns, func(a, b *Tx) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		ms := now.Sub(tx.startTime).Milliseconds()
		if ms < 100 {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms\n", ms)
		} else {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms:\n%s", ms, tx.stack)
		}
	}

	return buf.String()
}
