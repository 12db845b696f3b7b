// Package kv is the embedded document store on BadgerDB. Each document is a
// JSON value under "<collection>/<id>"; secondary indexes are empty-valued
// keys whose suffix is the owning document id. Every operation runs in one
// optimistic transaction, so single-document conditional updates are atomic.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/logger"
)

const maxTxnRetries = 16

type Config struct {
	// Path is ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's own logs; nil silences them.
	Logger *slog.Logger
	// GCInterval is how often value log GC runs, 0 disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig is for tests: nothing touches disk and GC is off.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type Storage struct {
	db     *badger.DB
	stopGC context.CancelFunc
	gcDone chan struct{}
}

func New(cfg Config) (*Storage, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Storage{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopGC = cancel
		s.gcDone = make(chan struct{})
		go s.runValueLogGC(ctx, cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *Storage) runValueLogGC(ctx context.Context, interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing worth collecting
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logger.Log.Warn("badger value log GC error", "component", "kv", "error", err)
			}
		}
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

func (s *Storage) Close() error {
	if s.stopGC != nil {
		s.stopGC()
		<-s.gcDone
	}
	return s.db.Close()
}

// update runs fn in a read-write transaction and retries it on write conflicts.
// fn must assign its results afresh on every attempt.
func (s *Storage) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction still conflicting after %d attempts", maxTxnRetries)
}

func (s *Storage) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// --- keys ---

const (
	thesisPrefix          = "thesis/"
	versionPrefix         = "version/"
	versionKeyPrefix      = "version_key/" // <thesis>/<major>/<minor> -> version id
	reviewPrefix          = "review/"
	reviewByVersionPrefix = "review_by_version/" // <version>/<review>
	reviewKeyPrefix       = "review_key/"        // <version>/<reviewer> -> review id
	commentPrefix         = "comment/"
	commentByTargetPrefix = "comment_by_target/" // <type>/<target>/<comment>
)

func docKey(prefix string, id uuid.UUID) []byte {
	return []byte(prefix + id.String())
}

func versionKeyPrefixOf(thesisId uuid.UUID) []byte {
	return []byte(versionKeyPrefix + thesisId.String() + "/")
}

func versionMajorPrefix(thesisId uuid.UUID, major int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d/", versionKeyPrefix, thesisId, major))
}

// zero padded so byte order is numeric order
func versionNumberKey(thesisId uuid.UUID, major, minor int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d/%010d", versionKeyPrefix, thesisId, major, minor))
}

func reviewIndexPrefix(versionId uuid.UUID) []byte {
	return []byte(reviewByVersionPrefix + versionId.String() + "/")
}

func reviewIndexKey(versionId, reviewId uuid.UUID) []byte {
	return []byte(reviewByVersionPrefix + versionId.String() + "/" + reviewId.String())
}

func reviewerKey(versionId, reviewerId uuid.UUID) []byte {
	return []byte(reviewKeyPrefix + versionId.String() + "/" + reviewerId.String())
}

func commentIndexPrefix(targetType string, targetId uuid.UUID) []byte {
	return []byte(commentByTargetPrefix + targetType + "/" + targetId.String() + "/")
}

func commentIndexKey(targetType string, targetId, commentId uuid.UUID) []byte {
	return []byte(commentByTargetPrefix + targetType + "/" + targetId.String() + "/" + commentId.String())
}

// --- document helpers ---

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// indexIds returns the id suffixes of all keys under prefix, in key order.
func indexIds(txn *badger.Txn, prefix []byte) ([]uuid.UUID, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []uuid.UUID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := uuid.ParseBytes(it.Item().Key()[len(prefix):])
		if err != nil {
			return nil, fmt.Errorf("corrupt index key %q: %w", it.Item().Key(), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// valueIds returns the ids stored as values under prefix, in key order.
func valueIds(txn *badger.Txn, prefix []byte) ([]uuid.UUID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []uuid.UUID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var id uuid.UUID
		err := it.Item().Value(func(val []byte) error {
			var perr error
			id, perr = uuid.ParseBytes(val)
			return perr
		})
		if err != nil {
			return nil, fmt.Errorf("corrupt index value at %q: %w", it.Item().Key(), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// scanDocs decodes every document under prefix.
func scanDocs[T any](txn *badger.Txn, prefix string) ([]T, error) {
	p := []byte(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []T
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var doc T
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &doc) }); err != nil {
			return nil, fmt.Errorf("decode %q: %w", it.Item().Key(), err)
		}
		out = append(out, doc)
	}
	return out, nil
}
