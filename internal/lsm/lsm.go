// Package lsm implements the log-structured merge-tree frontend: a
// memtable buffering writes in memory, flushed as a complete sorted-table
// segment once its estimated size crosses a threshold.
//
// The memtable flush is what makes the sorted-table write path legal: keys
// are walked in sorted order, so the segment file is sorted by construction
// and the sparse index is built by the ordinary append rule. The flushed
// segment is handed to the segmented engine, which runs under the explicit
// creation policy and takes over rotation-free prepending and merging.
package lsm

import (
	"path/filepath"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cinderdb/cinder/internal/memindex"
	"github.com/cinderdb/cinder/internal/record"
	"github.com/cinderdb/cinder/internal/segment"
	"github.com/cinderdb/cinder/internal/segmented"
	"github.com/cinderdb/cinder/pkg/errors"
	"github.com/cinderdb/cinder/pkg/filesys"
)

// flushFileName is the name a memtable flush builds its segment under
// before Prepend renames it to position zero. Distinct from the merge temp
// name so a flush and a merge can never collide.
const flushFileName = "flushed_memtable_tmp_file.txt"

// DB is the LSM frontend over a segmented engine.
type DB struct {
	dir           string
	memtable      *memindex.Index[string]
	memtableSize  int64
	sizeThreshold int64
	segmented     *segmented.DB
	factory       segment.Factory
	log           *zap.SugaredLogger
	closed        atomic.Bool
}

// Config carries everything Open needs. The factory must build
// sorted-table segments in the same directory the segmented engine runs in,
// and the engine must use the explicit creation policy.
type Config struct {
	Dir                   string
	SegmentedDB           *segmented.DB
	Factory               segment.Factory
	MemtableSizeThreshold int64
	Logger                *zap.SugaredLogger
}

// Open initializes the frontend with an empty memtable, discarding any
// partially written flush file a crash left behind. Writes buffered in the
// memtable at crash time are lost; that is the stated durability model.
func Open(config *Config) (*DB, error) {
	if config == nil || config.SegmentedDB == nil || config.Factory == nil || config.Logger == nil {
		return nil, errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "lsm configuration is required").
			WithField("config").WithRule("required")
	}
	if config.MemtableSizeThreshold <= 0 {
		return nil, errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "memtable size threshold must be positive").
			WithField("memtableSizeThreshold").WithRule("positive").WithProvided(config.MemtableSizeThreshold)
	}

	stalePath := filepath.Join(config.Dir, flushFileName)
	if exists, err := filesys.Exists(stalePath); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeRecoveryFailed, "failed to probe for leftover flush file").
			WithPath(stalePath)
	} else if exists {
		config.Logger.Warnw("Discarding flush file from interrupted memtable flush", "path", stalePath)
		if err := filesys.DeleteFile(stalePath); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeRecoveryFailed, "failed to discard leftover flush file").
				WithPath(stalePath)
		}
	}

	return &DB{
		dir:           config.Dir,
		memtable:      memindex.New[string](),
		sizeThreshold: config.MemtableSizeThreshold,
		segmented:     config.SegmentedDB,
		factory:       config.Factory,
		log:           config.Logger,
	}, nil
}

// Set buffers a live value in the memtable.
func (db *DB) Set(key, value string) error {
	if db.closed.Load() {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "lsm frontend is closed")
	}
	db.memtable.Set(key, record.Present(value))
	db.memtableSize += int64(len(key) + len(value))
	return db.flushIfNeeded()
}

// Delete buffers a tombstone in the memtable. The tombstone must reach the
// segments eventually, so it grows the size estimate like any write.
func (db *DB) Delete(key string) error {
	if db.closed.Load() {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "lsm frontend is closed")
	}
	db.memtable.Set(key, record.Tombstone[string]())
	db.memtableSize += int64(len(key))
	return db.flushIfNeeded()
}

// Get consults the memtable first; only on a complete miss does the
// segmented engine answer. A buffered tombstone hides every older value.
func (db *DB) Get(key string) (string, bool, error) {
	if db.closed.Load() {
		return "", false, errors.NewStorageError(nil, errors.ErrorCodeInternal, "lsm frontend is closed")
	}

	if status, ok := db.memtable.Get(key); ok {
		if status.Deleted {
			return "", false, nil
		}
		return status.Value, true, nil
	}
	return db.segmented.Get(key)
}

// SegmentCount returns the number of live segments beneath the memtable.
func (db *DB) SegmentCount() int {
	return db.segmented.SegmentCount()
}

// Close flushes a non-empty memtable regardless of the threshold, so every
// acknowledged write is on disk before the engine goes away, then closes
// the segmented engine.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "lsm frontend is already closed")
	}
	if err := db.flush(); err != nil {
		return err
	}
	return db.segmented.Close()
}

// flushIfNeeded flushes once the size estimate, the cumulative length of
// keys and values written since the last flush, reaches the threshold. The
// memtable itself does not track bytes.
func (db *DB) flushIfNeeded() error {
	if db.memtableSize < db.sizeThreshold {
		return nil
	}
	return db.flush()
}

// flush walks the memtable in sorted key order, builds a fresh sorted-table
// segment record by record, prepends it to the segmented engine and resets
// the memtable.
func (db *DB) flush() error {
	if db.memtable.Len() == 0 {
		db.memtableSize = 0
		return nil
	}

	keys := db.memtable.Keys()
	sort.Strings(keys)

	seg, err := db.factory.New(flushFileName)
	if err != nil {
		return err
	}
	for _, key := range keys {
		status, _ := db.memtable.Get(key)
		if err := seg.SetStatus(key, status); err != nil {
			seg.Close()
			return err
		}
	}

	if err := db.segmented.Prepend(seg); err != nil {
		return err
	}

	db.log.Infow("Flushed memtable",
		"dir", db.dir,
		"records", len(keys),
		"estimatedBytes", db.memtableSize,
		"segments", db.segmented.SegmentCount(),
	)
	db.memtable = memindex.New[string]()
	db.memtableSize = 0
	return nil
}
