// Package cinder provides the public face of the cinder storage engine: a
// pedagogical key-value store that persists string to string mappings with
// explicit tombstones, demonstrating the evolution from append-only logs to
// a log-structured merge-tree.
//
// Two store variants share the same segmented core and differ only in their
// segment-file strategy. HashLogStore keeps a full in-memory key index per
// segment and rotates automatically; SSTableStore buffers writes in a
// memtable and flushes sorted segments with sparse indexes. Both expose the
// uniform Store interface, so benchmark code and callers can treat them
// interchangeably.
package cinder

import (
	"context"
	"fmt"

	"github.com/cinderdb/cinder/internal/lsm"
	"github.com/cinderdb/cinder/internal/segment/hashindexed"
	"github.com/cinderdb/cinder/internal/segment/sstable"
	"github.com/cinderdb/cinder/internal/segmented"
	"github.com/cinderdb/cinder/pkg/logger"
	"github.com/cinderdb/cinder/pkg/options"
)

// Store is the uniform key-value interface every cinder variant satisfies.
type Store interface {
	// Set records a live value for the key.
	Set(key, value string) error

	// Delete records a tombstone for the key. Deleting an absent key is not
	// an error.
	Delete(key string) error

	// Get returns the value for the key. The second return value is false
	// when the key is absent or tombstoned.
	Get(key string) (string, bool, error)

	// Description labels this store variant and its parameters, for
	// benchmark output.
	Description() string

	// Close releases the store's resources. Closing flushes whatever the
	// variant buffers in memory.
	Close() error
}

// HashLogStore is the segmented store whose segments carry full in-memory
// key indexes. Rotation is automatic: writes go straight to the head
// segment and a full head is frozen in place.
type HashLogStore struct {
	db      *segmented.DB
	options *options.Options
}

var _ Store = (*HashLogStore)(nil)

// NewHashLogStore opens a hash-indexed segmented store against the
// configured data directory, reconstructing any segments already there.
func NewHashLogStore(ctx context.Context, service string, opts ...options.OptionFunc) (*HashLogStore, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	db, err := segmented.Open(&segmented.Config{
		Dir:              defaultOpts.DataDir,
		SegmentPrefix:    defaultOpts.SegmentPrefix,
		MergingThreshold: defaultOpts.MergingThreshold,
		Policy:           segmented.Automatic,
		Factory: &hashindexed.Factory{
			Dir:               defaultOpts.DataDir,
			FileSizeThreshold: defaultOpts.FileSizeThreshold,
		},
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	return &HashLogStore{db: db, options: &defaultOpts}, nil
}

// Set records a live value for the key.
func (s *HashLogStore) Set(key, value string) error {
	return s.db.Set(key, value)
}

// Delete records a tombstone for the key.
func (s *HashLogStore) Delete(key string) error {
	return s.db.Delete(key)
}

// Get returns the value for the key, or false when absent or tombstoned.
func (s *HashLogStore) Get(key string) (string, bool, error) {
	return s.db.Get(key)
}

// Description labels the variant and its thresholds.
func (s *HashLogStore) Description() string {
	return fmt.Sprintf("segmented hash-indexed log store (file size threshold %d, merging threshold %d)",
		s.options.FileSizeThreshold, s.options.MergingThreshold)
}

// Close releases every segment's file handle.
func (s *HashLogStore) Close() error {
	return s.db.Close()
}

// SSTableStore is the LSM store: a memtable in front of sorted-table
// segments with sparse indexes, merged by sort-merge compaction.
type SSTableStore struct {
	lsm     *lsm.DB
	options *options.Options
}

var _ Store = (*SSTableStore)(nil)

// NewSSTableStore opens an LSM store against the configured data
// directory, reconstructing any segments already there. The memtable starts
// empty; writes that were buffered when a previous process died are gone.
func NewSSTableStore(ctx context.Context, service string, opts ...options.OptionFunc) (*SSTableStore, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	factory := &sstable.Factory{
		Dir:               defaultOpts.DataDir,
		Sparsity:          defaultOpts.Sparsity,
		FileSizeThreshold: defaultOpts.FileSizeThreshold,
	}

	db, err := segmented.Open(&segmented.Config{
		Dir:              defaultOpts.DataDir,
		SegmentPrefix:    defaultOpts.SegmentPrefix,
		MergingThreshold: defaultOpts.MergingThreshold,
		Policy:           segmented.Explicit,
		Factory:          factory,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}

	frontend, err := lsm.Open(&lsm.Config{
		Dir:                   defaultOpts.DataDir,
		SegmentedDB:           db,
		Factory:               factory,
		MemtableSizeThreshold: defaultOpts.MemtableSizeThreshold,
		Logger:                log,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SSTableStore{lsm: frontend, options: &defaultOpts}, nil
}

// Set buffers a live value in the memtable.
func (s *SSTableStore) Set(key, value string) error {
	return s.lsm.Set(key, value)
}

// Delete buffers a tombstone in the memtable.
func (s *SSTableStore) Delete(key string) error {
	return s.lsm.Delete(key)
}

// Get returns the value for the key, or false when absent or tombstoned.
func (s *SSTableStore) Get(key string) (string, bool, error) {
	return s.lsm.Get(key)
}

// Description labels the variant and its thresholds.
func (s *SSTableStore) Description() string {
	return fmt.Sprintf("sstable store (merging threshold %d, sparsity %d, memtable size threshold %d)",
		s.options.MergingThreshold, s.options.Sparsity, s.options.MemtableSizeThreshold)
}

// Close flushes the memtable and releases every segment's file handle.
func (s *SSTableStore) Close() error {
	return s.lsm.Close()
}
