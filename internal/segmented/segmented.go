// Package segmented implements the engine core: an ordered deque of
// segments, newest at the front, behind a strategy-agnostic interface.
//
// Writes land in the head segment. When the head reports itself ready to be
// archived it is frozen by renaming every segment one position up and
// prepending a fresh head. When the segment count reaches the merging
// threshold, the two oldest segments are fused: the newer absorbs the older
// through an independent reader, the older is deleted, and positions stay
// contiguous. Reads walk the deque front to back and the first segment with
// an opinion decides.
//
// The engine is single-threaded and cooperative. Nothing here locks; the
// caller serializes all operations.
package segmented

import (
	"io"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cinderdb/cinder/internal/record"
	"github.com/cinderdb/cinder/internal/segment"
	"github.com/cinderdb/cinder/pkg/errors"
	"github.com/cinderdb/cinder/pkg/filesys"
	"github.com/cinderdb/cinder/pkg/seginfo"
)

// CreationPolicy controls who prepends fresh head segments.
type CreationPolicy int

const (
	// Automatic rotates inside Set and Delete: a full head is frozen and a
	// fresh one prepended before the write applies.
	Automatic CreationPolicy = iota

	// Explicit leaves segment creation to the frontend, which builds a
	// complete segment out of band and hands it to Prepend. Set and Delete
	// are rejected under this policy.
	Explicit
)

// DB owns the ordered deque of segments. segments[0] is the newest; file
// names encode each segment's position.
type DB struct {
	dir              string
	prefix           string
	mergingThreshold int
	policy           CreationPolicy
	factory          segment.Factory
	segments         []segment.File
	log              *zap.SugaredLogger
	closed           atomic.Bool
}

// Config carries everything Open needs.
type Config struct {
	Dir              string
	SegmentPrefix    string
	MergingThreshold int
	Policy           CreationPolicy
	Factory          segment.Factory
	Logger           *zap.SugaredLogger
}

// Open initializes an engine against a directory: it creates the directory
// if missing, discards any temporary file a crashed merge left behind,
// reconstructs every segment found on disk by its position, and creates a
// fresh head segment when the directory holds none.
func Open(config *Config) (*DB, error) {
	if config == nil || config.Factory == nil || config.Logger == nil {
		return nil, errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "segmented engine configuration is required").
			WithField("config").WithRule("required")
	}
	if config.MergingThreshold < 2 {
		return nil, errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "merging threshold must be at least two").
			WithField("mergingThreshold").WithRule("bounds").WithProvided(config.MergingThreshold)
	}

	if err := filesys.CreateDir(config.Dir, 0o755, true); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create segment directory").
			WithPath(config.Dir)
	}

	db := &DB{
		dir:              config.Dir,
		prefix:           config.SegmentPrefix,
		mergingThreshold: config.MergingThreshold,
		policy:           config.Policy,
		factory:          config.Factory,
		log:              config.Logger,
	}

	// A leftover merge temp file means a merge did not commit its rename,
	// and it is discarded. A crash before the merge deleted the destination's
	// old file leaves every record in the segment files; a crash between that
	// delete and the rename leaves the destination's position missing, which
	// the contiguity check below rejects.
	tmpPath := filepath.Join(config.Dir, segment.TempFileName)
	if exists, err := filesys.Exists(tmpPath); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeRecoveryFailed, "failed to probe for leftover merge temp file").
			WithPath(tmpPath)
	} else if exists {
		db.log.Warnw("Discarding temp file from interrupted merge", "path", tmpPath)
		if err := filesys.DeleteFile(tmpPath); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeRecoveryFailed, "failed to discard leftover merge temp file").
				WithPath(tmpPath)
		}
	}

	positions, err := seginfo.List(config.Dir, config.SegmentPrefix)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeRecoveryFailed, "failed to discover segment files").
			WithPath(config.Dir)
	}

	for i, position := range positions {
		if position != i {
			return nil, errors.NewStorageError(nil, errors.ErrorCodeRecoveryFailed, "segment positions are not contiguous").
				WithPath(config.Dir).WithPosition(position).
				WithDetail("expected", i)
		}
		seg, err := config.Factory.FromDisk(seginfo.Name(config.SegmentPrefix, position))
		if err != nil {
			return nil, err
		}
		db.segments = append(db.segments, seg)
	}

	if len(db.segments) == 0 {
		head, err := config.Factory.New(seginfo.Name(config.SegmentPrefix, 0))
		if err != nil {
			return nil, err
		}
		db.segments = append(db.segments, head)
		db.log.Infow("Created fresh head segment", "dir", config.Dir)
	} else {
		db.log.Infow("Reconstructed segments from disk", "dir", config.Dir, "segments", len(db.segments))
	}

	return db, nil
}

// Get walks the segments newest first and returns the first decision. A
// tombstone in a newer segment hides any older value: the walk stops and
// the key is reported absent.
func (db *DB) Get(key string) (string, bool, error) {
	if db.closed.Load() {
		return "", false, errors.NewStorageError(nil, errors.ErrorCodeInternal, "engine is closed")
	}

	for _, seg := range db.segments {
		status, ok, err := seg.GetStatus(key)
		if err != nil {
			return "", false, err
		}
		if !ok {
			continue
		}
		if status.Deleted {
			return "", false, nil
		}
		return status.Value, true, nil
	}
	return "", false, nil
}

// Set records a live value for the key.
func (db *DB) Set(key, value string) error {
	return db.setStatus(key, record.Present(value))
}

// Delete records a tombstone for the key.
func (db *DB) Delete(key string) error {
	return db.setStatus(key, record.Tombstone[string]())
}

func (db *DB) setStatus(key string, status record.Status[string]) error {
	if db.closed.Load() {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "engine is closed")
	}
	if db.policy != Automatic {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "direct writes require the automatic creation policy").
			WithField("policy").WithRule("automatic")
	}

	head := db.segments[0]
	ready, err := head.ReadyToArchive()
	if err != nil {
		return err
	}
	if ready {
		if err := db.rotate(); err != nil {
			return err
		}
		head = db.segments[0]
	}

	if err := head.SetStatus(key, status); err != nil {
		return err
	}
	return db.mergePass()
}

// Prepend installs a fully built segment as the new head. This is the
// explicit-policy counterpart of rotation: the frontend hands over a
// segment it finished out of band, existing segments shift one position up,
// and the newcomer takes position zero.
func (db *DB) Prepend(seg segment.File) error {
	if db.closed.Load() {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "engine is closed")
	}
	if db.policy != Explicit {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "prepending segments requires the explicit creation policy").
			WithField("policy").WithRule("explicit")
	}

	if err := db.shiftPositionsUp(); err != nil {
		return err
	}
	if err := seg.Rename(seginfo.Name(db.prefix, 0)); err != nil {
		return err
	}
	db.segments = append([]segment.File{seg}, db.segments...)
	db.log.Infow("Prepended segment", "dir", db.dir, "segments", len(db.segments))

	return db.mergePass()
}

// SegmentCount returns the number of live segments.
func (db *DB) SegmentCount() int {
	return len(db.segments)
}

// Close releases every segment's file handle. Segment files stay on disk;
// a later Open reconstructs the same state.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return errors.NewStorageError(nil, errors.ErrorCodeInternal, "engine is already closed")
	}

	var errs error
	for _, seg := range db.segments {
		errs = multierr.Append(errs, seg.Close())
	}
	db.segments = nil
	db.log.Infow("Segmented engine closed", "dir", db.dir)
	return errs
}

// rotate freezes the head: every segment's file is renamed one position up
// and a fresh head takes position zero.
func (db *DB) rotate() error {
	if err := db.shiftPositionsUp(); err != nil {
		return err
	}
	head, err := db.factory.New(seginfo.Name(db.prefix, 0))
	if err != nil {
		return err
	}
	db.segments = append([]segment.File{head}, db.segments...)
	db.log.Infow("Rotated head segment", "dir", db.dir, "segments", len(db.segments))
	return nil
}

// shiftPositionsUp renames every segment one position up to make room for a
// new head, oldest first so no rename collides.
func (db *DB) shiftPositionsUp() error {
	for i := len(db.segments) - 1; i >= 0; i-- {
		if err := db.segments[i].Rename(seginfo.Name(db.prefix, i+1)); err != nil {
			return err
		}
	}
	return nil
}

// mergePass fuses the two oldest segments while the count is at or above
// the merging threshold. The newer of the pair absorbs the older through an
// independent reader, the older is deleted, and the remaining positions are
// already contiguous because only the tail position disappears.
func (db *DB) mergePass() error {
	for len(db.segments) >= db.mergingThreshold && len(db.segments) >= 2 {
		n := len(db.segments)
		newer, older := db.segments[n-2], db.segments[n-1]

		reader, err := db.factory.NewReader(older)
		if err != nil {
			return err
		}
		absorbErr := newer.Absorb(reader)
		if closer, ok := reader.(io.Closer); ok {
			absorbErr = multierr.Append(absorbErr, closer.Close())
		}
		if absorbErr != nil {
			return absorbErr
		}

		if err := older.Delete(); err != nil {
			return err
		}
		db.segments = db.segments[:n-1]
		db.log.Infow("Merged oldest segment pair", "dir", db.dir, "segments", len(db.segments))
	}
	return nil
}
