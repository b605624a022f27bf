// Package hashindexed implements the segment strategy that keeps a full
// in-memory index from every key to the offset of its most recent record.
// Point reads cost one map lookup plus one file read; the price is that the
// whole key set must fit in memory, and that the index has to be rebuilt by
// scanning the file when a segment is reopened from disk.
package hashindexed

import (
	"github.com/cinderdb/cinder/internal/kvfile"
	"github.com/cinderdb/cinder/internal/memindex"
	"github.com/cinderdb/cinder/internal/record"
	"github.com/cinderdb/cinder/internal/segment"
	"github.com/cinderdb/cinder/pkg/errors"
)

// Segment is a hash-indexed segment file. Invariant: for every present
// entry in the index, reading the file at the stored offset yields the same
// key with a live value; for every tombstoned entry, the most recent record
// for that key in the file is a tombstone.
type Segment struct {
	kvfile            *kvfile.File
	index             *memindex.Index[int64]
	fileSizeThreshold int64
}

var _ segment.File = (*Segment)(nil)

// GetStatus resolves a key through the index: a present entry triggers one
// file read at the stored offset, a tombstoned entry answers without
// touching the file, and a missing entry means this segment has no opinion.
func (s *Segment) GetStatus(key string) (record.Status[string], bool, error) {
	return getStatus(s.index, s.kvfile, key)
}

// SetStatus appends the record and points the index at its offset.
func (s *Segment) SetStatus(key string, status record.Status[string]) error {
	offset, err := s.kvfile.Append(key, status)
	if err != nil {
		return err
	}
	if status.Deleted {
		s.index.Set(key, record.Tombstone[int64]())
	} else {
		s.index.Set(key, record.Present(offset))
	}
	return nil
}

// ReadyToArchive reports whether the file has grown past its size threshold.
func (s *Segment) ReadyToArchive() (bool, error) {
	return s.kvfile.Size() > s.fileSizeThreshold, nil
}

// Absorb copies the still-live entries of an older segment into this one.
// Keys this segment already has an entry for are skipped, tombstones
// included: this segment is the newer of the two, so its decisions win.
func (s *Segment) Absorb(older segment.Reader) error {
	source, ok := older.(*Reader)
	if !ok {
		return errors.NewIndexError(nil, errors.ErrorCodeInternal, "absorb requires a hash-indexed reader").
			WithOperation("absorb")
	}

	for _, key := range source.index.Keys() {
		if _, exists := s.index.Get(key); exists {
			continue
		}
		status, found, err := source.GetStatus(key)
		if err != nil {
			return err
		}
		if !found {
			return errors.NewIndexError(nil, errors.ErrorCodeIndexEntryMissing, "older segment lost an indexed key during absorb").
				WithKey(key).WithOperation("absorb")
		}
		if err := s.SetStatus(key, status); err != nil {
			return err
		}
	}
	return nil
}

// Rename moves the segment's file to a new name.
func (s *Segment) Rename(newFileName string) error {
	return s.kvfile.Rename(newFileName)
}

// Delete removes the segment's file from disk.
func (s *Segment) Delete() error {
	return s.kvfile.Delete()
}

// Close releases the segment's file handle.
func (s *Segment) Close() error {
	return s.kvfile.Close()
}

// Reader is an independent cursor over a hash-indexed segment. It owns a
// clone of the segment's file handle and borrows the segment's index, so
// the merge destination can append to its own file while this side is read.
type Reader struct {
	kvfile *kvfile.File
	index  *memindex.Index[int64]
}

var _ segment.Reader = (*Reader)(nil)

// GetStatus resolves a key the same way the owning segment does.
func (r *Reader) GetStatus(key string) (record.Status[string], bool, error) {
	return getStatus(r.index, r.kvfile, key)
}

// Close releases the reader's cloned file handle.
func (r *Reader) Close() error {
	return r.kvfile.Close()
}

// Factory builds hash-indexed segments rooted in one directory with one
// shared size threshold.
type Factory struct {
	Dir               string
	FileSizeThreshold int64
}

var _ segment.Factory = (*Factory)(nil)

// New creates an empty writable segment under the given file name.
func (f *Factory) New(fileName string) (segment.File, error) {
	file, err := kvfile.Open(f.Dir, fileName)
	if err != nil {
		return nil, err
	}
	return &Segment{
		kvfile:            file,
		index:             memindex.New[int64](),
		fileSizeThreshold: f.FileSizeThreshold,
	}, nil
}

// FromDisk rebuilds the index by replaying the file in order. Every record
// overwrites the index entry for its key, so the last write wins, matching
// append-only semantics.
func (f *Factory) FromDisk(fileName string) (segment.File, error) {
	file, err := kvfile.Open(f.Dir, fileName)
	if err != nil {
		return nil, err
	}

	index := memindex.New[int64]()
	iter := file.Iter()
	for {
		line, ok, err := iter.Next()
		if err != nil {
			file.Close()
			return nil, err
		}
		if !ok {
			break
		}
		if line.Status.Deleted {
			index.Set(line.Key, record.Tombstone[int64]())
		} else {
			index.Set(line.Key, record.Present(line.Offset))
		}
	}

	return &Segment{
		kvfile:            file,
		index:             index,
		fileSizeThreshold: f.FileSizeThreshold,
	}, nil
}

// NewReader clones the segment's file handle into an independent cursor.
func (f *Factory) NewReader(file segment.File) (segment.Reader, error) {
	seg, ok := file.(*Segment)
	if !ok {
		return nil, errors.NewIndexError(nil, errors.ErrorCodeInternal, "reader requires a hash-indexed segment").
			WithOperation("newReader")
	}
	clone, err := seg.kvfile.Clone()
	if err != nil {
		return nil, err
	}
	return &Reader{kvfile: clone, index: seg.index}, nil
}

// getStatus is the shared read path of Segment and Reader.
func getStatus(index *memindex.Index[int64], file *kvfile.File, key string) (record.Status[string], bool, error) {
	entry, ok := index.Get(key)
	if !ok {
		return record.Status[string]{}, false, nil
	}
	if entry.Deleted {
		return record.Tombstone[string](), true, nil
	}

	line, found, err := file.ReadAt(entry.Value)
	if err != nil {
		return record.Status[string]{}, false, err
	}
	if !found || line.Key != key || line.Status.Deleted {
		return record.Status[string]{}, false, errors.NewIndexError(nil, errors.ErrorCodeIndexEntryMissing, "index entry does not resolve to a live record").
			WithKey(key).WithOperation("get").
			WithDetail("offset", entry.Value)
	}
	return line.Status, true, nil
}
