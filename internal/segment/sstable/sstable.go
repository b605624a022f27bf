// Package sstable implements the sorted-string-table segment strategy. The
// file is sorted strictly ascending by key and carries a sparse in-memory
// index: an ordered sample of (key, offset) pairs that bounds the linear
// scan a point read has to do. Appends are only legal while the file is
// being built from an already ordered source, either a flushed memtable or
// a sort-merge; after that the file is immutable until it is merged again.
package sstable

import (
	"path/filepath"
	"sort"

	"github.com/cinderdb/cinder/internal/kvfile"
	"github.com/cinderdb/cinder/internal/record"
	"github.com/cinderdb/cinder/internal/segment"
	"github.com/cinderdb/cinder/pkg/errors"
	"github.com/cinderdb/cinder/pkg/filesys"
)

// indexEntry is one sampled (key, offset) pair of the sparse index.
type indexEntry struct {
	key    string
	offset int64
}

// Segment is a sorted-table segment. Invariants: the file is sorted
// strictly ascending by key; the sparse index is a subsequence of the
// file's records with the first record always included; consecutive indexed
// offsets differ by more than the sparsity.
type Segment struct {
	dir               string
	sparsity          int64
	fileSizeThreshold int64
	kvfile            *kvfile.File
	sparse            []indexEntry
	lastIndexedOffset int64
}

var _ segment.File = (*Segment)(nil)

// GetStatus binary-searches the sparse index for the greatest indexed key
// not above the target, then scans the file from that offset. The scan
// keeps going past an equal-key hit until it sees a strictly greater key,
// so a transient intra-file duplicate would resolve to the latest record.
func (s *Segment) GetStatus(key string) (record.Status[string], bool, error) {
	return getStatus(s.sparse, s.kvfile, key)
}

// SetStatus appends one record and applies the sparse indexing rule: index
// the first record unconditionally, and every later record whose offset
// exceeds the last indexed offset by strictly more than the sparsity.
// The caller is responsible for feeding keys in ascending order.
func (s *Segment) SetStatus(key string, status record.Status[string]) error {
	offset, err := s.kvfile.Append(key, status)
	if err != nil {
		return err
	}
	if len(s.sparse) == 0 || offset-s.lastIndexedOffset > s.sparsity {
		s.sparse = append(s.sparse, indexEntry{key: key, offset: offset})
		s.lastIndexedOffset = offset
	}
	return nil
}

// ReadyToArchive reports whether the file has grown past its size threshold.
func (s *Segment) ReadyToArchive() (bool, error) {
	return s.kvfile.Size() > s.fileSizeThreshold, nil
}

// Absorb sort-merges an older segment into this one. Both inputs are read
// once through single-record look-ahead buffers; the output is their sorted
// union with this segment winning key conflicts, written to the reserved
// temporary file and committed by renaming it over this segment's file.
func (s *Segment) Absorb(older segment.Reader) error {
	source, ok := older.(*Reader)
	if !ok {
		return errors.NewIndexError(nil, errors.ErrorCodeInternal, "absorb requires a sorted-table reader").
			WithOperation("absorb")
	}

	// A temporary file surviving a crashed merge would otherwise be
	// appended to.
	tmpPath := filepath.Join(s.dir, segment.TempFileName)
	if exists, err := filesys.Exists(tmpPath); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to probe merge temp file").WithPath(tmpPath)
	} else if exists {
		if err := filesys.DeleteFile(tmpPath); err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to clear stale merge temp file").WithPath(tmpPath)
		}
	}

	newFile, err := kvfile.Open(s.dir, segment.TempFileName)
	if err != nil {
		return err
	}

	var (
		newSparse   []indexEntry
		lastIndexed int64
		prevKey     string
		wroteAny    bool
	)

	thisIter := s.kvfile.Iter()
	thisBuf, thisOK, err := thisIter.Next()
	if err != nil {
		newFile.Close()
		return err
	}
	otherIter := source.kvfile.Iter()
	otherBuf, otherOK, err := otherIter.Next()
	if err != nil {
		newFile.Close()
		return err
	}

	for thisOK || otherOK {
		// Pick the smaller buffered key; on a tie take this segment's
		// record, the newer one, and drop the other side's.
		var chosen kvfile.Line
		takeThis := !otherOK || (thisOK && thisBuf.Key <= otherBuf.Key)
		if takeThis {
			chosen = thisBuf
			if thisOK && otherOK && thisBuf.Key == otherBuf.Key {
				otherBuf, otherOK, err = otherIter.Next()
				if err != nil {
					newFile.Close()
					return err
				}
			}
			thisBuf, thisOK, err = thisIter.Next()
		} else {
			chosen = otherBuf
			otherBuf, otherOK, err = otherIter.Next()
		}
		if err != nil {
			newFile.Close()
			return err
		}

		// Emit only strictly ascending keys. Sorted, deduplicated inputs
		// never trip this, but it suppresses duplicates within a run.
		if wroteAny && chosen.Key <= prevKey {
			continue
		}

		offset, err := newFile.Append(chosen.Key, chosen.Status)
		if err != nil {
			newFile.Close()
			return err
		}
		if len(newSparse) == 0 || offset-lastIndexed > s.sparsity {
			newSparse = append(newSparse, indexEntry{key: chosen.Key, offset: offset})
			lastIndexed = offset
		}
		prevKey = chosen.Key
		wroteAny = true
	}

	// Commit: the old file goes away, the temporary file takes over its
	// name, and the rebuilt sparse index is installed.
	oldName := s.kvfile.Name()
	if err := s.kvfile.Delete(); err != nil {
		newFile.Close()
		return err
	}
	if err := newFile.Rename(oldName); err != nil {
		newFile.Close()
		return err
	}
	s.kvfile = newFile
	s.sparse = newSparse
	s.lastIndexedOffset = lastIndexed
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

// Reader is an independent cursor over a sorted-table segment. It owns a
// clone of the segment's file handle and borrows the sparse index.
type Reader struct {
	kvfile *kvfile.File
	sparse []indexEntry
}

var _ segment.Reader = (*Reader)(nil)

// GetStatus resolves a key the same way the owning segment does.
func (r *Reader) GetStatus(key string) (record.Status[string], bool, error) {
	return getStatus(r.sparse, r.kvfile, key)
}

// Close releases the reader's cloned file handle.
func (r *Reader) Close() error {
	return r.kvfile.Close()
}

// Factory builds sorted-table segments rooted in one directory with shared
// sparsity and size thresholds.
type Factory struct {
	Dir               string
	Sparsity          int64
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
		dir:               f.Dir,
		sparsity:          f.Sparsity,
		fileSizeThreshold: f.FileSizeThreshold,
		kvfile:            file,
	}, nil
}

// FromDisk rebuilds the sparse index with a sequential scan, applying the
// same placement rule appends use.
func (f *Factory) FromDisk(fileName string) (segment.File, error) {
	file, err := kvfile.Open(f.Dir, fileName)
	if err != nil {
		return nil, err
	}

	var (
		sparse      []indexEntry
		lastIndexed int64
	)
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
		if len(sparse) == 0 || line.Offset-lastIndexed > f.Sparsity {
			sparse = append(sparse, indexEntry{key: line.Key, offset: line.Offset})
			lastIndexed = line.Offset
		}
	}

	return &Segment{
		dir:               f.Dir,
		sparsity:          f.Sparsity,
		fileSizeThreshold: f.FileSizeThreshold,
		kvfile:            file,
		sparse:            sparse,
		lastIndexedOffset: lastIndexed,
	}, nil
}

// NewReader clones the segment's file handle into an independent cursor.
func (f *Factory) NewReader(file segment.File) (segment.Reader, error) {
	seg, ok := file.(*Segment)
	if !ok {
		return nil, errors.NewIndexError(nil, errors.ErrorCodeInternal, "reader requires a sorted-table segment").
			WithOperation("newReader")
	}
	clone, err := seg.kvfile.Clone()
	if err != nil {
		return nil, err
	}
	return &Reader{kvfile: clone, sparse: seg.sparse}, nil
}

// getStatus is the shared read path of Segment and Reader.
func getStatus(sparse []indexEntry, file *kvfile.File, key string) (record.Status[string], bool, error) {
	// First sparse entry with a key strictly greater than the target; the
	// entry before it is the scan's starting point.
	idx := sort.Search(len(sparse), func(i int) bool { return sparse[i].key > key })
	if idx == 0 {
		// The target sorts before every indexed key, and the first record
		// is always indexed, so the segment cannot contain it.
		return record.Status[string]{}, false, nil
	}
	start := sparse[idx-1].offset

	var (
		status record.Status[string]
		found  bool
	)
	iter := file.IterFrom(start)
	for {
		line, ok, err := iter.Next()
		if err != nil {
			return record.Status[string]{}, false, err
		}
		if !ok || line.Key > key {
			break
		}
		if line.Key == key {
			status = line.Status
			found = true
		}
	}
	return status, found, nil
}
