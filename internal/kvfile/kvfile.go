// Package kvfile implements the append-only record file every segment
// strategy is built on.
//
// A file holds one record per line. Records are appended, never rewritten;
// the byte offset returned by Append addresses the record for the lifetime
// of the file and is a valid argument to ReadAt and IterFrom. The encoding
// quotes keys and values, so embedded spaces, newlines and quote characters
// round-trip, and a tombstone is distinguishable from every present value
// including the empty string.
package kvfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cinderdb/cinder/internal/record"
	"github.com/cinderdb/cinder/pkg/errors"
)

// Line is one parsed record together with the byte offset at which it
// begins in its file.
type Line struct {
	Key    string
	Status record.Status[string]
	Offset int64
}

// File is an append-only record file. It owns its write handle exclusively;
// independent read cursors over the same underlying file are created with
// Clone so a merge can read a file while another is being written.
type File struct {
	dir    string
	name   string
	handle *os.File
	size   int64
}

// Open opens (creating if necessary) the record file at dir/name and
// positions it for appending.
func Open(dir, name string) (*File, error) {
	path := filepath.Join(dir, name)
	handle, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open record file").
			WithFileName(name).WithPath(path)
	}

	stat, err := handle.Stat()
	if err != nil {
		handle.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat record file").
			WithFileName(name).WithPath(path)
	}

	return &File{dir: dir, name: name, handle: handle, size: stat.Size()}, nil
}

// Name returns the file's current name within its directory.
func (f *File) Name() string {
	return f.name
}

// Size returns the file's size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Append writes one record to the end of the file and returns the byte
// offset at which the record begins.
func (f *File) Append(key string, status record.Status[string]) (int64, error) {
	encoded := encodeRecord(key, status)
	offset := f.size
	if _, err := f.handle.WriteString(encoded); err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append record").
			WithFileName(f.name).WithOffset(offset)
	}
	f.size += int64(len(encoded))
	return offset, nil
}

// ReadAt parses the single record beginning at the given offset. The second
// return value is false when the offset is at or past the end of the file.
func (f *File) ReadAt(offset int64) (Line, bool, error) {
	if offset >= f.size {
		return Line{}, false, nil
	}
	return f.IterFrom(offset).Next()
}

// Iter returns a cursor over every record in file order. The cursor is
// lazy, finite and not restartable.
func (f *File) Iter() *Iterator {
	return f.IterFrom(0)
}

// IterFrom returns a cursor over the records starting at the given offset,
// which must be the beginning of a record. The cursor covers the bytes
// present at creation time; records appended afterwards are not visited.
func (f *File) IterFrom(offset int64) *Iterator {
	section := io.NewSectionReader(f.handle, offset, f.size-offset)
	return &Iterator{
		fileName: f.name,
		reader:   bufio.NewReader(section),
		offset:   offset,
	}
}

// Rename atomically renames the file within its directory and keeps the
// open handle valid.
func (f *File) Rename(newName string) error {
	oldPath := filepath.Join(f.dir, f.name)
	newPath := filepath.Join(f.dir, newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rename record file").
			WithFileName(f.name).WithPath(oldPath).WithDetail("newName", newName)
	}
	f.name = newName
	return nil
}

// Delete closes the handle and removes the file from disk. The File must
// not be used afterwards.
func (f *File) Delete() error {
	path := filepath.Join(f.dir, f.name)
	if err := f.handle.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close record file before delete").
			WithFileName(f.name).WithPath(path)
	}
	if err := os.Remove(path); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to delete record file").
			WithFileName(f.name).WithPath(path)
	}
	return nil
}

// Clone opens an independent read-only cursor over the same underlying
// file. The clone sees the bytes present at clone time and owns its own
// handle, so reading through it does not disturb the original's append
// position.
func (f *File) Clone() (*File, error) {
	path := filepath.Join(f.dir, f.name)
	handle, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to clone record file").
			WithFileName(f.name).WithPath(path)
	}
	return &File{dir: f.dir, name: f.name, handle: handle, size: f.size}, nil
}

// Close releases the file handle without removing the file.
func (f *File) Close() error {
	if err := f.handle.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close record file").
			WithFileName(f.name)
	}
	return nil
}

// Iterator walks a record file from a starting offset, yielding each record
// with the offset it begins at.
type Iterator struct {
	fileName string
	reader   *bufio.Reader
	offset   int64
}

// Next returns the next record. The second return value is false once the
// cursor is exhausted. A truncated or unparsable line surfaces as a
// RECORD_MALFORMED error.
func (it *Iterator) Next() (Line, bool, error) {
	raw, err := it.reader.ReadString('\n')
	if err == io.EOF {
		if raw == "" {
			return Line{}, false, nil
		}
		return Line{}, false, errors.NewStorageError(nil, errors.ErrorCodeRecordMalformed, "record truncated at end of file").
			WithFileName(it.fileName).WithOffset(it.offset)
	}
	if err != nil {
		return Line{}, false, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read record").
			WithFileName(it.fileName).WithOffset(it.offset)
	}

	key, status, err := parseRecord(strings.TrimSuffix(raw, "\n"))
	if err != nil {
		return Line{}, false, errors.NewStorageError(err, errors.ErrorCodeRecordMalformed, "failed to parse record").
			WithFileName(it.fileName).WithOffset(it.offset)
	}

	line := Line{Key: key, Status: status, Offset: it.offset}
	it.offset += int64(len(raw))
	return line, true, nil
}
