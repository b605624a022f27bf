// Package segment defines the capability every segment-file strategy
// satisfies. The segmented engine is strategy-agnostic: it routes writes,
// rotations and merges through these interfaces, and the two concrete
// strategies (hashindexed and sstable) live in subpackages.
package segment

import "github.com/cinderdb/cinder/internal/record"

// TempFileName is the reserved name a merge writes its output under before
// the rename that commits it. It never collides with segment names, and a
// leftover file under this name after a crash is deleted at startup.
const TempFileName = "merged_tmp_file.txt"

// File is one segment: an append-only record file plus whatever in-memory
// structure the strategy keeps alongside it. A segment is born writable,
// freezes when a fresh head is prepended in front of it, and dies when it is
// absorbed, as the older of a pair, into its newer neighbor.
type File interface {
	// GetStatus returns this segment's decision for a key. ok false means
	// the segment has no opinion and the caller should consult older
	// segments; a returned tombstone is authoritative for this segment.
	GetStatus(key string) (status record.Status[string], ok bool, err error)

	// SetStatus appends one record and updates the strategy's in-memory
	// structure. Only legal on a writable segment.
	SetStatus(key string, status record.Status[string]) error

	// ReadyToArchive reports whether the segment has crossed its size
	// threshold and should be frozen behind a fresh head.
	ReadyToArchive() (bool, error)

	// Absorb incorporates the records of an older segment, read through the
	// given reader, into this one. Key conflicts resolve in this segment's
	// favor since it is the newer of the two. The reader must come from the
	// same strategy's factory.
	Absorb(older Reader) error

	// Rename moves the segment's file to a new name, the mechanism that
	// keeps position-encoded names contiguous across rotation and merging.
	Rename(newFileName string) error

	// Delete removes the segment's file from disk. The segment must not be
	// used afterwards.
	Delete() error

	// Close releases the segment's file handle without deleting anything.
	Close() error
}

// Reader is an independent read cursor over a segment, used as the source
// side of Absorb. It owns a clone of the segment's file handle and borrows
// the segment's in-memory structure, so the destination can keep writing
// its own file while the source is read.
type Reader interface {
	GetStatus(key string) (status record.Status[string], ok bool, err error)
}

// Factory creates segments of one strategy and reconstructs them from files
// already on disk.
type Factory interface {
	// New creates an empty writable segment under the given file name.
	New(fileName string) (File, error)

	// FromDisk rebuilds a segment's in-memory structure by scanning an
	// existing file sequentially. A malformed record aborts reconstruction.
	FromDisk(fileName string) (File, error)

	// NewReader opens an independent read cursor over a segment created by
	// this factory.
	NewReader(file File) (Reader, error)
}
