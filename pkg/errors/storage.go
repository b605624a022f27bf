package errors

// StorageError is the error type for segment-file operations. It extends
// baseError with the location context that matters when a file operation
// fails: which file, where on disk, which byte offset, which segment
// position.
type StorageError struct {
	*baseError
	position int    // Segment position involved, when known.
	offset   int64  // Byte offset within the file where the problem occurred.
	fileName string // Name of the file that caused the issue.
	path     string // Full path of the file that caused the issue.
}

// NewStorageError creates a storage-specific error.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg)}
}

// WithPosition records which segment position was involved.
func (se *StorageError) WithPosition(position int) *StorageError {
	se.position = position
	return se
}

// WithOffset records the byte offset where the failure occurred.
func (se *StorageError) WithOffset(offset int64) *StorageError {
	se.offset = offset
	return se
}

// WithFileName records the name of the file involved.
func (se *StorageError) WithFileName(name string) *StorageError {
	se.fileName = name
	return se
}

// WithPath records the full path of the file involved.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// WithDetail attaches context while keeping the StorageError type for chaining.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// Position returns the segment position involved in the failure.
func (se *StorageError) Position() int { return se.position }

// Offset returns the byte offset where the failure occurred.
func (se *StorageError) Offset() int64 { return se.offset }

// FileName returns the name of the file involved.
func (se *StorageError) FileName() string { return se.fileName }

// Path returns the full path of the file involved.
func (se *StorageError) Path() string { return se.path }
