package errors

// IndexError is the error type for in-memory index structures: the full
// hash index of a hash-indexed segment and the sparse index of a sorted
// table. It records which key and operation were in flight when the
// invariant between index and file broke.
type IndexError struct {
	*baseError
	key       string // Key being looked up or inserted.
	operation string // Operation in flight: "get", "absorb", "newReader".
}

// NewIndexError creates an index-specific error.
func NewIndexError(err error, code ErrorCode, msg string) *IndexError {
	return &IndexError{baseError: NewBaseError(err, code, msg)}
}

// WithKey records the key involved in the failure.
func (ie *IndexError) WithKey(key string) *IndexError {
	ie.key = key
	return ie
}

// WithOperation records which index operation was in flight.
func (ie *IndexError) WithOperation(op string) *IndexError {
	ie.operation = op
	return ie
}

// WithDetail attaches context while keeping the IndexError type for chaining.
func (ie *IndexError) WithDetail(key string, value any) *IndexError {
	ie.baseError.WithDetail(key, value)
	return ie
}

// Key returns the key involved in the failure.
func (ie *IndexError) Key() string { return ie.key }

// Operation returns the index operation that was in flight.
func (ie *IndexError) Operation() string { return ie.operation }
