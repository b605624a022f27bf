package errors

// ErrorCode categorizes failures so callers can branch on the kind of
// problem instead of matching message strings.
type ErrorCode string

// Base codes cover failures any layer can produce.
const (
	// ErrorCodeIO marks failures crossing the filesystem boundary: opening,
	// appending to, seeking in, renaming or deleting segment files.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput marks problems with what the caller provided,
	// typically configuration values outside their permitted bounds.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal marks conditions that indicate a bug in the engine
	// itself, such as a segment reader of the wrong strategy reaching a
	// merge.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage codes cover the failure modes of segment files and their records.
const (
	// ErrorCodeRecordMalformed indicates a record line that does not parse:
	// an unknown tag, a broken quoted string, or a truncated tail. A
	// malformed record halts reconstruction of its segment.
	ErrorCodeRecordMalformed ErrorCode = "RECORD_MALFORMED"

	// ErrorCodeSegmentCorrupted indicates a segment whose on-disk state
	// violates a structural invariant, for example a sorted-table file whose
	// keys are out of order. No engine path returns this code; sorted-table
	// reconstruction does not check key order.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeRecoveryFailed indicates the directory scan at startup could
	// not rebuild the segment list, compounding an earlier failure.
	ErrorCodeRecoveryFailed ErrorCode = "STORAGE_RECOVERY_FAILED"
)

// Index codes cover in-memory index lookups backing the segment strategies.
const (
	// ErrorCodeIndexEntryMissing indicates an index pointed at a record the
	// file does not contain, a broken index/file invariant.
	ErrorCodeIndexEntryMissing ErrorCode = "INDEX_ENTRY_MISSING"
)
