package options

const (
	// DefaultDataDir is where a store keeps its files when no directory is
	// configured.
	DefaultDataDir = "/var/lib/cinderdb"

	// DefaultFileSizeThreshold rotates the head segment once it passes 1MB.
	// Small by production standards, which suits a pedagogical engine: the
	// segment lifecycle is exercised quickly.
	DefaultFileSizeThreshold int64 = 1 * 1024 * 1024

	// DefaultMergingThreshold merges once four segments have accumulated.
	DefaultMergingThreshold = 4

	// DefaultSparsity places a sorted-table sparse index entry roughly every
	// 512 bytes of records.
	DefaultSparsity int64 = 512

	// DefaultMemtableSizeThreshold flushes the memtable once the keys and
	// values written since the last flush add up to 64KB.
	DefaultMemtableSizeThreshold int64 = 64 * 1024

	// DefaultSegmentPrefix names segment files segment_00000.seg and so on.
	DefaultSegmentPrefix = "segment"
)

// defaultOptions holds the baseline configuration applied before any
// functional options run.
var defaultOptions = Options{
	DataDir:               DefaultDataDir,
	FileSizeThreshold:     DefaultFileSizeThreshold,
	MergingThreshold:      DefaultMergingThreshold,
	Sparsity:              DefaultSparsity,
	MemtableSizeThreshold: DefaultMemtableSizeThreshold,
	SegmentPrefix:         DefaultSegmentPrefix,
}

// NewDefaultOptions returns a copy of the default configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}
