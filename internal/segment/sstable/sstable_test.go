package sstable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderdb/cinder/internal/record"
)

func buildSegment(t *testing.T, factory *Factory, fileName string, entries [][2]string) *Segment {
	t.Helper()
	seg, err := factory.New(fileName)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NoError(t, seg.SetStatus(entry[0], record.Present(entry[1])))
	}
	return seg.(*Segment)
}

func fileKeys(t *testing.T, seg *Segment) []string {
	t.Helper()
	var keys []string
	iter := seg.kvfile.Iter()
	for {
		line, ok, err := iter.Next()
		require.NoError(t, err)
		if !ok {
			return keys
		}
		keys = append(keys, line.Key)
	}
}

// requireSortedAndIndexed checks the two structural invariants of a
// sorted-table segment: the file is strictly sorted by key, and every
// sparse entry resolves through ReadAt to a record with exactly its key.
func requireSortedAndIndexed(t *testing.T, seg *Segment) {
	t.Helper()

	keys := fileKeys(t, seg)
	for i := 1; i < len(keys); i++ {
		require.Less(t, keys[i-1], keys[i], "file keys must be strictly ascending")
	}

	for _, entry := range seg.sparse {
		line, ok, err := seg.kvfile.ReadAt(entry.offset)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, entry.key, line.Key, "sparse entry must resolve to its own key")
	}
}

func TestPointReads(t *testing.T) {
	factory := &Factory{Dir: t.TempDir(), Sparsity: 10, FileSizeThreshold: 1 << 20}
	seg := buildSegment(t, factory, "segment_00000.seg", [][2]string{
		{"b", "2"}, {"d", "4"}, {"f", "6"}, {"h", "8"},
	})
	defer seg.Close()

	for _, want := range [][2]string{{"b", "2"}, {"d", "4"}, {"f", "6"}, {"h", "8"}} {
		status, ok, err := seg.GetStatus(want[0])
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want[1], status.Value)
	}

	// Before the first indexed key the segment has no opinion.
	_, ok, err := seg.GetStatus("a")
	require.NoError(t, err)
	require.False(t, ok)

	// Between keys and past the last key.
	_, ok, err = seg.GetStatus("e")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = seg.GetStatus("z")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTombstoneIsAuthoritative(t *testing.T) {
	factory := &Factory{Dir: t.TempDir(), Sparsity: 10, FileSizeThreshold: 1 << 20}
	seg, err := factory.New("segment_00000.seg")
	require.NoError(t, err)
	defer seg.Close()

	require.NoError(t, seg.SetStatus("a", record.Present("1")))
	require.NoError(t, seg.SetStatus("b", record.Tombstone[string]()))

	status, ok, err := seg.GetStatus("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, status.Deleted)
}

func TestSparseIndexPlacementRule(t *testing.T) {
	// Sparsity larger than the whole file: only the first record is indexed.
	factory := &Factory{Dir: t.TempDir(), Sparsity: 1 << 20, FileSizeThreshold: 1 << 20}
	seg := buildSegment(t, factory, "segment_00000.seg", [][2]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"},
	})
	defer seg.Close()

	require.Len(t, seg.sparse, 1)
	require.Equal(t, "a", seg.sparse[0].key)
	require.Equal(t, int64(0), seg.sparse[0].offset)

	// Reads still work from the single indexed offset.
	status, ok, err := seg.GetStatus("c")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3", status.Value)
}

func TestSparsityZeroIndexesEveryRecord(t *testing.T) {
	// With sparsity 0 every record's offset exceeds the last indexed one
	// strictly, so every record is indexed.
	factory := &Factory{Dir: t.TempDir(), Sparsity: 0, FileSizeThreshold: 1 << 20}
	seg := buildSegment(t, factory, "segment_00000.seg", [][2]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"},
	})
	defer seg.Close()

	require.Len(t, seg.sparse, 3)
	requireSortedAndIndexed(t, seg)
}

func TestFromDiskRebuildsSameSparseIndex(t *testing.T) {
	factory := &Factory{Dir: t.TempDir(), Sparsity: 15, FileSizeThreshold: 1 << 20}
	seg := buildSegment(t, factory, "segment_00000.seg", [][2]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}, {"e", "5"},
	})
	builtSparse := append([]indexEntry(nil), seg.sparse...)
	builtLast := seg.lastIndexedOffset
	require.NoError(t, seg.Close())

	rebuilt, err := factory.FromDisk("segment_00000.seg")
	require.NoError(t, err)
	defer rebuilt.Close()

	rs := rebuilt.(*Segment)
	require.Equal(t, builtSparse, rs.sparse)
	require.Equal(t, builtLast, rs.lastIndexedOffset)
	requireSortedAndIndexed(t, rs)
}

func TestAbsorbSortMerge(t *testing.T) {
	factory := &Factory{Dir: t.TempDir(), Sparsity: 10, FileSizeThreshold: 1 << 20}

	// The older segment was flushed first; the newer one carries an updated
	// value for c.
	older := buildSegment(t, factory, "segment_00001.seg", [][2]string{
		{"a", "1"}, {"c", "3"}, {"e", "5"},
	})
	newer := buildSegment(t, factory, "segment_00000.seg", [][2]string{
		{"b", "2"}, {"c", "3'"}, {"d", "4"},
	})
	defer newer.Close()

	reader, err := factory.NewReader(older)
	require.NoError(t, err)
	require.NoError(t, newer.Absorb(reader))
	require.NoError(t, reader.(*Reader).Close())
	require.NoError(t, older.Delete())

	// The merged file reads in order with the newer value winning.
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, fileKeys(t, newer))
	status, ok, err := newer.GetStatus("c")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3'", status.Value)

	for _, want := range [][2]string{{"a", "1"}, {"b", "2"}, {"d", "4"}, {"e", "5"}} {
		status, ok, err := newer.GetStatus(want[0])
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want[1], status.Value)
	}

	// The merged file keeps the newer segment's name and its sparse index
	// is a fresh ascending sample.
	require.Equal(t, "segment_00000.seg", newer.kvfile.Name())
	require.NotEmpty(t, newer.sparse)
	requireSortedAndIndexed(t, newer)
}

func TestAbsorbCarriesTombstones(t *testing.T) {
	factory := &Factory{Dir: t.TempDir(), Sparsity: 10, FileSizeThreshold: 1 << 20}

	older := buildSegment(t, factory, "segment_00001.seg", [][2]string{
		{"x", "v"}, {"y", "w"},
	})
	newer, err := factory.New("segment_00000.seg")
	require.NoError(t, err)
	defer newer.Close()
	require.NoError(t, newer.SetStatus("x", record.Tombstone[string]()))

	reader, err := factory.NewReader(older)
	require.NoError(t, err)
	require.NoError(t, newer.(*Segment).Absorb(reader))
	require.NoError(t, reader.(*Reader).Close())
	require.NoError(t, older.Delete())

	status, ok, err := newer.GetStatus("x")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, status.Deleted)

	status, ok, err = newer.GetStatus("y")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "w", status.Value)
}

func TestAbsorbEmptyInputs(t *testing.T) {
	factory := &Factory{Dir: t.TempDir(), Sparsity: 10, FileSizeThreshold: 1 << 20}

	t.Run("both empty", func(t *testing.T) {
		newer, err := factory.New("segment_00000.seg")
		require.NoError(t, err)
		defer newer.Close()
		older, err := factory.New("segment_00001.seg")
		require.NoError(t, err)

		reader, err := factory.NewReader(older)
		require.NoError(t, err)
		require.NoError(t, newer.Absorb(reader))
		require.NoError(t, reader.(*Reader).Close())
		require.NoError(t, older.Delete())

		ns := newer.(*Segment)
		require.Empty(t, ns.sparse)
		require.Equal(t, int64(0), ns.lastIndexedOffset)
		require.Equal(t, int64(0), ns.kvfile.Size())
	})

	t.Run("older empty", func(t *testing.T) {
		newer := buildSegment(t, factory, "segment_00000.seg", [][2]string{{"a", "1"}, {"b", "2"}})
		defer newer.Close()
		older, err := factory.New("segment_00001.seg")
		require.NoError(t, err)

		reader, err := factory.NewReader(older)
		require.NoError(t, err)
		require.NoError(t, newer.Absorb(reader))
		require.NoError(t, reader.(*Reader).Close())
		require.NoError(t, older.Delete())

		require.Equal(t, []string{"a", "b"}, fileKeys(t, newer))
	})

	t.Run("newer empty", func(t *testing.T) {
		newer, err := factory.New("segment_00002.seg")
		require.NoError(t, err)
		defer newer.Close()
		older := buildSegment(t, factory, "segment_00003.seg", [][2]string{{"a", "1"}, {"b", "2"}})

		reader, err := factory.NewReader(older)
		require.NoError(t, err)
		require.NoError(t, newer.Absorb(reader))
		require.NoError(t, reader.(*Reader).Close())
		require.NoError(t, older.Delete())

		require.Equal(t, []string{"a", "b"}, fileKeys(t, newer.(*Segment)))
	})
}
