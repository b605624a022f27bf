package lsm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinderdb/cinder/internal/lsm"
	"github.com/cinderdb/cinder/internal/segment/sstable"
	"github.com/cinderdb/cinder/internal/segmented"
	"github.com/cinderdb/cinder/pkg/logger"
)

func openLSM(t *testing.T, dir string, memtableThreshold int64, mergingThreshold int) *lsm.DB {
	t.Helper()

	factory := &sstable.Factory{Dir: dir, Sparsity: 10, FileSizeThreshold: 1 << 20}
	db, err := segmented.Open(&segmented.Config{
		Dir:              dir,
		SegmentPrefix:    "segment",
		MergingThreshold: mergingThreshold,
		Policy:           segmented.Explicit,
		Factory:          factory,
		Logger:           logger.Nop(),
	})
	require.NoError(t, err)

	frontend, err := lsm.Open(&lsm.Config{
		Dir:                   dir,
		SegmentedDB:           db,
		Factory:               factory,
		MemtableSizeThreshold: memtableThreshold,
		Logger:                logger.Nop(),
	})
	require.NoError(t, err)
	return frontend
}

func TestReadYourWritesFromMemtable(t *testing.T) {
	db := openLSM(t, t.TempDir(), 1<<20, 10)
	defer db.Close()

	require.NoError(t, db.Set("a", "1"))
	require.NoError(t, db.Set("b", "2"))

	value, ok, err := db.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)

	_, ok, err = db.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverwriteAndDelete(t *testing.T) {
	db := openLSM(t, t.TempDir(), 1<<20, 10)
	defer db.Close()

	require.NoError(t, db.Set("k", "v1"))
	require.NoError(t, db.Set("k", "v2"))

	value, ok, err := db.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", value)

	require.NoError(t, db.Delete("k"))
	_, ok, err = db.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFlushOnThreshold(t *testing.T) {
	// Threshold low enough that a handful of writes flush.
	db := openLSM(t, t.TempDir(), 8, 10)
	defer db.Close()

	before := db.SegmentCount()
	require.NoError(t, db.Set("alpha", "1234"))
	require.Greater(t, db.SegmentCount(), before)

	// Flushed data still answers reads.
	value, ok, err := db.Get("alpha")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1234", value)
}

func TestMemtableShadowsSegments(t *testing.T) {
	db := openLSM(t, t.TempDir(), 16, 10)
	defer db.Close()

	// First write flushes; the second stays buffered and must win reads.
	require.NoError(t, db.Set("key", "flushed-value"))
	require.NoError(t, db.Set("key", "buffered"))

	value, ok, err := db.Get("key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "buffered", value)

	// A buffered tombstone hides the flushed value.
	require.NoError(t, db.Delete("key"))
	_, ok, err = db.Get("key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMergeAcrossFlushedSegments(t *testing.T) {
	// Every flush triggers a merge pass at threshold two, so overlapping
	// flushes collapse into one segment with newer values winning.
	db := openLSM(t, t.TempDir(), 6, 2)
	defer db.Close()

	require.NoError(t, db.Set("a", "1"))
	require.NoError(t, db.Set("c", "3"))
	require.NoError(t, db.Set("e", "5"))
	require.NoError(t, db.Set("c", "3'"))
	require.NoError(t, db.Set("b", "2"))
	require.NoError(t, db.Set("d", "4"))

	for _, want := range [][2]string{
		{"a", "1"}, {"b", "2"}, {"c", "3'"}, {"d", "4"}, {"e", "5"},
	} {
		value, ok, err := db.Get(want[0])
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want[1], value)
	}
}

func TestDeleteAcrossFlushes(t *testing.T) {
	db := openLSM(t, t.TempDir(), 4, 2)
	defer db.Close()

	require.NoError(t, db.Set("x", "v"))
	require.NoError(t, db.Set("y", "w"))
	require.NoError(t, db.Delete("x"))

	_, ok, err := db.Get("x")
	require.NoError(t, err)
	require.False(t, ok)

	value, ok, err := db.Get("y")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "w", value)
}

func TestCloseFlushesMemtable(t *testing.T) {
	dir := t.TempDir()

	db := openLSM(t, dir, 1<<20, 10)
	require.NoError(t, db.Set("a", "1"))
	require.NoError(t, db.Delete("b"))
	require.NoError(t, db.Close())

	reopened := openLSM(t, dir, 1<<20, 10)
	defer reopened.Close()

	value, ok, err := reopened.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)

	_, ok, err = reopened.Get("b")
	require.NoError(t, err)
	require.False(t, ok)
}
