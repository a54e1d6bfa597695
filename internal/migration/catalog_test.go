package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_PairsAreOrdered(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010.sql": {},
		"m/002.sql": {},
		"m/007.sql": {},
	}
	catalog, err := NewScanner(ScanOptions{}).Scan(fsys, "m")
	require.NoError(t, err)

	var sequences []int
	for _, p := range catalog.Pairs() {
		sequences = append(sequences, p.Sequence)
	}
	assert.Equal(t, []int{2, 7, 10}, sequences)
	assert.Equal(t, "m", catalog.Dir())
}

func TestCatalog_Record(t *testing.T) {
	catalog := NewCatalog("migrations")
	assert.Equal(t, 0, catalog.Next())

	err := catalog.Record(&Result{Sequence: 0, RedoName: "000.data.sql", UndoName: "000.data.undo.sql"})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Next())

	p, ok := catalog.Pair(0)
	require.True(t, ok)
	require.True(t, p.Complete())
	assert.Equal(t, KindData, p.Redo.Kind)
	assert.Equal(t, "migrations/000.data.undo.sql", p.Undo.Path)

	err = catalog.Record(&Result{Sequence: 0, RedoName: "000.sql", UndoName: "000.undo.sql"})
	assert.ErrorIs(t, err, ErrSlotConflict)

	require.NoError(t, catalog.Record(&Result{Sequence: 1, RedoName: "001.sql", UndoName: "001.undo.sql", DryRun: true}))
	assert.Equal(t, 1, catalog.Next(), "dry runs are not recorded")
}

func TestCatalog_Fingerprint(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000.sql":      {Data: []byte("CREATE TABLE t (id INTEGER);")},
		"migrations/000.undo.sql": {Data: []byte("DROP TABLE t;")},
	}
	catalog, err := NewScanner(ScanOptions{}).Scan(fsys, "migrations")
	require.NoError(t, err)

	first, err := catalog.Fingerprint(fsys)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	again, err := catalog.Fingerprint(fsys)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	fsys["migrations/000.undo.sql"] = &fstest.MapFile{Data: []byte("DROP TABLE IF EXISTS t;")}
	changed, err := catalog.Fingerprint(fsys)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	delete(fsys, "migrations/000.sql")
	_, err = catalog.Fingerprint(fsys)
	var fsErr *FileSystemError
	assert.ErrorAs(t, err, &fsErr)
}
