package sqlite

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/migration-sequencer/internal/migration"
)

func replay(t *testing.T, fsys fstest.MapFS) (*ReplayReport, error) {
	t.Helper()
	ctx := context.Background()

	catalog, err := migration.NewScanner(migration.ScanOptions{}).Scan(fsys, "migrations")
	require.NoError(t, err)

	pool, err := OpenScratch(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return NewReplayer(pool, nil).Replay(ctx, fsys, catalog)
}

func TestReplay_CleanHistory(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000.sql":           {Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);\nCREATE INDEX users_email ON users(email);")},
		"migrations/000.undo.sql":      {Data: []byte("DROP INDEX users_email;\nDROP TABLE users;")},
		"migrations/001.data.sql":      {Data: []byte("INSERT INTO users(email) VALUES ('a@example.com');")},
		"migrations/001.data.undo.sql": {Data: []byte("DELETE FROM users WHERE email = 'a@example.com';")},
		"migrations/002.sql":           {Data: []byte(migration.UpsertSettingsSQL("Foo", "{}"))},
		"migrations/002.undo.sql":      {Data: []byte(migration.DeleteSettingsSQL("Foo"))},
		"migrations/003.sql":           {},
		"migrations/003.undo.sql":      {},
	}

	report, err := replay(t, fsys)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Applied)
	assert.Equal(t, 3, report.Reverted)
	assert.Equal(t, 2, report.Skipped)
	assert.True(t, report.Clean(), "residue: %v", report.Residue)
}

func TestReplay_ReportsResidue(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000.sql":      {Data: []byte("CREATE TABLE audit (id INTEGER);")},
		"migrations/000.undo.sql": {},
		"migrations/001.sql":      {Data: []byte(migration.UpsertSettingsSQL("Bar", "{}"))},
		"migrations/001.undo.sql": {Data: []byte("SELECT 1;")},
	}

	report, err := replay(t, fsys)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []string{"table audit", "1 settings_json_schema row(s)"}, report.Residue)
}

func TestReplay_StopsAtFailingScript(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000.sql":      {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"migrations/000.undo.sql": {Data: []byte("DROP TABLE a;")},
		"migrations/001.sql":      {Data: []byte("CREATE TABL b (id INTEGER);")},
		"migrations/001.undo.sql": {Data: []byte("DROP TABLE b;")},
	}

	report, err := replay(t, fsys)
	require.Error(t, err)
	assert.Equal(t, 1, report.Applied)

	var rErr *ReplayError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, 1, rErr.Sequence)
	assert.Equal(t, migration.RoleRedo, rErr.Role)
	assert.Equal(t, "001.sql", rErr.Name)
}

func TestReplay_RejectsInvalidSettingsJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000.sql":      {Data: []byte(migration.UpsertSettingsSQL("Foo", "{not json"))},
		"migrations/000.undo.sql": {Data: []byte(migration.DeleteSettingsSQL("Foo"))},
	}

	_, err := replay(t, fsys)
	var rErr *ReplayError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, "000.sql", rErr.Name)
}

func TestReplay_RequiresCatalog(t *testing.T) {
	pool, err := OpenScratch(context.Background())
	require.NoError(t, err)
	defer pool.Close()

	_, err = NewReplayer(pool, nil).Replay(context.Background(), fstest.MapFS{}, nil)
	assert.Error(t, err)
}

func TestReplay_HistoryOwnsSettingsTable(t *testing.T) {
	const createSettings = "CREATE TABLE settings_json_schema (id TEXT PRIMARY KEY NOT NULL, value JSON NOT NULL);"

	tests := []struct {
		name            string
		fsys            fstest.MapFS
		expectedApplied int
		expectedResidue []string
	}{
		{
			name: "created if not exists and dropped",
			fsys: fstest.MapFS{
				"migrations/001.sql":      {Data: []byte("CREATE TABLE IF NOT EXISTS settings_json_schema (id TEXT PRIMARY KEY, value JSON);")},
				"migrations/001.undo.sql": {Data: []byte("DROP TABLE settings_json_schema;")},
			},
			expectedApplied: 1,
		},
		{
			name: "plain create followed by registrations",
			fsys: fstest.MapFS{
				"migrations/000.sql":      {Data: []byte(createSettings)},
				"migrations/000.undo.sql": {Data: []byte("DROP TABLE settings_json_schema;")},
				"migrations/001.sql":      {Data: []byte(migration.UpsertSettingsSQL("Foo", "{}"))},
				"migrations/001.undo.sql": {Data: []byte(migration.DeleteSettingsSQL("Foo"))},
			},
			expectedApplied: 2,
		},
		{
			name: "created but never dropped",
			fsys: fstest.MapFS{
				"migrations/000.sql":      {Data: []byte(createSettings)},
				"migrations/000.undo.sql": {},
			},
			expectedApplied: 1,
			expectedResidue: []string{"table settings_json_schema"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := replay(t, tt.fsys)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedApplied, report.Applied)
			assert.Equal(t, tt.expectedResidue, report.Residue)
			assert.Equal(t, len(tt.expectedResidue) == 0, report.Clean())
		})
	}
}
