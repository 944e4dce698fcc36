package main

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_transactions.sql", true, "0001", "create_transactions"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.version, m[1])
			assert.Equal(t, tt.name, m[2])
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_view.sql":  {Data: []byte("CREATE VIEW `{{PROJECT_ID}}.{{DATASET_ID}}.v` AS SELECT 1")},
		"0001_table.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id INT64)")},
		"README.md":      {Data: []byte("notes")},
	}

	ms, err := readMigrations(fsys, "proj", "finance", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, ms, 2)

	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "table", ms[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.finance.t` (id INT64)", ms[0].SQL)
	assert.Equal(t, 2, ms[1].Version)

	again, err := readMigrations(fsys, "other", "ds", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, ms[0].Checksum, again[0].Checksum)
	assert.NotEqual(t, ms[0].Checksum, ms[1].Checksum)
}

func TestReadMigrationsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0001_b.sql": {Data: []byte("SELECT 2")},
	}

	_, err := readMigrations(fsys, "p", "d", zerolog.Nop())
	assert.ErrorContains(t, err, "duplicate migration version 0001")
}

func TestBuiltInMigrations(t *testing.T) {
	sub, err := fs.Sub(embedded, "migrations")
	require.NoError(t, err)

	ms, err := readMigrations(sub, "proj", "finance", zerolog.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	assert.Equal(t, "create_transactions", ms[0].Name)
	for i, m := range ms {
		assert.Equal(t, i+1, m.Version)
		assert.NotContains(t, m.SQL, "{{")
		assert.True(t, strings.Contains(m.SQL, "`proj.finance."), m.Filename)
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}

	pending, err := pendingMigrations(all, []AppliedMigration{{Version: 1, Checksum: "c1"}, {Version: 2}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)

	pending, err = pendingMigrations(all, nil)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	_, err = pendingMigrations(all, []AppliedMigration{{Version: 2, Checksum: "edited"}})
	assert.ErrorContains(t, err, "0002_b changed")
}
