package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "Add Invoice Tables")
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(mf.UpPath), "add_invoice_tables.up.sql")
	assert.Contains(t, filepath.Base(mf.DownPath), "add_invoice_tables.down.sql")

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "Add Invoice Tables")

	_, err = os.Stat(mf.DownPath)
	assert.NoError(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Add Invoice Tables", "add_invoice_tables"},
		{"add-exchange-rates", "add_exchange_rates"},
		{"weird!!chars##here", "weirdcharshere"},
		{"trailing space ", "trailing_space"},
		{"double  space", "double_space"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()

	_, err := CreateMigration(dir, "first")
	require.NoError(t, err)

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Contains(t, migrations[0], "first")

	t.Run("missing directory lists empty", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(dir, "nope"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
