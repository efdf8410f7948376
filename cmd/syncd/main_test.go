package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "syncd version dev")
}

func TestMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncd.db")

	out, err := run(t, "migrate", "--db-url", "sqlite:///"+path)
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	// Migrating twice is a no-op.
	_, err = run(t, "migrate", "--db-url", "sqlite:///"+path)
	require.NoError(t, err)
}

func TestSync_NoAccounts(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("DB_URL", "sqlite:///"+filepath.Join(dir, "syncd.db"))
	t.Setenv("LOG_LEVEL", "ERROR")

	out, err := run(t, "sync", "ats.attachment")
	require.NoError(t, err)
	assert.Contains(t, out, "ats.attachment: 0 jobs")
}

func TestSync_Arguments(t *testing.T) {
	_, err := run(t, "sync")
	assert.Error(t, err)

	_, err = run(t, "sync", "attachment")
	assert.Error(t, err)
}
