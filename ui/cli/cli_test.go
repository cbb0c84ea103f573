package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config lookup at a temp dir and returns a sqlite
// file path for the default connection.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("APPDATA", filepath.Join(dir, "config"))
	dbPath := filepath.Join(dir, "lingo.db")
	t.Setenv("LINGO_CONNECTIONSTRINGS_DEFAULTCONNECTION", dbPath)
	return dbPath
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "etc", "lingo.yaml")

	out, err := run(t, "", "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "defaultculture: en")
	assert.Contains(t, strings.ToLower(string(data)), "defaultconnection:")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = run(t, "", "config", "init", "--path", path)
	assert.ErrorContains(t, err, "already exists")
	_, err = run(t, "", "config", "init", "--path", path, "--force")
	assert.NoError(t, err)
}

func TestMigrateAndUsers(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "users", "list")
	assert.ErrorContains(t, err, "pending migration")

	out, err := run(t, "", "migrate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "pending:")

	out, err = run(t, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migration(s) applied.")

	out, err = run(t, "", "migrate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Database is up to date.")

	out, err = run(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No accounts.")

	out, err = run(t, "", "users", "add", "ada@example.com", "--password", "Passw0rd!", "--confirmed")
	require.NoError(t, err)
	assert.Contains(t, out, "Created ada@example.com")

	// Password read from stdin when no flag is given.
	_, err = run(t, "Secr3t-pass\n", "users", "add", "bob@example.com")
	require.NoError(t, err)

	_, err = run(t, "", "users", "add", "eve@example.com", "--password", "short")
	assert.ErrorContains(t, err, "password rejected")

	_, err = run(t, "", "users", "confirm", "bob@example.com")
	require.NoError(t, err)

	out, err = run(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "bob@example.com")
	assert.NotContains(t, out, "eve@example.com")
	assert.Contains(t, out, "Confirmed")
}

func TestBackupAndRestore(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "migrate")
	require.NoError(t, err)
	_, err = run(t, "", "users", "add", "ada@example.com", "--password", "Passw0rd!")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "backup.json.zst")
	out, err := run(t, "", "backup", file)
	require.NoError(t, err)
	assert.Contains(t, out, file)

	// Restore into a fresh database.
	fresh := filepath.Join(t.TempDir(), "fresh.db")
	t.Setenv("LINGO_CONNECTIONSTRINGS_DEFAULTCONNECTION", fresh)
	_, err = run(t, "", "migrate")
	require.NoError(t, err)
	_, err = run(t, "", "restore", file)
	require.NoError(t, err)

	out, err = run(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
}

func TestRoutesCommand(t *testing.T) {
	isolate(t)
	t.Setenv("LINGO_DATABASE_MIGRATEONSTART", "true")
	out, err := run(t, "", "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "/Home/Privacy")
	assert.Contains(t, out, "/Identity/Account/Login")
	assert.Contains(t, out, "Pipeline: RequestState -> Logging")
}
