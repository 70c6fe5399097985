package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigOK(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatehouse.conf")
	require.NoError(t, os.WriteFile(path, []byte(`
server {
    listen 8080
    root .
}
`), 0o644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"-c", path, "-t"})
	assert.NoError(t, cmd.Execute())
}

func TestValidateConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatehouse.conf")
	require.NoError(t, os.WriteFile(path, []byte("server {\nbogus x\n}\n"), 0o644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"-c", path, "-t"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown directive")
}

func TestMissingConfigFile(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"-c", filepath.Join(t.TempDir(), "absent.conf"), "-t"})
	assert.Error(t, cmd.Execute())
}

func TestVersionFlag(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--version"})
	assert.NoError(t, cmd.Execute())
}
