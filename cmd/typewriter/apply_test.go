package typewriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/typewriter/pkg/errors"
)

func TestRunApplyEndToEnd(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "template"),
		[]byte("greeting=$TYPEWRITER{greeting}\nhost=$TYPEWRITER{host}\n"), 0644))

	configPath := filepath.Join(tmpDir, "typewriter.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
[config.apply]
permission_strategy = "create_if_missing"

[config.variables]
confirm_commands = false
shell = "sh"

[config.commands]
confirm_commands = false
shell = "sh"

[[var]]
name = "greeting"
value = "hello"

[[var]]
name = "host"
type = "command"
value = "printf box"

[[file]]
file = "template"
destination = "rendered/out"
post_hook = ["touch \"$TYPEWRITER_FILE_DEST.done\""]

[[hook]]
command = "touch global-marker"
stage = "post_apply"
`), 0644))

	require.NoError(t, runApply(configPath, true))

	got, err := os.ReadFile(filepath.Join(tmpDir, "rendered", "out"))
	require.NoError(t, err)
	assert.Equal(t, "greeting=hello\nhost=box\n", string(got))

	// The ledger lives in the metadata dir next to the config
	_, err = os.Stat(filepath.Join(tmpDir, ".typewriter", ".checkdiff"))
	assert.NoError(t, err)

	// Global hooks run in the config directory
	_, err = os.Stat(filepath.Join(tmpDir, "global-marker"))
	assert.NoError(t, err)

	// Per-file hooks see the destination in their environment
	_, err = os.Stat(filepath.Join(tmpDir, "rendered", "out.done"))
	assert.NoError(t, err)

	// A second run against the untouched destination succeeds silently
	require.NoError(t, runApply(configPath, true))
}

func TestRunApplyRollsBackOnHookFailure(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "template"), []byte("v2\n"), 0644))
	dest := filepath.Join(tmpDir, "out")
	require.NoError(t, os.WriteFile(dest, []byte("v1\n"), 0644))

	configPath := filepath.Join(tmpDir, "typewriter.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
[config.variables]
substitution = "disabled"

[config.commands]
confirm_commands = false
shell = "sh"

[[file]]
file = "template"
destination = "out"

[[hook]]
command = "exit 1"
stage = "post_apply"
`), 0644))

	err := runApply(configPath, true)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrHookFailed))

	// The failing post_apply hook triggers rollback from the snapshot
	got, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, "v1\n", string(got))

	// The ledger never commits on a failed run, so the next run still
	// sees the restored content as a first apply
	_, statErr := os.Stat(filepath.Join(tmpDir, ".typewriter", ".checkdiff"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunApplyMissingConfig(t *testing.T) {
	err := runApply(filepath.Join(t.TempDir(), "nope.toml"), true)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}
