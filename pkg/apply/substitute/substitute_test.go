package substitute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/types"
)

func testVarConfig(mode config.SubstitutionMode) config.VariableConfig {
	return config.VariableConfig{
		Format:       "$TYPEWRITER{{variable}}",
		Substitution: mode,
	}
}

func trackedFile(t *testing.T, dir, content string) types.TrackedFile {
	t.Helper()
	source := filepath.Join(dir, "source")
	require.NoError(t, os.WriteFile(source, []byte(content), 0644))
	return types.TrackedFile{
		Source:      source,
		Destination: filepath.Join(dir, "dest"),
		Origin:      filepath.Join(dir, "typewriter.toml"),
	}
}

func TestReplaceSubstitutesPlaceholders(t *testing.T) {
	tmpDir := t.TempDir()
	file := trackedFile(t, tmpDir, "editor=$TYPEWRITER{editor}\nplain line\nshell=$TYPEWRITER{shell}\n")

	s, err := New(testVarConfig(config.SubstitutionReplace), map[string]string{
		"editor": "vim",
		"shell":  "zsh",
	})
	require.NoError(t, err)

	files := types.TrackedFileList{file}
	require.NoError(t, s.BeforeApply(files))
	require.NoError(t, s.AfterApplyFile(&files[0]))

	got, err := os.ReadFile(file.Destination)
	require.NoError(t, err)
	assert.Equal(t, "editor=vim\nplain line\nshell=zsh\n", string(got))
}

func TestReplaceRepeatedPlaceholder(t *testing.T) {
	tmpDir := t.TempDir()
	file := trackedFile(t, tmpDir, "$TYPEWRITER{x} and $TYPEWRITER{x}\n")

	s, err := New(testVarConfig(config.SubstitutionReplace), map[string]string{"x": "twice"})
	require.NoError(t, err)

	require.NoError(t, s.AfterApplyFile(&file))

	got, err := os.ReadFile(file.Destination)
	require.NoError(t, err)
	assert.Equal(t, "twice and twice\n", string(got))
}

func TestValidateUndefinedVariable(t *testing.T) {
	tmpDir := t.TempDir()
	file := trackedFile(t, tmpDir, "uses $TYPEWRITER{ghost}\n")

	s, err := New(testVarConfig(config.SubstitutionReplace), map[string]string{"editor": "vim"})
	require.NoError(t, err)

	err = s.BeforeApply(types.TrackedFileList{file})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrVariableUndefined))
	assert.Contains(t, err.Error(), "ghost")

	// Validation must not touch the destination
	_, statErr := os.Stat(file.Destination)
	assert.True(t, os.IsNotExist(statErr))
}

func TestValidateMissingSource(t *testing.T) {
	tmpDir := t.TempDir()
	file := types.TrackedFile{
		Source:      filepath.Join(tmpDir, "does-not-exist"),
		Destination: filepath.Join(tmpDir, "dest"),
		Origin:      filepath.Join(tmpDir, "typewriter.toml"),
	}

	s, err := New(testVarConfig(config.SubstitutionReplace), nil)
	require.NoError(t, err)

	err = s.BeforeApply(types.TrackedFileList{file})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileAccess))
}

func TestDisabledCopiesVerbatim(t *testing.T) {
	tmpDir := t.TempDir()
	file := trackedFile(t, tmpDir, "raw $TYPEWRITER{untouched} content\n")

	s, err := New(testVarConfig(config.SubstitutionDisabled), nil)
	require.NoError(t, err)

	// Disabled mode skips validation entirely
	files := types.TrackedFileList{file}
	require.NoError(t, s.BeforeApply(files))
	require.NoError(t, s.AfterApplyFile(&files[0]))

	got, err := os.ReadFile(file.Destination)
	require.NoError(t, err)
	assert.Equal(t, "raw $TYPEWRITER{untouched} content\n", string(got))
}

func TestDisabledSkipIfSame(t *testing.T) {
	tmpDir := t.TempDir()
	file := trackedFile(t, tmpDir, "identical content\n")
	file.SkipIfSame = true
	require.NoError(t, os.WriteFile(file.Destination, []byte("identical content\n"), 0644))

	// A read-only destination proves the skip: a write would fail
	require.NoError(t, os.Chmod(file.Destination, 0444))

	s, err := New(testVarConfig(config.SubstitutionDisabled), nil)
	require.NoError(t, err)
	assert.NoError(t, s.AfterApplyFile(&file))
}

func TestDisabledDifferentContentStillWrites(t *testing.T) {
	tmpDir := t.TempDir()
	file := trackedFile(t, tmpDir, "new content\n")
	file.SkipIfSame = true
	require.NoError(t, os.WriteFile(file.Destination, []byte("old content\n"), 0644))

	s, err := New(testVarConfig(config.SubstitutionDisabled), nil)
	require.NoError(t, err)
	require.NoError(t, s.AfterApplyFile(&file))

	got, err := os.ReadFile(file.Destination)
	require.NoError(t, err)
	assert.Equal(t, "new content\n", string(got))
}
