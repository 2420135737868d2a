package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/types"
)

func testApplyConfig(dir string) config.ApplyConfig {
	return config.ApplyConfig{
		MetadataDir:     filepath.Join(dir, ".typewriter"),
		Backup:          config.BackupCopyCurrent,
		BackupPathDelim: "-",
	}
}

func TestFlattenPath(t *testing.T) {
	assert.True(t, strings.HasPrefix(FlattenPath("/home/user/.bashrc", "-"), "-home-user-.bashrc-"))
	assert.True(t, strings.HasPrefix(FlattenPath("/etc/hosts", "_"), "_etc_hosts_"))
	assert.NotContains(t, FlattenPath("relative/path", "-"), "/")

	// Deterministic: the same destination always maps to the same name
	assert.Equal(t, FlattenPath("/etc/hosts", "-"), FlattenPath("/etc/hosts", "-"))
}

func TestFlattenPathAvoidsCollisions(t *testing.T) {
	// Separator replacement alone would flatten both of these to "-a-b"
	// and the second snapshot would overwrite the first
	assert.NotEqual(t, FlattenPath("/a-b", "-"), FlattenPath("/a/b", "-"))
}

func TestBeforeApplyFileSnapshots(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testApplyConfig(tmpDir)

	dest := filepath.Join(tmpDir, "dest")
	require.NoError(t, os.WriteFile(dest, []byte("precious"), 0644))
	file := types.TrackedFile{Source: "/src", Destination: dest}

	s := New(cfg)
	require.NoError(t, s.BeforeApplyFile(&file))

	snapshot := filepath.Join(cfg.MetadataDir, FlattenPath(dest, "-"))
	got, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(got))
}

func TestBeforeApplyFileMissingDestination(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testApplyConfig(tmpDir)

	file := types.TrackedFile{Source: "/src", Destination: filepath.Join(tmpDir, "not-yet")}

	s := New(cfg)
	require.NoError(t, s.BeforeApplyFile(&file))

	// Nothing to protect, so no metadata dir either
	_, err := os.Stat(cfg.MetadataDir)
	assert.True(t, os.IsNotExist(err))
}

func TestDisabledMode(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testApplyConfig(tmpDir)
	cfg.Backup = config.BackupDisabled

	dest := filepath.Join(tmpDir, "dest")
	require.NoError(t, os.WriteFile(dest, []byte("content"), 0644))
	file := types.TrackedFile{Source: "/src", Destination: dest}

	s := New(cfg)
	require.NoError(t, s.BeforeApplyFile(&file))

	_, err := os.Stat(cfg.MetadataDir)
	assert.True(t, os.IsNotExist(err))
}

func TestOnFailureRestores(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testApplyConfig(tmpDir)

	destA := filepath.Join(tmpDir, "a")
	destB := filepath.Join(tmpDir, "b")
	require.NoError(t, os.WriteFile(destA, []byte("original a"), 0644))
	require.NoError(t, os.WriteFile(destB, []byte("original b"), 0644))

	files := types.TrackedFileList{
		{Source: "/src/a", Destination: destA},
		{Source: "/src/b", Destination: destB},
	}

	s := New(cfg)
	require.NoError(t, s.BeforeApplyFile(&files[0]))
	require.NoError(t, s.BeforeApplyFile(&files[1]))

	// Simulate the write phase clobbering both destinations
	require.NoError(t, os.WriteFile(destA, []byte("half-written"), 0644))
	require.NoError(t, os.WriteFile(destB, []byte("garbage"), 0644))

	require.NoError(t, s.OnFailure(files))

	gotA, err := os.ReadFile(destA)
	require.NoError(t, err)
	gotB, err := os.ReadFile(destB)
	require.NoError(t, err)
	assert.Equal(t, "original a", string(gotA))
	assert.Equal(t, "original b", string(gotB))
}

func TestOnFailureWithoutSnapshots(t *testing.T) {
	s := New(testApplyConfig(t.TempDir()))
	assert.NoError(t, s.OnFailure(nil))
}

func TestCommitCleanup(t *testing.T) {
	t.Run("cleanup_enabled", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfg := testApplyConfig(tmpDir)
		cfg.CleanupBackups = true

		dest := filepath.Join(tmpDir, "dest")
		require.NoError(t, os.WriteFile(dest, []byte("content"), 0644))
		file := types.TrackedFile{Source: "/src", Destination: dest}

		s := New(cfg)
		require.NoError(t, s.BeforeApplyFile(&file))

		snapshot := filepath.Join(cfg.MetadataDir, FlattenPath(dest, "-"))
		_, err := os.Stat(snapshot)
		require.NoError(t, err)

		require.NoError(t, s.Commit(types.TrackedFileList{file}))
		_, err = os.Stat(snapshot)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("cleanup_disabled_keeps_snapshots", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfg := testApplyConfig(tmpDir)

		dest := filepath.Join(tmpDir, "dest")
		require.NoError(t, os.WriteFile(dest, []byte("content"), 0644))
		file := types.TrackedFile{Source: "/src", Destination: dest}

		s := New(cfg)
		require.NoError(t, s.BeforeApplyFile(&file))
		require.NoError(t, s.Commit(types.TrackedFileList{file}))

		_, err := os.Stat(filepath.Join(cfg.MetadataDir, FlattenPath(dest, "-")))
		assert.NoError(t, err)
	})
}
