// Package backup is the apply strategy that snapshots destination
// content before it is mutated, restores the snapshots if any later
// stage fails, and discards them once the apply succeeds.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/typewriter/pkg/apply"
	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/internal/fileutil"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
)

// FlattenPath derives a snapshot file name from a destination path by
// replacing every path separator with the configured delimiter. The
// replacement alone is ambiguous when the path already contains the
// delimiter ("/a-b" and "/a/b" both flatten to "-a-b"), so a short
// hash of the original path is appended to keep distinct destinations
// on distinct snapshots. The transform is deterministic, so the same
// destination always maps to the same snapshot name.
func FlattenPath(path, delim string) string {
	sum := sha256.Sum256([]byte(path))
	flat := strings.ReplaceAll(path, string(os.PathSeparator), delim)
	return flat + delim + hex.EncodeToString(sum[:4])
}

// Strategy snapshots destinations into the metadata directory
type Strategy struct {
	apply.NoopStrategy

	mode    config.BackupMode
	dir     string
	delim   string
	cleanup bool
	logger  zerolog.Logger

	// snapshots maps destination path to its snapshot path for this run
	snapshots map[string]string
}

// New creates the backup strategy
func New(cfg config.ApplyConfig) *Strategy {
	return &Strategy{
		mode:      cfg.Backup,
		dir:       cfg.MetadataDir,
		delim:     cfg.BackupPathDelim,
		cleanup:   cfg.CleanupBackups,
		logger:    logging.GetLogger("apply.backup"),
		snapshots: make(map[string]string),
	}
}

// BeforeApplyFile snapshots the destination's current content. A
// destination that does not exist yet has nothing to protect.
func (s *Strategy) BeforeApplyFile(file *types.TrackedFile) error {
	if s.mode == config.BackupDisabled {
		return nil
	}

	if _, err := os.Stat(file.Destination); err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("destination", file.Destination).Msg("Destination does not exist, no backup needed")
			return nil
		}
		return errors.Wrapf(err, errors.ErrFileAccess,
			"while checking %s for backup", file.Destination)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "while creating backup directory %s", s.dir)
	}

	snapshot := filepath.Join(s.dir, FlattenPath(file.Destination, s.delim))
	if err := fileutil.CopyFile(file.Destination, snapshot); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite,
			"while copying %s to backup %s", file.Destination, snapshot)
	}

	s.snapshots[file.Destination] = snapshot
	s.logger.Info().Str("destination", file.Destination).Str("snapshot", snapshot).Msg("Backed up destination")
	return nil
}

// Commit discards the snapshots once the whole apply succeeded,
// post-apply hooks included; until then they must stay available for
// OnFailure. Removal failures are logged, never propagated: a stale
// snapshot must not fail an apply that already committed.
func (s *Strategy) Commit(files types.TrackedFileList) error {
	if s.mode == config.BackupDisabled || !s.cleanup {
		return nil
	}

	for destination, snapshot := range s.snapshots {
		if err := os.Remove(snapshot); err != nil {
			s.logger.Warn().Err(err).Str("snapshot", snapshot).Msg("Failed to remove backup snapshot")
			continue
		}
		s.logger.Debug().Str("destination", destination).Str("snapshot", snapshot).Msg("Removed backup snapshot")
	}

	s.snapshots = make(map[string]string)
	return nil
}

// OnFailure restores every snapshot over its possibly partially
// written destination. Per-file restore failures are logged and do not
// block restoring the rest.
func (s *Strategy) OnFailure(files types.TrackedFileList) error {
	if len(s.snapshots) == 0 {
		return nil
	}

	restored, failed := 0, 0
	for destination, snapshot := range s.snapshots {
		if err := fileutil.CopyFile(snapshot, destination); err != nil {
			failed++
			s.logger.Error().Err(err).
				Str("snapshot", snapshot).
				Str("destination", destination).
				Msg("Failed to restore backup")
			continue
		}
		restored++
		s.logger.Info().Str("destination", destination).Msg("Restored destination from backup")
	}

	s.logger.Warn().Int("restored", restored).Int("failed", failed).Msg("Backup rollback finished")
	s.snapshots = make(map[string]string)
	return nil
}
