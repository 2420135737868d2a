// Package permissions is the apply strategy validating access to every
// source and destination before anything is written, optionally
// creating missing destinations. Files it creates are tracked for the
// run and deleted again if the apply fails.
package permissions

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/typewriter/pkg/apply"
	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
)

// Strategy guards file access ahead of the write phase
type Strategy struct {
	apply.NoopStrategy

	mode              config.PermissionMode
	autoSkip          bool
	autoConfirmCreate bool
	confirmer         types.Confirmer
	logger            zerolog.Logger

	// created tracks destinations this run brought into existence, so
	// a failed apply can remove them again
	created map[string]struct{}
}

// New creates the permission guard
func New(cfg config.ApplyConfig, confirmer types.Confirmer) *Strategy {
	return &Strategy{
		mode:              cfg.Permissions,
		autoSkip:          cfg.AutoSkipUnableApply,
		autoConfirmCreate: cfg.AutoConfirmCreation,
		confirmer:         confirmer,
		logger:            logging.GetLogger("apply.permissions"),
		created:           make(map[string]struct{}),
	}
}

// BeforeApply verifies access for every tracked file
func (s *Strategy) BeforeApply(files types.TrackedFileList) error {
	if s.mode == config.PermissionDisabled {
		return nil
	}

	createMissing := s.mode == config.PermissionCreateIfMissing
	for i := range files {
		if err := s.checkFile(&files[i], createMissing); err != nil {
			return err
		}
	}

	return nil
}

// Commit clears the creation set once the apply succeeded; a failure
// in any later stage must still find it populated for OnFailure
func (s *Strategy) Commit(files types.TrackedFileList) error {
	s.created = make(map[string]struct{})
	return nil
}

// OnFailure deletes every file this run created
func (s *Strategy) OnFailure(files types.TrackedFileList) error {
	if len(s.created) > 0 {
		s.logger.Warn().Int("files", len(s.created)).Msg("Cleaning up files created during failed apply")
	}

	for path := range s.created {
		if err := os.Remove(path); err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("Failed to remove created file")
			continue
		}
		s.logger.Info().Str("path", path).Msg("Removed created file")
	}

	s.created = make(map[string]struct{})
	return nil
}

func (s *Strategy) checkFile(file *types.TrackedFile, createMissing bool) error {
	if err := s.checkAccess(file.Source, file.Origin, os.O_RDONLY, "read"); err != nil {
		return err
	}

	if _, err := os.Stat(file.Destination); os.IsNotExist(err) && createMissing {
		return s.createDestination(file)
	}

	return s.checkAccess(file.Destination, file.Origin, os.O_RDWR, "write to")
}

// checkAccess opens the path with the given flags to prove access.
// Failure either aborts outright (auto-skip) or asks the user whether
// to abort.
func (s *Strategy) checkAccess(path, origin string, flag int, accessType string) error {
	handle, err := os.OpenFile(path, flag, 0)
	if err == nil {
		_ = handle.Close()
		return nil
	}

	s.logger.Error().Err(err).Str("path", path).Str("access", accessType).Msg("File access check failed")

	if s.autoSkip {
		return errors.Wrapf(err, errors.ErrFileAccess,
			"cannot %s file %s referenced in configuration file %s", accessType, path, origin)
	}

	abort, confirmErr := s.confirmer.Confirm(
		"Cannot access file "+path+" referenced in configuration file "+origin+", abort?", true)
	if confirmErr != nil {
		return confirmErr
	}
	if abort {
		return errors.Wrapf(err, errors.ErrUserAborted, "aborted due to file access error on %s", path)
	}

	return nil
}

// createDestination creates the missing destination file and its
// parent directories, recording it for rollback
func (s *Strategy) createDestination(file *types.TrackedFile) error {
	if !s.autoConfirmCreate {
		ok, err := s.confirmer.Confirm(
			"Destination file "+file.Destination+" does not exist. Create it?", true)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Newf(errors.ErrUserAborted,
				"aborted: declined to create file %s", file.Destination)
		}
	}

	if err := os.MkdirAll(filepath.Dir(file.Destination), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate,
			"while creating parent directories for destination file %s", file.Destination)
	}

	handle, err := os.Create(file.Destination)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCreate,
			"while creating destination file %s referenced in configuration file %s",
			file.Destination, file.Origin)
	}
	_ = handle.Close()

	s.created[file.Destination] = struct{}{}
	s.logger.Info().
		Str("destination", file.Destination).
		Str("source", file.Source).
		Msg("Created destination file")

	return nil
}
