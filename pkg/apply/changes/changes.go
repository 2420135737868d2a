// Package changes is the apply strategy guarding against silent loss
// of destination content. It keeps a ledger of content fingerprints
// per destination across runs; a destination that changed outside
// typewriter only gets overwritten after explicit confirmation.
package changes

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/typewriter/pkg/apply"
	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/internal/hashutil"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
)

// ledger is the on-disk change-detection store: absolute destination
// path to content fingerprint. It is loaded once per apply and fully
// replaced, never merged, on success.
type ledger struct {
	Entries map[string]string `yaml:"entries"`
}

// Strategy detects out-of-band destination changes
type Strategy struct {
	apply.NoopStrategy

	mode       config.ChangeMode
	ledgerPath string
	skipNew    bool
	confirmer  types.Confirmer
	logger     zerolog.Logger

	// entries is the ledger loaded in BeforeApply, held for the run
	entries map[string]string
}

// New creates the change-detection strategy
func New(cfg config.ApplyConfig, confirmer types.Confirmer) *Strategy {
	return &Strategy{
		mode:       cfg.ChangeDetection,
		ledgerPath: filepath.Join(cfg.MetadataDir, cfg.LedgerFileName),
		skipNew:    cfg.SkipLedgerNew,
		confirmer:  confirmer,
		logger:     logging.GetLogger("apply.changes"),
	}
}

// LedgerPath returns where the fingerprint ledger lives
func (s *Strategy) LedgerPath() string {
	return s.ledgerPath
}

// BeforeApply loads the ledger and gates every destination behind it
func (s *Strategy) BeforeApply(files types.TrackedFileList) error {
	if s.mode == config.ChangeDisabled {
		return nil
	}

	entries, err := s.load()
	if err != nil {
		return err
	}
	s.entries = entries

	if len(entries) == 0 {
		ok, err := s.confirmer.Confirm(
			"No existing fingerprint ledger was found. Proceed? This will overwrite all tracked destinations regardless of changes.",
			false)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrUserAborted, "aborting apply operation")
		}
		return nil
	}

	for i := range files {
		if err := s.checkFile(&files[i]); err != nil {
			return err
		}
	}

	return nil
}

// Commit recomputes every destination fingerprint and replaces the
// ledger on disk. It runs only once the whole apply succeeded, so a
// failed run never leaves the ledger fingerprinting rolled-back
// content.
func (s *Strategy) Commit(files types.TrackedFileList) error {
	if s.mode == config.ChangeDisabled {
		return nil
	}

	entries := make(map[string]string, len(files))
	for i := range files {
		sum, err := hashutil.FileFingerprint(files[i].Destination)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess,
				"while fingerprinting %s for the ledger", files[i].Destination)
		}
		entries[files[i].Destination] = sum
	}

	if err := os.MkdirAll(filepath.Dir(s.ledgerPath), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate,
			"while creating metadata directory for ledger %s", s.ledgerPath)
	}

	raw, err := yaml.Marshal(ledger{Entries: entries})
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "while serializing the fingerprint ledger")
	}

	if err := os.WriteFile(s.ledgerPath, raw, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "while writing ledger %s", s.ledgerPath)
	}

	s.logger.Info().Int("entries", len(entries)).Str("path", s.ledgerPath).Msg("Ledger updated")
	return nil
}

func (s *Strategy) checkFile(file *types.TrackedFile) error {
	expected, known := s.entries[file.Destination]

	if !known {
		// The flag is trusted unconditionally, even for files never
		// applied before
		if s.skipNew {
			return nil
		}

		ok, err := s.confirmer.Confirm(
			"No existing fingerprint was found for "+file.Destination+
				" referenced in configuration file "+file.Origin+
				". Proceed? This will overwrite the file.",
			false)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrUserAborted, "aborting apply operation")
		}
		return nil
	}

	sum, err := hashutil.FileFingerprint(file.Destination)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess,
			"while fingerprinting %s referenced in configuration file %s",
			file.Destination, file.Origin)
	}

	if sum == expected {
		return nil
	}

	ok, err := s.confirmer.Confirm(
		"Fingerprint differs for file "+file.Destination+
			" referenced by configuration file "+file.Origin+
			" (it was changed since the last apply). Continue and overwrite?",
		false)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrUserAborted, "aborting apply operation")
	}

	return nil
}

// load reads the ledger from disk; a missing file is an empty ledger,
// an unparseable file is a hard error naming it
func (s *Strategy) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.ledgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "while reading ledger %s", s.ledgerPath)
	}

	var stored ledger
	if err := yaml.Unmarshal(raw, &stored); err != nil {
		return nil, errors.Wrapf(err, errors.ErrLedgerCorrupt,
			"cannot parse fingerprint ledger %s, has it been tampered with?", s.ledgerPath)
	}

	if stored.Entries == nil {
		stored.Entries = map[string]string{}
	}
	return stored.Entries, nil
}
