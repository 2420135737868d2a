// Package substitute is the apply strategy that writes tracked files
// to their destinations, rewriting variable placeholders on the way.
// Before any destination is touched it validates that every
// placeholder in every source names a defined variable.
package substitute

import (
	"bufio"
	"os"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/typewriter/pkg/apply"
	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/internal/fileutil"
	"github.com/arthur-debert/typewriter/pkg/internal/hashutil"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
	"github.com/arthur-debert/typewriter/pkg/vars"
)

// Lines are processed one at a time; this caps a single line, not the
// file.
const maxLineBytes = 4 * 1024 * 1024

// Strategy rewrites placeholders while copying sources to destinations
type Strategy struct {
	apply.NoopStrategy

	mode    config.SubstitutionMode
	pattern *regexp.Regexp
	vars    map[string]string
	logger  zerolog.Logger
}

// New creates the substitution strategy over a resolved variable map
func New(cfg config.VariableConfig, varMap map[string]string) (*Strategy, error) {
	pattern, err := vars.PlaceholderPattern(cfg.Format)
	if err != nil {
		return nil, err
	}
	return &Strategy{
		mode:    cfg.Substitution,
		pattern: pattern,
		vars:    varMap,
		logger:  logging.GetLogger("apply.substitute"),
	}, nil
}

// BeforeApply validates every source file's placeholders before any
// destination is written
func (s *Strategy) BeforeApply(files types.TrackedFileList) error {
	if s.mode == config.SubstitutionDisabled {
		return nil
	}

	for i := range files {
		if err := s.validate(&files[i]); err != nil {
			return err
		}
	}
	return nil
}

// AfterApplyFile writes the file's content to its destination
func (s *Strategy) AfterApplyFile(file *types.TrackedFile) error {
	if s.mode == config.SubstitutionDisabled {
		return s.copyVerbatim(file)
	}
	return s.replace(file)
}

// validate streams the source and checks each placeholder is defined
func (s *Strategy) validate(file *types.TrackedFile) error {
	source, err := os.Open(file.Source)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess,
			"cannot read file %s referenced in configuration file %s to check its variables",
			file.Source, file.Origin)
	}
	defer func() {
		_ = source.Close()
	}()

	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		for _, match := range s.pattern.FindAllStringSubmatch(scanner.Text(), -1) {
			name := match[1]
			if _, ok := s.vars[name]; !ok {
				return errors.Newf(errors.ErrVariableUndefined,
					"variable %s found in file %s referenced in configuration file %s is undefined",
					name, file.Source, file.Origin)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "while reading file %s", file.Source)
	}

	return nil
}

// copyVerbatim copies source bytes to the destination unchanged. When
// the file opts into skip-if-same and the destination already carries
// the source content, nothing is written.
func (s *Strategy) copyVerbatim(file *types.TrackedFile) error {
	if file.SkipIfSame && s.sameContent(file) {
		s.logger.Info().
			Str("destination", file.Destination).
			Msg("Destination content already matches source, skipping write")
		return nil
	}

	if err := fileutil.CopyFile(file.Source, file.Destination); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite,
			"while applying %s to %s referenced by config %s",
			file.Source, file.Destination, file.Origin)
	}
	return nil
}

// sameContent compares source and destination fingerprints; any error
// means "not the same" and the write proceeds normally
func (s *Strategy) sameContent(file *types.TrackedFile) bool {
	srcSum, err := hashutil.FileFingerprint(file.Source)
	if err != nil {
		return false
	}
	dstSum, err := hashutil.FileFingerprint(file.Destination)
	if err != nil {
		return false
	}
	return srcSum == dstSum
}

// replace streams the source line by line into the destination,
// substituting every placeholder with its resolved value
func (s *Strategy) replace(file *types.TrackedFile) error {
	source, err := os.Open(file.Source)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess,
			"cannot read file %s referenced in configuration file %s to replace variables",
			file.Source, file.Origin)
	}
	defer func() {
		_ = source.Close()
	}()

	dest, err := os.OpenFile(file.Destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite,
			"cannot write to file %s referenced in configuration file %s to replace variables",
			file.Destination, file.Origin)
	}

	writer := bufio.NewWriter(dest)
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := s.pattern.ReplaceAllStringFunc(scanner.Text(), func(token string) string {
			// Validated in BeforeApply, so every name is present
			name := s.pattern.FindStringSubmatch(token)[1]
			return s.vars[name]
		})

		if _, err := writer.WriteString(line + "\n"); err != nil {
			_ = dest.Close()
			return errors.Wrapf(err, errors.ErrFileWrite, "while writing file %s", file.Destination)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = dest.Close()
		return errors.Wrapf(err, errors.ErrFileAccess, "while reading file %s", file.Source)
	}

	if err := writer.Flush(); err != nil {
		_ = dest.Close()
		return errors.Wrapf(err, errors.ErrFileWrite, "while writing file %s", file.Destination)
	}

	return dest.Close()
}
