// Package hooks is the apply strategy executing configured commands at
// the global pre/post stages and around each tracked file.
package hooks

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/typewriter/pkg/apply"
	"github.com/arthur-debert/typewriter/pkg/command"
	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
)

// Hook stages
const (
	StagePreApply  = "pre_apply"
	StagePostApply = "post_apply"
)

// Environment variables exported to per-file hook invocations
const (
	EnvFileSource      = "TYPEWRITER_FILE_SRC"
	EnvFileDestination = "TYPEWRITER_FILE_DEST"
)

// Strategy executes global and per-file hooks
type Strategy struct {
	apply.NoopStrategy

	enabled   bool
	onFailure config.FailureStrategy
	pre       []types.HookDefinition
	post      []types.HookDefinition
	runner    *command.Runner
	logger    zerolog.Logger
}

// New partitions hooks into their stage groups. An unknown stage tag
// is a configuration error.
func New(cfg config.HooksConfig, hooks []types.HookDefinition, runner *command.Runner) (*Strategy, error) {
	s := &Strategy{
		enabled:   cfg.Enabled,
		onFailure: cfg.OnFailure,
		runner:    runner,
		logger:    logging.GetLogger("apply.hooks"),
	}

	for _, hook := range hooks {
		switch hook.Stage {
		case StagePreApply:
			s.pre = append(s.pre, hook)
		case StagePostApply:
			s.post = append(s.post, hook)
		default:
			return nil, errors.Newf(errors.ErrConfigInvalid,
				"invalid hook stage %q in %s, must be %s or %s",
				hook.Stage, hook.Origin, StagePreApply, StagePostApply)
		}
	}

	return s, nil
}

// BeforeApply runs the pre_apply hook group
func (s *Strategy) BeforeApply(files types.TrackedFileList) error {
	s.logger.Info().Int("hooks", len(s.pre)).Msg("Executing pre_apply hooks")
	return s.runGroup(s.pre)
}

// AfterApply runs the post_apply hook group
func (s *Strategy) AfterApply(files types.TrackedFileList) error {
	s.logger.Info().Int("hooks", len(s.post)).Msg("Executing post_apply hooks")
	return s.runGroup(s.post)
}

// BeforeApplyFile runs the file's pre hooks
func (s *Strategy) BeforeApplyFile(file *types.TrackedFile) error {
	return s.runFileHooks(file, file.PreHooks)
}

// AfterApplyFile runs the file's post hooks
func (s *Strategy) AfterApplyFile(file *types.TrackedFile) error {
	return s.runFileHooks(file, file.PostHooks)
}

// runGroup executes a stage's hooks in order. Each hook runs in the
// directory of the configuration file that declared it.
func (s *Strategy) runGroup(group []types.HookDefinition) error {
	if !s.enabled || len(group) == 0 {
		return nil
	}

	for _, hook := range group {
		_, err := s.runner.Run(hook.Command, command.Invocation{
			WorkDir:     filepath.Dir(hook.Origin),
			Description: "hook from " + hook.Origin,
		})
		if err != nil {
			if err := s.handleFailure(hook.Command, hook.Origin, err, hook.ContinueOnError); err != nil {
				return err
			}
		}
	}

	return nil
}

// runFileHooks executes a file's hook commands with the file's source
// and destination exported in the environment
func (s *Strategy) runFileHooks(file *types.TrackedFile, commands []string) error {
	if !s.enabled || len(commands) == 0 {
		return nil
	}

	for _, hookCommand := range commands {
		_, err := s.runner.Run(hookCommand, command.Invocation{
			Env: map[string]string{
				EnvFileSource:      file.Source,
				EnvFileDestination: file.Destination,
			},
			Description: "file hook from " + file.Origin,
		})
		if err != nil {
			if err := s.handleFailure(hookCommand, file.Origin, err, file.ContinueOnHookError); err != nil {
				return err
			}
		}
	}

	return nil
}

// handleFailure applies the error policy: the per-hook continue flag
// overrides the global strategy; Abort propagates, Continue logs.
func (s *Strategy) handleFailure(hookCommand, origin string, cause error, continueOnError bool) error {
	s.logger.Error().Err(cause).Str("command", hookCommand).Str("origin", origin).Msg("Hook failed")

	if continueOnError {
		s.logger.Warn().Msg("Continuing despite hook failure (continue_on_error=true)")
		return nil
	}

	switch s.onFailure {
	case config.FailureContinue:
		s.logger.Warn().Msg("Continuing despite hook failure")
		return nil
	default:
		return errors.Wrapf(cause, errors.ErrHookFailed,
			"aborting apply operation due to failed hook %q from %s", hookCommand, origin)
	}
}
