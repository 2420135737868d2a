// Package config holds typewriter's frozen run configuration. A Config
// value is built once, before any pipeline component runs, from
// embedded defaults layered under the root configuration file. It is
// passed by reference and never mutated after Load returns.
package config

import (
	"strings"

	"github.com/arthur-debert/typewriter/pkg/errors"
)

// BackupMode selects the backup strategy for destination snapshots
type BackupMode string

const (
	// BackupCopyCurrent snapshots destinations into the metadata dir
	BackupCopyCurrent BackupMode = "copy_current"

	// BackupDisabled skips backups entirely
	BackupDisabled BackupMode = "disabled"
)

// ChangeMode selects the change-detection strategy
type ChangeMode string

const (
	// ChangeFingerprint compares content fingerprints against the ledger
	ChangeFingerprint ChangeMode = "fingerprint"

	// ChangeDisabled skips change detection
	ChangeDisabled ChangeMode = "disabled"
)

// PermissionMode selects the permission-guard strategy
type PermissionMode string

const (
	// PermissionCheckOnly verifies access, never creates files
	PermissionCheckOnly PermissionMode = "check_only"

	// PermissionCreateIfMissing creates missing destinations
	PermissionCreateIfMissing PermissionMode = "create_if_missing"

	// PermissionDisabled skips permission checks
	PermissionDisabled PermissionMode = "disabled"
)

// SubstitutionMode selects the variable-substitution strategy
type SubstitutionMode string

const (
	// SubstitutionReplace rewrites placeholders while copying
	SubstitutionReplace SubstitutionMode = "replace_variables"

	// SubstitutionDisabled copies bytes verbatim
	SubstitutionDisabled SubstitutionMode = "disabled"
)

// FailureStrategy is the global policy for failing hooks
type FailureStrategy string

const (
	// FailureAbort stops the apply and triggers rollback
	FailureAbort FailureStrategy = "abort"

	// FailureContinue logs the failure and proceeds
	FailureContinue FailureStrategy = "continue"
)

// Config is the frozen run configuration
type Config struct {
	Apply     ApplyConfig    `koanf:"apply"`
	Variables VariableConfig `koanf:"variables"`
	Hooks     HooksConfig    `koanf:"hooks"`
	Commands  CommandConfig  `koanf:"commands"`
}

// ApplyConfig configures the apply pipeline stages
type ApplyConfig struct {
	// AutoSkipUnableApply fails immediately on inaccessible files
	// instead of prompting
	AutoSkipUnableApply bool `koanf:"auto_skip_unable_apply"`

	// AutoConfirmCreation creates missing destinations without a prompt
	AutoConfirmCreation bool `koanf:"auto_confirm_file_creation"`

	// MetadataDir holds the ledger and backup snapshots; resolved to an
	// absolute path against the root config directory during Load
	MetadataDir string `koanf:"metadata_dir"`

	// Backup selects the backup strategy
	Backup BackupMode `koanf:"backup_strategy"`

	// BackupPathDelim replaces path separators in snapshot names
	BackupPathDelim string `koanf:"backup_path_delim"`

	// CleanupBackups deletes snapshots after a successful apply
	CleanupBackups bool `koanf:"cleanup_backups"`

	// LedgerFileName is the change-detection store inside MetadataDir
	LedgerFileName string `koanf:"ledger_file_name"`

	// ChangeDetection selects the change-detection strategy
	ChangeDetection ChangeMode `koanf:"change_detection"`

	// SkipSameContent is the default for tracked files that do not set
	// skip_if_same themselves
	SkipSameContent bool `koanf:"skip_same_content"`

	// SkipLedgerNew suppresses the per-file prompt for destinations the
	// ledger has never seen, once the ledger itself exists
	SkipLedgerNew bool `koanf:"skip_ledger_new"`

	// Permissions selects the permission-guard strategy
	Permissions PermissionMode `koanf:"permission_strategy"`
}

// VariableConfig configures variable resolution and substitution
type VariableConfig struct {
	// Format is the placeholder token, with {variable} as the single
	// name slot, e.g. $TYPEWRITER{{variable}} matches $TYPEWRITER{name}
	Format string `koanf:"format"`

	// Substitution selects the substitution strategy
	Substitution SubstitutionMode `koanf:"substitution"`

	// Shell runs command-kind variables
	Shell string `koanf:"shell"`

	// ShellArg makes Shell execute a command string, e.g. -c
	ShellArg string `koanf:"shell_arg"`

	// ConfirmCommands prompts before running command-kind variables
	ConfirmCommands bool `koanf:"confirm_commands"`
}

// HooksConfig configures hook execution
type HooksConfig struct {
	// Enabled toggles all hook execution
	Enabled bool `koanf:"enabled"`

	// OnFailure is the global policy when a hook fails
	OnFailure FailureStrategy `koanf:"failure_strategy"`
}

// CommandConfig configures hook command execution
type CommandConfig struct {
	Shell           string `koanf:"shell"`
	ShellArg        string `koanf:"shell_arg"`
	ConfirmCommands bool   `koanf:"confirm_commands"`

	// InheritStdin lets commands read the invoking process's stdin
	InheritStdin bool `koanf:"inherit_stdin"`

	// EchoStdout / EchoStderr stream command output live while it is
	// also being captured
	EchoStdout bool `koanf:"echo_stdout"`
	EchoStderr bool `koanf:"echo_stderr"`
}

// Validate checks every enum-valued field and structural requirement.
// It runs once, inside Load, before the config freezes.
func (c *Config) Validate() error {
	switch c.Apply.Backup {
	case BackupCopyCurrent, BackupDisabled:
	default:
		return errors.Newf(errors.ErrConfigInvalid, "unknown backup_strategy %q", c.Apply.Backup)
	}

	switch c.Apply.ChangeDetection {
	case ChangeFingerprint, ChangeDisabled:
	default:
		return errors.Newf(errors.ErrConfigInvalid, "unknown change_detection %q", c.Apply.ChangeDetection)
	}

	switch c.Apply.Permissions {
	case PermissionCheckOnly, PermissionCreateIfMissing, PermissionDisabled:
	default:
		return errors.Newf(errors.ErrConfigInvalid, "unknown permission_strategy %q", c.Apply.Permissions)
	}

	switch c.Variables.Substitution {
	case SubstitutionReplace, SubstitutionDisabled:
	default:
		return errors.Newf(errors.ErrConfigInvalid, "unknown substitution %q", c.Variables.Substitution)
	}

	switch c.Hooks.OnFailure {
	case FailureAbort, FailureContinue:
	default:
		return errors.Newf(errors.ErrConfigInvalid, "unknown failure_strategy %q", c.Hooks.OnFailure)
	}

	if !strings.Contains(c.Variables.Format, "{variable}") {
		return errors.Newf(errors.ErrConfigInvalid,
			"variable format %q has no {variable} slot", c.Variables.Format)
	}

	if c.Apply.BackupPathDelim == "" {
		return errors.New(errors.ErrConfigInvalid, "backup_path_delim cannot be empty")
	}

	if c.Apply.LedgerFileName == "" {
		return errors.New(errors.ErrConfigInvalid, "ledger_file_name cannot be empty")
	}

	return nil
}
