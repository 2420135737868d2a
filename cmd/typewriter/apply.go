package typewriter

import (
	"github.com/spf13/cobra"

	"github.com/arthur-debert/typewriter/pkg/apply"
	"github.com/arthur-debert/typewriter/pkg/apply/backup"
	"github.com/arthur-debert/typewriter/pkg/apply/changes"
	"github.com/arthur-debert/typewriter/pkg/apply/hooks"
	"github.com/arthur-debert/typewriter/pkg/apply/permissions"
	"github.com/arthur-debert/typewriter/pkg/apply/substitute"
	"github.com/arthur-debert/typewriter/pkg/command"
	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
	"github.com/arthur-debert/typewriter/pkg/ui/confirm"
	"github.com/arthur-debert/typewriter/pkg/vars"
)

func newApplyCmd() *cobra.Command {
	var (
		configPath string
		assumeYes  bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply all tracked files to their destinations",
		Long: `Apply reads the root configuration file, resolves variables, and runs
every tracked file through the pipeline: permission checks, variable
substitution, change detection, backups, and hooks.

On failure, strategies roll back in reverse order and the original
error is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(configPath, assumeYes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "typewriter.toml", "Root configuration file")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Assume yes on every prompt")

	return cmd
}

func runApply(configPath string, assumeYes bool) error {
	logger := logging.GetLogger("cmd.apply")

	cfg, doc, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Info().
		Str("config", doc.Root).
		Int("files", len(doc.Files)).
		Int("variables", len(doc.Variables)).
		Int("hooks", len(doc.Hooks)).
		Msg("Configuration loaded")

	var confirmer types.Confirmer
	if assumeYes {
		confirmer = confirm.Auto{Answer: true}
	} else {
		confirmer = confirm.NewConsole()
	}

	varRunner := command.New(command.Options{
		Shell:     cfg.Variables.Shell,
		ShellArg:  cfg.Variables.ShellArg,
		Confirm:   cfg.Variables.ConfirmCommands,
		Confirmer: confirmer,
	})

	resolver, err := vars.New(cfg.Variables, varRunner)
	if err != nil {
		return err
	}
	varMap, err := resolver.Resolve(doc.Variables)
	if err != nil {
		return err
	}

	hookRunner := command.New(command.Options{
		Shell:        cfg.Commands.Shell,
		ShellArg:     cfg.Commands.ShellArg,
		Confirm:      cfg.Commands.ConfirmCommands,
		Confirmer:    confirmer,
		InheritStdin: cfg.Commands.InheritStdin,
		EchoStdout:   cfg.Commands.EchoStdout,
		EchoStderr:   cfg.Commands.EchoStderr,
	})

	substituteStrategy, err := substitute.New(cfg.Variables, varMap)
	if err != nil {
		return err
	}
	hooksStrategy, err := hooks.New(cfg.Hooks, doc.Hooks, hookRunner)
	if err != nil {
		return err
	}

	orchestrator := apply.New(apply.Options{
		Strategies: []apply.Strategy{
			permissions.New(cfg.Apply, confirmer),
			substituteStrategy,
			changes.New(cfg.Apply, confirmer),
			backup.New(cfg.Apply),
			hooksStrategy,
		},
	})

	return orchestrator.Apply(doc.Files)
}
