// Package apply runs the strategy pipeline over a tracked file list.
// The pipeline is strictly sequential; stage order and file order are
// part of the observable contract.
package apply

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
	"github.com/arthur-debert/typewriter/pkg/ui/style"
)

// Options configures an Orchestrator
type Options struct {
	// Strategies execute in slice order; order is load-bearing
	Strategies []Strategy

	// Out receives the per-file applied status lines; default os.Stdout
	Out io.Writer
}

// Orchestrator composes strategies into the apply pipeline: the five
// per-strategy stages, then a commit phase for Committer strategies
type Orchestrator struct {
	strategies []Strategy
	out        io.Writer
	logger     zerolog.Logger
}

// New creates an orchestrator
func New(opts Options) *Orchestrator {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Orchestrator{
		strategies: opts.Strategies,
		out:        out,
		logger:     logging.GetLogger("apply"),
	}
}

// Apply runs the pipeline over files. Any failure halts forward
// progress and triggers OnFailure in reverse order for every strategy
// that started, best-effort; the original failure is what the caller
// sees.
func (o *Orchestrator) Apply(files types.TrackedFileList) error {
	started, err := o.run(files)
	if err == nil {
		return nil
	}

	o.logger.Error().Err(err).Msg("Apply operation failed, initiating rollback")

	for i := started - 1; i >= 0; i-- {
		if rollbackErr := o.strategies[i].OnFailure(files); rollbackErr != nil {
			// A rollback failure must not starve the remaining
			// strategies of their rollback attempt
			o.logger.Error().
				Err(rollbackErr).
				Str("strategy", fmt.Sprintf("%T", o.strategies[i])).
				Msg("Rollback step failed")
		}
	}

	return err
}

// run returns how many strategies started, so rollback never reaches a
// strategy that was not given any stage yet.
func (o *Orchestrator) run(files types.TrackedFileList) (int, error) {
	started := 0
	for _, strategy := range o.strategies {
		started++
		if err := strategy.BeforeApply(files); err != nil {
			return started, err
		}
	}

	for i := range files {
		for _, strategy := range o.strategies {
			if err := strategy.BeforeApplyFile(&files[i]); err != nil {
				return started, err
			}
		}
	}

	for i := range files {
		for _, strategy := range o.strategies {
			if err := strategy.AfterApplyFile(&files[i]); err != nil {
				return started, err
			}
		}

		fmt.Fprintln(o.out, style.AppliedLine(files[i].Source, files[i].Destination, files[i].Origin))
	}

	for _, strategy := range o.strategies {
		if err := strategy.AfterApply(files); err != nil {
			return started, err
		}
	}

	// Commit only once every AfterApply succeeded: a post-apply hook
	// failure must still find snapshots and the previous ledger in
	// place for rollback.
	for _, strategy := range o.strategies {
		committer, ok := strategy.(Committer)
		if !ok {
			continue
		}
		if err := committer.Commit(files); err != nil {
			return started, err
		}
	}

	return started, nil
}
