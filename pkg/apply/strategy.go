package apply

import (
	"github.com/arthur-debert/typewriter/pkg/types"
)

// Strategy is a pipeline participant. Each operation is optional;
// embed NoopStrategy and override the stages the strategy cares
// about. Strategies communicate only through the filesystem and the
// frozen configuration, and each must be revertible on its own: a
// committed side effect is undone by OnFailure without depending on
// any other strategy.
type Strategy interface {
	// BeforeApply runs once before any file is processed
	BeforeApply(files types.TrackedFileList) error

	// BeforeApplyFile runs per file, before any file is written
	BeforeApplyFile(file *types.TrackedFile) error

	// AfterApplyFile runs per file in the write phase
	AfterApplyFile(file *types.TrackedFile) error

	// AfterApply runs once after all files succeeded
	AfterApply(files types.TrackedFileList) error

	// OnFailure runs when any stage failed, in reverse strategy order,
	// to roll back this strategy's own effects
	OnFailure(files types.TrackedFileList) error
}

// Committer is an optional extension for strategies with effects that
// must only land once the whole apply succeeded, every AfterApply
// included. The orchestrator runs Commit after the last AfterApply;
// until then the strategy stays revertible through OnFailure.
type Committer interface {
	Commit(files types.TrackedFileList) error
}

// NoopStrategy implements every Strategy operation as a no-op
type NoopStrategy struct{}

func (NoopStrategy) BeforeApply(types.TrackedFileList) error  { return nil }
func (NoopStrategy) BeforeApplyFile(*types.TrackedFile) error { return nil }
func (NoopStrategy) AfterApplyFile(*types.TrackedFile) error  { return nil }
func (NoopStrategy) AfterApply(types.TrackedFileList) error   { return nil }
func (NoopStrategy) OnFailure(types.TrackedFileList) error    { return nil }
