// Package types defines the core data model shared across the
// typewriter pipeline: tracked files, variables, hook definitions, and
// the small interfaces components accept.
package types

// TrackedFile is a single source/destination pair declared in a
// typewriter configuration. Paths are absolute and normalized by the
// config loader before they enter the apply pipeline, and the struct is
// not mutated during an apply.
type TrackedFile struct {
	// Source is the file whose content gets applied
	Source string

	// Destination is the location the content is written to
	Destination string

	// Origin is the configuration file that declared this entry
	Origin string

	// SkipIfSame allows the apply to leave the destination untouched
	// when its content already matches the source
	SkipIfSame bool

	// PreHooks run before this file is applied
	PreHooks []string

	// PostHooks run after this file is applied
	PostHooks []string

	// ContinueOnHookError overrides the global hook failure strategy
	// for this file's hooks
	ContinueOnHookError bool
}

// TrackedFileList is an ordered list of tracked files. The order is
// part of the apply contract: files are processed and reported in list
// order.
type TrackedFileList []TrackedFile

// VariableKind selects how a variable's raw value turns into its final
// string.
type VariableKind string

const (
	// VariableLiteral uses the raw value directly
	VariableLiteral VariableKind = "literal"

	// VariableCommand executes the raw value as a shell command and
	// uses its captured stdout
	VariableCommand VariableKind = "command"

	// VariableEnvironment reads the raw value as the name of an
	// environment variable
	VariableEnvironment VariableKind = "environment"
)

// Variable is a named value definition from configuration. Names are
// unique across the merged input set; collisions are a configuration
// error.
type Variable struct {
	// Name identifies the variable; non-empty, no whitespace
	Name string

	// Kind is one of literal, command, environment
	Kind VariableKind

	// Value is the raw value, interpreted per Kind after any nested
	// placeholder references have been resolved
	Value string

	// Origin is the configuration file that declared this variable
	Origin string
}

// HookDefinition is a command to run at a global stage of the apply.
type HookDefinition struct {
	// Command is the shell command to execute
	Command string

	// Stage is pre_apply or post_apply; anything else is a
	// configuration error at load time
	Stage string

	// ContinueOnError overrides the global hook failure strategy for
	// this hook
	ContinueOnError bool

	// Origin is the configuration file that declared this hook; its
	// directory is the hook's working directory
	Origin string
}

// Confirmer asks the user a yes/no question with a stated default.
// Console interaction implements it; tests inject scripted answers.
type Confirmer interface {
	Confirm(prompt string, defaultYes bool) (bool, error)
}
