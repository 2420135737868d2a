// Package vars resolves named variable definitions into a flat
// name→value map. Values may reference other variables through the
// configured placeholder token; resolution is depth-first with
// memoization and detects reference cycles.
package vars

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/typewriter/pkg/command"
	"github.com/arthur-debert/typewriter/pkg/config"
	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
)

// PlaceholderPattern builds the regexp matching the configured
// placeholder token. The format is taken literally except for the
// single {variable} slot, which captures the referenced name.
func PlaceholderPattern(format string) (*regexp.Regexp, error) {
	if !strings.Contains(format, "{variable}") {
		return nil, errors.Newf(errors.ErrConfigInvalid, "variable format %q has no {variable} slot", format)
	}

	escaped := regexp.QuoteMeta(format)
	pattern, err := regexp.Compile(strings.ReplaceAll(escaped, regexp.QuoteMeta("{variable}"), "([^}]+)"))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "cannot compile variable format %q", format)
	}
	return pattern, nil
}

// Resolver resolves variable lists against a placeholder format
type Resolver struct {
	pattern *regexp.Regexp
	runner  *command.Runner
	logger  zerolog.Logger
}

// New creates a resolver. The runner executes command-kind variables;
// it may be nil when the input contains none.
func New(cfg config.VariableConfig, runner *command.Runner) (*Resolver, error) {
	pattern, err := PlaceholderPattern(cfg.Format)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		pattern: pattern,
		runner:  runner,
		logger:  logging.GetLogger("vars"),
	}, nil
}

// resolution is the per-call traversal state
type resolution struct {
	index    map[string]types.Variable
	resolved map[string]string
	visiting map[string]bool
	chain    []string
}

// Resolve produces the final name→value map. Dependencies always
// resolve before their dependents; a name re-entered while still
// resolving fails with the full reference chain.
func (r *Resolver) Resolve(variables []types.Variable) (map[string]string, error) {
	index := make(map[string]types.Variable, len(variables))
	for _, v := range variables {
		if existing, ok := index[v.Name]; ok {
			return nil, errors.Newf(errors.ErrDuplicateVariable,
				"variable %s declared in %s was already declared in %s",
				v.Name, v.Origin, existing.Origin)
		}
		index[v.Name] = v
	}

	st := &resolution{
		index:    index,
		resolved: make(map[string]string, len(variables)),
		visiting: make(map[string]bool),
	}

	for _, v := range variables {
		if _, err := r.resolveOne(v.Name, st); err != nil {
			return nil, err
		}
	}

	return st.resolved, nil
}

func (r *Resolver) resolveOne(name string, st *resolution) (string, error) {
	if value, ok := st.resolved[name]; ok {
		return value, nil
	}

	if st.visiting[name] {
		chain := append(slices.Clone(st.chain), name)
		return "", errors.Newf(errors.ErrCircularDependency,
			"circular variable dependency: %s", strings.Join(chain, " -> "))
	}

	variable := st.index[name]
	st.visiting[name] = true
	st.chain = append(st.chain, name)
	defer func() {
		delete(st.visiting, name)
		st.chain = st.chain[:len(st.chain)-1]
	}()

	// Resolve every referenced variable before substituting
	for _, match := range r.pattern.FindAllStringSubmatch(variable.Value, -1) {
		ref := match[1]
		if _, ok := st.index[ref]; !ok {
			return "", errors.Newf(errors.ErrVariableUndefined,
				"variable %s referenced by variable %s (defined in %s) is undefined",
				ref, name, variable.Origin)
		}
		if _, err := r.resolveOne(ref, st); err != nil {
			return "", err
		}
	}

	substituted := r.pattern.ReplaceAllStringFunc(variable.Value, func(token string) string {
		ref := r.pattern.FindStringSubmatch(token)[1]
		return st.resolved[ref]
	})

	final, err := r.finalValue(variable, substituted)
	if err != nil {
		return "", err
	}

	r.logger.Debug().Str("variable", name).Str("kind", string(variable.Kind)).Msg("Resolved variable")
	st.resolved[name] = final
	return final, nil
}

// finalValue computes the variable's value per kind, after placeholder
// substitution has already happened.
func (r *Resolver) finalValue(variable types.Variable, value string) (string, error) {
	switch variable.Kind {
	case types.VariableLiteral:
		return value, nil

	case types.VariableCommand:
		if r.runner == nil {
			return "", errors.Newf(errors.ErrInternal,
				"no command runner available for command variable %s", variable.Name)
		}
		return r.runner.Run(value, command.Invocation{
			WorkDir:     filepath.Dir(variable.Origin),
			Description: fmt.Sprintf("for variable %s defined in %s", variable.Name, variable.Origin),
		})

	case types.VariableEnvironment:
		resolved, ok := os.LookupEnv(value)
		if !ok {
			return "", errors.Newf(errors.ErrEnvVarUndefined,
				"environment variable %s for variable %s defined in %s is not set",
				value, variable.Name, variable.Origin)
		}
		return resolved, nil

	default:
		return "", errors.Newf(errors.ErrConfigInvalid,
			"unknown variable type %q for variable %s", variable.Kind, variable.Name)
	}
}
