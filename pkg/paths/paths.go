// Package paths normalizes user-supplied paths before they enter the
// apply pipeline: tilde expansion, environment expansion, and
// absolutization.
package paths

import (
	"os"
	"path/filepath"
)

// Expand expands environment variables and then ~ in a path. The
// order means "~/$SUBDIR/rc" expands both, same as any other path.
func Expand(path string) string {
	expanded := os.ExpandEnv(path)

	if expanded == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return home
	}

	if len(expanded) > 1 && expanded[0] == '~' && expanded[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, expanded[2:])
	}

	return expanded
}

// Clean expands and absolutizes a path against the current working
// directory. All paths handed to the pipeline go through here (or
// CleanRelativeTo) exactly once, in the config loader.
func Clean(path string) (string, error) {
	expanded := Expand(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// CleanRelativeTo expands a path and absolutizes it against base when
// it is relative. Config-relative paths (metadata dir, tracked file
// sources) resolve against the directory of the config that named
// them.
func CleanRelativeTo(base, path string) (string, error) {
	expanded := Expand(path)
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Clean(filepath.Join(base, expanded)), nil
}
