// Package command centralizes external process execution. Commands run
// through a configured shell; both output streams are drained
// concurrently so a chatty subprocess can never stall on a full pipe
// buffer, and stdout is captured for the caller.
package command

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/logging"
	"github.com/arthur-debert/typewriter/pkg/types"
)

// Options configures a Runner
type Options struct {
	// Shell and ShellArg run the command string, e.g. bash -c
	Shell    string
	ShellArg string

	// Confirm prompts via Confirmer before every command
	Confirm   bool
	Confirmer types.Confirmer

	// InheritStdin connects the command to the invoking process's stdin
	InheritStdin bool

	// EchoStdout / EchoStderr stream output live while capturing it
	EchoStdout bool
	EchoStderr bool

	// Stdout / Stderr are the echo targets; default os.Stdout/os.Stderr
	Stdout io.Writer
	Stderr io.Writer
}

// Invocation carries the per-call context for a command
type Invocation struct {
	// WorkDir is the working directory; empty inherits the process cwd
	WorkDir string

	// Env is added on top of the process environment
	Env map[string]string

	// Description names the command's origin in prompts and errors
	Description string
}

// Runner executes shell commands
type Runner struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a runner. Zero-value echo targets default to the
// process's own streams.
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Runner{
		opts:   opts,
		logger: logging.GetLogger("command"),
	}
}

// Run executes a command string and returns its captured stdout. A
// non-zero exit fails with the captured stderr in the error.
func (r *Runner) Run(command string, inv Invocation) (string, error) {
	if r.opts.Confirm && r.opts.Confirmer != nil {
		prompt := fmt.Sprintf("Run command %s?", command)
		if inv.Description != "" {
			prompt = fmt.Sprintf("Run command %s (%s)?", command, inv.Description)
		}
		ok, err := r.opts.Confirmer.Confirm(prompt, true)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errors.Newf(errors.ErrUserAborted, "command execution cancelled by user: %s", command)
		}
	}

	r.logger.Info().Str("command", command).Str("workdir", inv.WorkDir).Msg("Executing command")

	cmd := exec.Command(r.opts.Shell, r.opts.ShellArg, command)
	cmd.Dir = inv.WorkDir

	cmd.Env = os.Environ()
	for key, value := range inv.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	if r.opts.InheritStdin {
		cmd.Stdin = os.Stdin
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCommandFailed, "failed to capture stdout of command %s", command)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCommandFailed, "failed to capture stderr of command %s", command)
	}

	if err := cmd.Start(); err != nil {
		return "", errors.Wrapf(err, errors.ErrCommandFailed, "failed to spawn command %s", command)
	}

	// One reader per stream. A subprocess writing heavily to both
	// streams is not obligated to wait for either to be consumed, so
	// both must drain at the same time.
	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go r.drain(&wg, stdoutPipe, &stdout, r.opts.EchoStdout, r.opts.Stdout)
	go r.drain(&wg, stderrPipe, &stderr, r.opts.EchoStderr, r.opts.Stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return "", errors.Wrapf(err, errors.ErrCommandFailed,
			"command failed: %s\nstderr: %s", command, stderr.String()).
			WithDetail("stderr", stderr.String())
	}

	return stdout.String(), nil
}

// drain copies a stream into buf, optionally echoing it live
func (r *Runner) drain(wg *sync.WaitGroup, src io.Reader, buf *bytes.Buffer, echo bool, echoTo io.Writer) {
	defer wg.Done()

	dst := io.Writer(buf)
	if echo {
		dst = io.MultiWriter(echoTo, buf)
	}
	if _, err := io.Copy(dst, src); err != nil {
		r.logger.Warn().Err(err).Msg("Error draining command output stream")
	}
}
