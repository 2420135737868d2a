package command

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/typewriter/pkg/errors"
	"github.com/arthur-debert/typewriter/pkg/ui/confirm"
)

func newTestRunner(opts Options) *Runner {
	if opts.Shell == "" {
		opts.Shell = "sh"
		opts.ShellArg = "-c"
	}
	return New(opts)
}

func TestRunCapturesStdout(t *testing.T) {
	r := newTestRunner(Options{})

	out, err := r.Run("echo hello", Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestRunStdoutNotTrimmed(t *testing.T) {
	r := newTestRunner(Options{})

	out, err := r.Run("printf '  padded  '", Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "  padded  ", out)
}

func TestRunFailureIncludesStderr(t *testing.T) {
	r := newTestRunner(Options{})

	_, err := r.Run("echo boom >&2; exit 3", Invocation{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
	assert.Contains(t, err.Error(), "boom")
}

func TestRunWorkDir(t *testing.T) {
	tmpDir := t.TempDir()
	r := newTestRunner(Options{})

	out, err := r.Run("pwd", Invocation{WorkDir: tmpDir})
	require.NoError(t, err)
	assert.Equal(t, tmpDir, strings.TrimSpace(out))
}

func TestRunEnv(t *testing.T) {
	r := newTestRunner(Options{})

	out, err := r.Run("echo $TYPEWRITER_FILE_SRC", Invocation{
		Env: map[string]string{"TYPEWRITER_FILE_SRC": "/src/file"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/src/file\n", out)
}

func TestRunDrainsBothStreams(t *testing.T) {
	// Write well past the 64KB pipe buffer on both streams. A runner
	// reading the streams sequentially would deadlock here.
	r := newTestRunner(Options{})

	script := `i=0; while [ $i -lt 6000 ]; do
  echo "stdout line $i"
  echo "stderr line $i" >&2
  i=$((i+1))
done`

	out, err := r.Run(script, Invocation{})
	require.NoError(t, err)
	assert.Equal(t, 6000, strings.Count(out, "\n"))
	assert.Contains(t, out, "stdout line 5999")
	assert.NotContains(t, out, "stderr")
}

func TestRunEcho(t *testing.T) {
	var echoOut, echoErr bytes.Buffer
	r := newTestRunner(Options{
		EchoStdout: true,
		EchoStderr: true,
		Stdout:     &echoOut,
		Stderr:     &echoErr,
	})

	out, err := r.Run("echo visible; echo noisy >&2", Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "visible\n", out)
	assert.Equal(t, "visible\n", echoOut.String())
	assert.Equal(t, "noisy\n", echoErr.String())
}

func TestRunConfirm(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		r := newTestRunner(Options{
			Confirm:   true,
			Confirmer: confirm.Auto{Answer: false},
		})

		_, err := r.Run("echo never runs", Invocation{Description: "for a test"})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrUserAborted))
	})

	t.Run("accepted", func(t *testing.T) {
		r := newTestRunner(Options{
			Confirm:   true,
			Confirmer: confirm.Auto{Answer: true},
		})

		out, err := r.Run("echo ran", Invocation{})
		require.NoError(t, err)
		assert.Equal(t, "ran\n", out)
	})
}
