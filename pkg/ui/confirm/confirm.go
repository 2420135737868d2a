// Package confirm provides console yes/no confirmation dialogs.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/typewriter/pkg/errors"
)

// Console implements types.Confirmer by prompting on a terminal
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console confirmer on stdin/stdout
func NewConsole() *Console {
	return &Console{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
}

// NewConsoleWith creates a console confirmer on the given streams
func NewConsoleWith(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm asks a yes/no question with a stated default. An empty
// answer picks the default.
func (c *Console) Confirm(prompt string, defaultYes bool) (bool, error) {
	marker := "[y/N]"
	if defaultYes {
		marker = "[Y/n]"
	}

	fmt.Fprintf(c.out, "%s %s: ", prompt, marker)

	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, errors.ErrInternal, "failed to read confirmation input")
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" {
		return defaultYes, nil
	}
	return answer == "y" || answer == "yes", nil
}

// Auto implements types.Confirmer with a fixed answer, used by the
// --yes flag and anywhere prompting is disabled.
type Auto struct {
	Answer bool
}

// Confirm returns the fixed answer without prompting
func (a Auto) Confirm(prompt string, defaultYes bool) (bool, error) {
	return a.Answer, nil
}
