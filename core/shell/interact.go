package shell

import (
	"errors"
	"io"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/rsh/core/vos"
)

// LineReader reads interactive input a line at a time.
type LineReader interface {
	// Readline returns the next line without its newline. It returns io.EOF
	// when input ends and readline.ErrInterrupt if the line was abandoned.
	Readline() (string, error)
	// SetPrompt sets the prompt shown before the next line.
	SetPrompt(prompt string)
	Close() error
}

var _ LineReader = (*readline.Instance)(nil)

// NewReadline creates a line editor on the virtual OS's standard streams.
// isTerminal reports whether those streams are attached to a terminal.
func NewReadline(virtualOS vos.VOS, isTerminal func() bool) (*readline.Instance, error) {
	cfg := &readline.Config{
		Stdin:          readline.NewCancelableStdin(virtualOS.Stdin()),
		Stdout:         virtualOS.Stdout(),
		Stderr:         virtualOS.Stderr(),
		FuncIsTerminal: isTerminal,
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	return readline.NewEx(cfg)
}

// Interact runs lines until input ends or exit is run. The prompt is updated
// before every line.
func (s *Shell) Interact(lines LineReader) error {
	if lines == nil {
		return errors.New("no interactive input available")
	}

	for !s.quit {
		lines.SetPrompt(s.PromptString())
		line, err := lines.Readline()

		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			// Interrupt clears line.
			continue
		case err != nil:
			return err
		}

		s.ExecuteAndReport(line)
	}
	return nil
}
