// Package console adapts the machine to a raw Unix terminal for interactive single-step
// debugging: one keypress advances one scheduler tick (or one bare CPU instruction, outside the
// scheduler), printing the resulting register/flag state between steps. It is a live display, not
// a tracing or recording tool.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/helix9vm/helix9/internal/log"
)

// ErrNoTTY is returned if standard input is not a terminal: single-step debugging requires raw
// terminal I/O and has no non-interactive fallback.
var ErrNoTTY = errors.New("console: not a TTY")

// Stepper is whatever the debugger single-steps: a Scheduler tick, or a bare CPU instruction. Each
// call to Step advances exactly one unit of execution and describes the resulting state.
type Stepper interface {
	Step() (summary string, halted bool)
}

// Debugger drives a Stepper from raw keyboard input: any key advances one step; 'q' or Ctrl-C
// exits.
type Debugger struct {
	in  *os.File
	out io.Writer
	fd  int

	state *term.State

	log *log.Logger
}

// Option configures a Debugger at construction.
type Option func(*Debugger)

// WithLogger overrides the debugger's logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Debugger) { d.log = l }
}

// New puts sin into raw mode and returns a Debugger that writes step summaries to sout. Callers
// must call Restore to return the terminal to its original state.
func New(sin *os.File, sout io.Writer, opts ...Option) (*Debugger, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	d := &Debugger{
		in:    sin,
		out:   sout,
		fd:    fd,
		state: saved,
		log:   log.DefaultLogger(),
	}

	if err := setSingleByteMode(fd); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Restore returns the terminal to the state it was in before New.
func (d *Debugger) Restore() {
	_ = term.Restore(d.fd, d.state)
}

// Run reads one keypress at a time and calls step.Step() for each, printing its summary, until the
// stepper halts, the user presses 'q', or ctx is cancelled.
func (d *Debugger) Run(ctx context.Context, step Stepper) error {
	buf := make([]byte, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := d.in.Read(buf)
		if err != nil {
			return fmt.Errorf("console: read: %w", err)
		}

		if n == 0 {
			continue
		}

		switch buf[0] {
		case 'q', 0x03: // 'q' or Ctrl-C
			return nil
		}

		summary, halted := step.Step()

		fmt.Fprintf(d.out, "%s\r\n", summary)
		d.log.Debug("single step", "summary", summary, "halted", halted)

		if halted {
			return nil
		}
	}
}
