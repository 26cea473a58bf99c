// Package tty provides the raw-terminal I/O backing the nav command's
// interactive REPL: line editing over a raw terminal plus a plain
// io.Writer for disassembly output, grounded on the teacher's Console
// (cmd/internal/tty/tty.go), stripped of the vm.Keyboard/DisplayDriver
// device-update loops that package drove, which have no place once Medusa
// never executes the target binary.
package tty

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNoTTY is returned if standard input is not a terminal.
var ErrNoTTY = errors.New("tty: not a TTY")

// Console adapts a raw terminal for the nav REPL's read-a-line,
// write-a-listing loop.
type Console struct {
	fd    int
	in    *os.File
	term  *term.Terminal
	state *term.State
}

// NewConsole puts sin into raw mode and wraps it in a line-editing
// terminal with the given prompt. Callers must call Restore when done.
func NewConsole(sin, sout *os.File, prompt string) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTTY, err)
	}

	cons := &Console{
		fd:    fd,
		in:    sin,
		term:  term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{sin, sout}, prompt),
		state: saved,
	}

	if err := cons.setTerminalParams(1, 0); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	return cons, nil
}

// ReadLine blocks for one line of raw-terminal input, with the editing
// keys (backspace, history) term.Terminal already implements.
func (c *Console) ReadLine() (string, error) {
	return c.term.ReadLine()
}

// SetPrompt changes the prompt shown before the next ReadLine.
func (c *Console) SetPrompt(prompt string) { c.term.SetPrompt(prompt) }

// Writer returns the io.Writer a listing command should print to so its
// output interleaves correctly with the terminal's line editing.
func (c *Console) Writer() io.Writer { return c.term }

// Restore returns the terminal to its original state.
func (c *Console) Restore() error {
	_ = c.in.SetReadDeadline(time.Now())
	return term.Restore(c.fd, c.state)
}

// setTerminalParams tunes VMIN/VTIME the same way the teacher's Console
// does, so a blocking read returns as soon as one byte is available
// instead of waiting for a full kernel-buffer line.
func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	return c.in.SetReadDeadline(time.Time{})
}
