// Package prompt provides the ways pup asks a human for a correction during
// identity negotiation: a plain terminal line reader, a full-screen dialog,
// and non-interactive stand-ins for automated runs.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/git-pkgs/pup/verify"
)

// ErrInterrupted is returned when the user aborts a prompt.
var ErrInterrupted = errors.New("prompt interrupted")

// Kind names a prompter implementation in configuration.
type Kind string

const (
	KindTerminal Kind = "terminal"
	KindDialog   Kind = "dialog"
	KindNone     Kind = "none"
)

// New returns the prompter for kind reading from in and writing to out.
// A dialog falls back to the terminal prompter when out is not a terminal.
func New(kind Kind, in io.Reader, out io.Writer) (verify.Prompter, error) {
	switch kind {
	case "", KindTerminal:
		return NewTerminal(in, out), nil
	case KindDialog:
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return NewDialog(in, out), nil
		}
		return NewTerminal(in, out), nil
	case KindNone:
		return None{}, nil
	}
	return nil, fmt.Errorf("unknown prompt kind %q (want terminal, dialog or none)", kind)
}

// Terminal asks questions on a line-oriented terminal.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Prompt writes question and reads one line. End of input is a blank answer.
func (t *Terminal) Prompt(ctx context.Context, question string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, _ = color.New(color.FgCyan, color.Bold).Fprint(t.out, "? ")
	_, _ = fmt.Fprint(t.out, question)

	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if errors.Is(err, io.EOF) && line == "" {
		_, _ = fmt.Fprintln(t.out)
	}
	return strings.TrimSpace(line), nil
}

// Scripted answers from a fixed list, then blank. It records every question.
type Scripted struct {
	mu        sync.Mutex
	answers   []string
	Questions []string
}

func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) Prompt(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Questions = append(s.Questions, question)
	if len(s.answers) == 0 {
		return "", nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

// None never supplies a correction.
type None struct{}

func (None) Prompt(ctx context.Context, question string) (string, error) {
	return "", nil
}
