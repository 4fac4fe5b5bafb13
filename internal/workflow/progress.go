package workflow

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// progress shows a spinner while a long external command runs. It is a
// no-op unless output goes to a terminal.
type progress struct {
	s *spinner.Spinner
}

func startProgress(w io.Writer, enabled bool, msg string) *progress {
	if !enabled {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + msg
	s.Start()
	return &progress{s: s}
}

func (p *progress) stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
