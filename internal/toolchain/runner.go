// Package toolchain drives the external Python tools used to build,
// install, smoke test and upload a distribution.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes an external command in dir and returns its combined
// output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// CommandError is returned when an external command exits unsuccessfully.
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(redact(e.Args), " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		lines := strings.Split(out, "\n")
		if len(lines) > 10 {
			lines = lines[len(lines)-10:]
		}
		msg += "\n" + strings.Join(lines, "\n")
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// redact hides the value following a password flag.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-p" || out[i] == "--password" {
			out[i+1] = "****"
		}
	}
	return out
}

// ExecRunner runs commands with os/exec. When Output is set the command's
// output is streamed there as well as captured.
type ExecRunner struct {
	Env    []string
	Output io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)

	var buf bytes.Buffer
	var w io.Writer = &buf
	if r.Output != nil {
		w = io.MultiWriter(&buf, r.Output)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		return buf.String(), &CommandError{Name: name, Args: args, Output: buf.String(), Err: err}
	}
	return buf.String(), nil
}
