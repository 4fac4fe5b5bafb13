package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/git-pkgs/pup/internal/manifest"
	"github.com/git-pkgs/pup/internal/toolchain"
	"github.com/git-pkgs/pup/internal/version"
	"github.com/git-pkgs/pup/internal/workflow"
	"github.com/git-pkgs/pup/prompt"
	"github.com/git-pkgs/pup/verify"
)

// Exit codes returned by Execute.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitUnresolved   = 2
	ExitInvalidInput = 3
	ExitUnavailable  = 4
	ExitToolFailure  = 5
	ExitInterrupted  = 130
)

// Category groups errors for display.
type Category int

const (
	Runtime Category = iota
	Argument
	Configuration
	Verification
	Conflict
	Tool
	Interrupted
)

func (c Category) String() string {
	switch c {
	case Argument:
		return "Argument Error"
	case Configuration:
		return "Configuration Error"
	case Verification:
		return "Verification Unavailable"
	case Conflict:
		return "Identity Conflict"
	case Tool:
		return "Tool Error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Runtime Error"
	}
}

// CLIError is an error prepared for the terminal.
type CLIError struct {
	Category    Category
	Code        int
	Err         error
	Remediation []string
}

func (e *CLIError) Error() string {
	return e.Err.Error()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// argError marks err as a usage problem.
func argError(format string, args ...any) error {
	return &CLIError{Category: Argument, Code: ExitInvalidInput, Err: fmt.Errorf(format, args...)}
}

// classify maps an error from any layer to its category, exit code and
// remediation hints.
func classify(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var unparseable *version.UnparseableError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, prompt.ErrInterrupted):
		return &CLIError{Category: Interrupted, Code: ExitInterrupted, Err: err}

	case errors.Is(err, verify.ErrVerificationUnavailable):
		return &CLIError{Category: Verification, Code: ExitUnavailable, Err: err, Remediation: []string{
			"Check your network connection and the index URL (index.primary_url / index.staging_url)",
			"Retry later, or raise index.timeout and index.retries",
		}}

	case errors.Is(err, verify.ErrOwnershipConflict):
		return &CLIError{Category: Conflict, Code: ExitUnresolved, Err: err, Remediation: []string{
			"Choose a different package name in your manifest",
			"Or set owner to the account that owns the project",
		}}

	case errors.Is(err, verify.ErrVersionConflict):
		return &CLIError{Category: Conflict, Code: ExitUnresolved, Err: err, Remediation: []string{
			"Bump the version in your manifest",
			"Or rerun with --auto-increment",
		}}

	case errors.Is(err, verify.ErrUnresolved):
		return &CLIError{Category: Conflict, Code: ExitUnresolved, Err: err}

	case errors.As(err, &unparseable):
		return &CLIError{Category: Argument, Code: ExitInvalidInput, Err: err, Remediation: []string{
			"Use a dotted numeric version such as 1.2.0",
		}}

	case errors.Is(err, toolchain.ErrMissingToken):
		return &CLIError{Category: Configuration, Code: ExitInvalidInput, Err: err, Remediation: []string{
			"Create an API token on the index and export it in the variable named by token_env",
			"Or disable uploading with steps.upload: false",
		}}

	case errors.Is(err, workflow.ErrNoOwner):
		return &CLIError{Category: Configuration, Code: ExitInvalidInput, Err: err, Remediation: []string{
			"Pass --owner <username> or add 'owner: <username>' to .pup.yml",
		}}

	case errors.Is(err, workflow.ErrDirtyWorktree):
		return &CLIError{Category: Configuration, Code: ExitInvalidInput, Err: err, Remediation: []string{
			"Commit or stash your changes, or set require_clean: false",
		}}

	case errors.Is(err, manifest.ErrNotFound):
		return &CLIError{Category: Configuration, Code: ExitInvalidInput, Err: err}

	case errors.Is(err, manifest.ErrNonLiteral):
		return &CLIError{Category: Configuration, Code: ExitInvalidInput, Err: err, Remediation: []string{
			"Write name= and version= in setup.py as quoted strings",
			"Or move the metadata to pyproject.toml or setup.cfg",
		}}

	case isToolError(err):
		return &CLIError{Category: Tool, Code: ExitToolFailure, Err: err, Remediation: []string{
			"Check that python, pip, build and twine are installed for the configured interpreter",
		}}
	}
	return &CLIError{Category: Runtime, Code: ExitFailure, Err: err}
}

func isToolError(err error) bool {
	var cmdErr *toolchain.CommandError
	return errors.As(err, &cmdErr) || errors.Is(err, toolchain.ErrNoWheel)
}

var (
	errorLabel  = color.New(color.FgRed, color.Bold).SprintFunc()
	errorMsg    = color.New(color.FgRed).SprintFunc()
	fixLabel    = color.New(color.FgGreen, color.Bold).SprintFunc()
	bullet      = color.New(color.FgGreen).SprintFunc()
	categoryFmt = color.New(color.FgYellow).SprintFunc()
)

// FormatError renders e for the terminal.
func FormatError(e *CLIError) string {
	var sb strings.Builder
	sb.WriteString(errorLabel("Error"))
	sb.WriteString(" [")
	sb.WriteString(categoryFmt(e.Category.String()))
	sb.WriteString("]: ")
	sb.WriteString(errorMsg(e.Err.Error()))
	sb.WriteString("\n")

	if len(e.Remediation) > 0 {
		sb.WriteString("\n")
		sb.WriteString(fixLabel("To fix this:"))
		sb.WriteString("\n")
		for _, r := range e.Remediation {
			sb.WriteString("  ")
			sb.WriteString(bullet("•"))
			sb.WriteString(" ")
			sb.WriteString(r)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
