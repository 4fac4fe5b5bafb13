// Package cli implements the pup command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile    string
	debug         bool
	staging       bool
	owner         string
	autoIncrement bool
	maxRounds     int
	prompt        string
	dest          string
}

// NewRootCmd builds the command tree reading from in and writing to out
// and errOut.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "pup",
		Short: "Verify package identities and publish Python packages",
		Long: `pup checks that a package name, owner and version can be published to
PyPI or Test PyPI, negotiates corrections when they cannot, and then runs the
build, test and upload pipeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "config file (default ~/.config/pup/config.yml)")
	pf.BoolVar(&a.flags.debug, "debug", false, "enable debug logging")
	pf.BoolVar(&a.flags.staging, "staging", false, "use Test PyPI instead of PyPI")
	pf.StringVar(&a.flags.owner, "owner", "", "index username that must own the package")
	pf.BoolVar(&a.flags.autoIncrement, "auto-increment", false, "bump the version automatically when it is taken")
	pf.IntVar(&a.flags.maxRounds, "max-rounds", 5, "maximum correction rounds during negotiation")
	pf.StringVar(&a.flags.prompt, "prompt", "terminal", "how to ask for corrections: terminal, dialog or none")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &CLIError{Category: Argument, Code: ExitInvalidInput, Err: err,
			Remediation: []string{"Run '" + cmd.CommandPath() + " --help' for usage"}}
	})
	a.root = root

	root.AddCommand(
		a.newRunCmd(),
		a.newNegotiateCmd(),
		a.newBuildCmd(),
		a.newCheckCmd(),
		a.newFixCmd(),
		a.newUnfixCmd(),
		a.newInspectCmd(),
		a.newConfigCmd(),
		a.newVersionCmd(),
	)
	return root
}

// Execute runs pup with the process's arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd(os.Stdin, os.Stdout, os.Stderr), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, errOut io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	cliErr := classify(err)
	_, _ = fmt.Fprint(errOut, FormatError(cliErr))
	return cliErr.Code
}
