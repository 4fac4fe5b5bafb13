package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.printf("pup %s\n", Version)
			a.printf("commit: %s\n", Commit)
			a.printf("built: %s\n", BuildDate)
			a.printf("go: %s\n", runtime.Version())
			a.printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
