package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pup/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect pup configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := a.load(cmd, cwd); err != nil {
				return err
			}
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = a.out.Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := config.UserConfigPath()
			if err != nil {
				return err
			}
			a.printf("user:    %s\n", user)
			a.printf("project: %s\n", config.ProjectConfigName)
			return nil
		},
	})
	return cmd
}
