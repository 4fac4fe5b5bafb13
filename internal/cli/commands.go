package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/pup/internal/config"
	"github.com/git-pkgs/pup/internal/initfiles"
	"github.com/git-pkgs/pup/internal/toolchain"
)

// maxOneDir accepts an optional project directory.
func maxOneDir(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return argError("%s takes at most one project directory, got %d arguments", cmd.Name(), len(args))
	}
	return nil
}

func (a *app) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Verify, build, test and publish a project",
		Long: `Run the full pipeline: resolve the package identity against the index,
fix missing __init__.py files, build a wheel, install and smoke test it
locally, upload it, install it back from the index and confirm the published
file matches the local build.`,
		Args: maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, args, nil)
		},
	}
	cmd.Flags().StringVar(&a.flags.dest, "dest", "", "directory that receives build_dist (default: the project)")
	return cmd
}

func (a *app) newNegotiateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "negotiate [dir]",
		Short: "Resolve a publishable identity and update the manifest",
		Args:  maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, args, func(s *config.Steps) { *s = config.Steps{} })
		},
	}
}

func (a *app) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Verify the identity, then build and test the wheel without uploading",
		Args:  maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, args, func(s *config.Steps) {
				s.Upload = false
				s.InstallRemote = false
				s.Confirm = false
			})
		},
	}
	cmd.Flags().StringVar(&a.flags.dest, "dest", "", "directory that receives build_dist (default: the project)")
	return cmd
}

func (a *app) runPipeline(cmd *cobra.Command, args []string, adjust func(*config.Steps)) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	if err := a.load(cmd, dir); err != nil {
		return err
	}
	if adjust != nil {
		adjust(&a.cfg.Steps)
	}

	p, err := a.pipeline(dir)
	if err != nil {
		return err
	}
	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	id := report.Identity
	a.printf("\n%s %s is ready", id.Name, id.Version)
	if report.Confirmation != nil {
		a.printf(" and published")
	}
	a.printf(" (%s)\n", id.PURL())
	return nil
}

func (a *app) newFixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix [dir]",
		Short: "Create missing __init__.py files",
		Args:  maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixer, err := a.fixer(cmd, args)
			if err != nil {
				return err
			}
			created, err := fixer.Fix()
			if err != nil {
				return err
			}
			for _, path := range created {
				a.printf("created %s\n", path)
			}
			a.printf("%d file(s) created, recorded in %s\n", len(created), fixer.Ledger)
			return nil
		},
	}
}

func (a *app) newUnfixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfix [dir]",
		Short: "Remove the __init__.py files created by fix",
		Args:  maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixer, err := a.fixer(cmd, args)
			if err != nil {
				return err
			}
			removed, err := fixer.Unfix()
			for _, path := range removed {
				a.printf("removed %s\n", path)
			}
			if err != nil {
				return err
			}
			a.printf("%d file(s) removed\n", len(removed))
			return nil
		},
	}
}

func (a *app) fixer(cmd *cobra.Command, args []string) (*initfiles.Fixer, error) {
	dir, err := projectDir(args)
	if err != nil {
		return nil, err
	}
	if err := a.load(cmd, dir); err != nil {
		return nil, err
	}
	layout := toolchain.NewLayout(dir, a.cfg.Dest)
	return initfiles.New(dir, layout.BuildDist, a.cfg.ExcludedFolders...), nil
}

func (a *app) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <wheel>",
		Short: "List the contents and metadata of a wheel",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return argError("inspect takes exactly one wheel file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			wc, err := toolchain.Inspect(args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", filepath.Base(wc.Path))
			for _, key := range []string{"Name", "Version", "Summary", "Requires-Python"} {
				if v := wc.Metadata[key]; v != "" {
					a.printf("  %-16s %s\n", key+":", v)
				}
			}
			a.printf("  %-16s %s\n", "Import:", wc.Module())
			a.printf("\n")
			var total uint64
			for _, e := range wc.Entries {
				a.printf("  %8d  %s\n", e.Size, e.Name)
				total += e.Size
			}
			a.printf("\n%d file(s), %d bytes uncompressed\n", len(wc.Entries), total)
			return nil
		},
	}
}
