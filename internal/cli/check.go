package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/pup/internal/core"
	"github.com/git-pkgs/pup/internal/manifest"
	"github.com/git-pkgs/pup/verify"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
)

func (a *app) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <name|name==version|purl>...",
		Short: "Report the publish status of one or more identities",
		Long: `Query the index once for each identity and report whether it is new,
owned by the configured owner, and whether its version is still free.
Identities without a version are checked as ` + manifest.DefaultVersion + `.`,
		Example: `  pup check acme-widget==1.2.0 --owner alice
  pup check pkg:pypi/acme-widget@1.2.0 other-package --staging`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return argError("check needs at least one package name or purl")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := a.load(cmd, cwd); err != nil {
				return err
			}
			target, err := a.target()
			if err != nil {
				return err
			}

			ids := make([]verify.Identity, 0, len(args))
			for _, arg := range args {
				id, err := parseIdentityArg(arg, a.cfg.Owner, target)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			v, err := a.verifier()
			if err != nil {
				return err
			}
			return a.report(v.CheckAll(cmd.Context(), ids))
		},
	}
}

// parseIdentityArg accepts name, name==version or a pypi purl.
func parseIdentityArg(arg, owner string, target verify.Target) (verify.Identity, error) {
	var id verify.Identity
	if core.IsPURL(arg) {
		var err error
		id, err = verify.IdentityFromPURL(arg, owner, target)
		if err != nil {
			return id, argError("%v", err)
		}
	} else {
		name, ver, _ := strings.Cut(arg, "==")
		id = verify.Identity{Name: strings.TrimSpace(name), Owner: owner, Version: strings.TrimSpace(ver), Target: target}
	}
	if id.Name == "" {
		return id, argError("empty package name in %q", arg)
	}
	if id.Version == "" {
		id.Version = manifest.DefaultVersion
	}
	return id, nil
}

func (a *app) report(results []verify.CheckResult) error {
	if a.cfg.Owner == "" {
		a.logger.Warn("no owner configured; existing projects will report as not owned")
	}
	var firstErr error
	blocked := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			a.printf("%s %s\n    %v\n", failMark("✗"), r.Identity.PURL(), r.Err)
			if firstErr == nil {
				firstErr = r.Err
			}
		case r.Status.Publishable():
			a.printf("%s %s\n    %s\n", okMark("✓"), r.Identity.PURL(), r.Status.Message)
		default:
			a.printf("%s %s\n    %s\n", warnMark("!"), r.Identity.PURL(), r.Status.Message)
			blocked++
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if blocked > 0 {
		return &CLIError{
			Category: Conflict,
			Code:     ExitUnresolved,
			Err:      fmt.Errorf("%d of %d identities cannot be published as given: %w", blocked, len(results), verify.ErrUnresolved),
		}
	}
	return nil
}
