package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/pyrig/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [targets...]",
		Short: "Run pipeline targets and their dependencies",
		Long: "Run pipeline targets and their dependencies.\n\nTargets: " +
			strings.Join(c.app.Targets(), ", "),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			return c.app.Run(cmd.Context(), args, options(cmd))
		},
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return c.app.Targets(), cobra.ShellCompDirectiveNoFileComp
		},
	}
}

func (c *CLI) newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile requirement specs into locked manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			upgrade, _ := cmd.Flags().GetBool("upgrade")
			packages, _ := cmd.Flags().GetStringSlice("upgrade-package")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return c.app.Compile(cmd.Context(), options(cmd), app.CompileOptions{
				Upgrade:         upgrade,
				UpgradePackages: packages,
				DryRun:          dryRun,
			})
		},
	}
	cmd.Flags().BoolP("upgrade", "U", false, "Ignore existing pins and select the newest allowed releases")
	cmd.Flags().StringSliceP("upgrade-package", "P", nil, "Upgrade only the named packages")
	cmd.Flags().BoolP("dry-run", "n", false, "Print the manifests instead of writing them")
	return cmd
}

func (c *CLI) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Make the environment match the locked manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return c.app.Sync(cmd.Context(), options(cmd), dryRun)
		},
	}
	cmd.Flags().BoolP("dry-run", "n", false, "Print the plan without changing the environment")
	return cmd
}

func (c *CLI) newPackageCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "package <wheel|pex>",
		Short:     "Build a distributable artifact",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"wheel", "pex"},
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := c.app.Package(cmd.Context(), options(cmd), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), artifact.Path)
			return err
		},
	}
}

func (c *CLI) newGateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Run the formatting, linting and test stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			staged, _ := cmd.Flags().GetBool("staged")
			return c.app.Gate(cmd.Context(), options(cmd), staged)
		},
	}
	cmd.Flags().Bool("staged", false, "Check only staged Python files and restage fixes")
	return cmd
}

func (c *CLI) newHookCmd() *cobra.Command {
	hook := &cobra.Command{
		Use:   "hook",
		Short: "Manage the pre-commit hook",
	}
	hook.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install the pre-commit hook that runs the gate on staged files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.InstallHook(cmd.Context(), options(cmd))
		},
	})
	return hook
}
