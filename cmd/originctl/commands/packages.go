package commands

import (
	"github.com/dyluth/origin/pkg/origin"
	"github.com/spf13/cobra"
)

var (
	installLocal        bool
	installFileOverride bool
	installIdempotent   bool

	uninstallAll        bool
	uninstallIdempotent bool
)

var installCmd = &cobra.Command{
	Use:   "install PKG...",
	Short: "Request layered packages",
	Long: `Request packages to be layered on top of the base.

Repo packages and capabilities are given by name. Local packages are given as
SHA256:NAME-VERSION-RELEASE.ARCH together with --local, or
--local-file-override for local packages whose files may replace base content.

Examples:
  originctl --file deploy.origin install htop vim
  originctl --file deploy.origin install --local 3c2a...e1:hello-2.12-1.x86_64`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall PKG...",
	Short: "Remove layered packages",
	Long: `Remove layered packages.

Each argument may be a repo package or capability exactly as requested, the
NAME-VERSION-RELEASE.ARCH of a local package, or just the name of a local package.

Examples:
  originctl --file deploy.origin uninstall htop
  originctl --file deploy.origin uninstall hello-2.12-1.x86_64
  originctl --file deploy.origin uninstall --all`,
	RunE: runUninstall,
}

func init() {
	installCmd.Flags().BoolVar(&installLocal, "local", false, "Arguments are local packages (SHA256:NEVRA)")
	installCmd.Flags().BoolVar(&installFileOverride, "local-file-override", false, "Arguments are local file-override packages (SHA256:NEVRA)")
	installCmd.Flags().BoolVar(&installIdempotent, "idempotent", false, "Do nothing if a package is already requested")
	installCmd.MarkFlagsMutuallyExclusive("local", "local-file-override")

	uninstallCmd.Flags().BoolVar(&uninstallAll, "all", false, "Remove all layered packages")
	uninstallCmd.Flags().BoolVar(&uninstallIdempotent, "idempotent", false, "Do nothing if a package is not requested")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	add := func(o *origin.Origin) (bool, error) {
		switch {
		case installLocal:
			return o.AddLocalPackages(args, installIdempotent)
		case installFileOverride:
			return o.AddLocalFileOverridePackages(args, installIdempotent)
		default:
			return o.AddPackages(args, installIdempotent)
		}
	}
	return mutate("install", add, "Requested %s\n", plural(len(args), "package"))
}

func runUninstall(cmd *cobra.Command, args []string) error {
	if uninstallAll {
		if len(args) > 0 {
			return cobra.NoArgs(cmd, args)
		}
		return mutate("uninstall", func(o *origin.Origin) (bool, error) {
			return o.RemoveAllPackages()
		}, "Removed all layered packages\n")
	}

	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		return err
	}
	return mutate("uninstall", func(o *origin.Origin) (bool, error) {
		return o.RemovePackages(args, uninstallIdempotent)
	}, "Removed %s\n", plural(len(args), "package"))
}
