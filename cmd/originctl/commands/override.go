package commands

import (
	"fmt"

	"github.com/dyluth/origin/pkg/origin"
	"github.com/spf13/cobra"
)

var overrideResetAll bool

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage base package overrides",
	Long: `Remove base packages, replace them with local packages, or reset overrides.

Examples:
  originctl --file deploy.origin override remove firefox
  originctl --file deploy.origin override replace 3c2a...e1:kernel-6.5.0-1.x86_64
  originctl --file deploy.origin override reset firefox
  originctl --file deploy.origin override reset --all`,
}

var overrideRemoveCmd = &cobra.Command{
	Use:   "remove NAME...",
	Short: "Remove base packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate("override remove", changedOnly(func(o *origin.Origin) error {
			return o.AddOverrideRemove(args)
		}), "Overrode %s\n", plural(len(args), "base package"))
	},
}

var overrideReplaceCmd = &cobra.Command{
	Use:   "replace SHA256:NEVRA...",
	Short: "Replace base packages with local packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate("override replace", changedOnly(func(o *origin.Origin) error {
			return o.AddOverrideReplaceLocal(args)
		}), "Replaced %s\n", plural(len(args), "base package"))
	},
}

var overrideResetCmd = &cobra.Command{
	Use:   "reset NAME|NEVRA...",
	Short: "Reset overrides",
	RunE:  runOverrideReset,
}

func init() {
	overrideResetCmd.Flags().BoolVar(&overrideResetAll, "all", false, "Reset all overrides")

	overrideCmd.AddCommand(overrideRemoveCmd)
	overrideCmd.AddCommand(overrideReplaceCmd)
	overrideCmd.AddCommand(overrideResetCmd)
	rootCmd.AddCommand(overrideCmd)
}

func runOverrideReset(cmd *cobra.Command, args []string) error {
	if overrideResetAll {
		if len(args) > 0 {
			return cobra.NoArgs(cmd, args)
		}
		return mutate("override reset", func(o *origin.Origin) (bool, error) {
			return o.RemoveAllOverrides()
		}, "Reset all overrides\n")
	}

	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		return err
	}
	return mutate("override reset", func(o *origin.Origin) (bool, error) {
		for _, pkg := range args {
			removed, err := o.RemoveOverrideRemove(pkg)
			if err != nil {
				return false, err
			}
			if removed {
				continue
			}
			replaced, err := o.RemoveOverrideReplaceLocal(pkg)
			if err != nil {
				return false, err
			}
			if !replaced {
				return false, fmt.Errorf("no override found for '%s'", pkg)
			}
		}
		return true, nil
	}, "Reset %s\n", plural(len(args), "override"))
}
