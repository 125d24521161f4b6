package commands

import (
	"github.com/dyluth/origin/pkg/origin"
	"github.com/spf13/cobra"
)

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Manage module streams",
	Long: `Enable, disable, install or uninstall module streams.

Modules are given as NAME:STREAM, optionally followed by /PROFILE for install.

Examples:
  originctl --file deploy.origin module enable nodejs:18
  originctl --file deploy.origin module install nodejs:18/default`,
}

func newModuleCmd(use, short string, add, enableOnly bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " MODULE...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate("module "+use, func(o *origin.Origin) (bool, error) {
				if add {
					return o.AddModules(args, enableOnly)
				}
				return o.RemoveModules(args, enableOnly)
			}, "Updated %s\n", plural(len(args), "module"))
		},
	}
}

func init() {
	moduleCmd.AddCommand(newModuleCmd("enable", "Enable module streams", true, true))
	moduleCmd.AddCommand(newModuleCmd("disable", "Disable module streams", false, true))
	moduleCmd.AddCommand(newModuleCmd("install", "Install module profiles", true, false))
	moduleCmd.AddCommand(newModuleCmd("uninstall", "Uninstall module profiles", false, false))
	rootCmd.AddCommand(moduleCmd)
}
