package commands

import (
	"fmt"
	"strings"

	"github.com/dyluth/origin/pkg/origin"
	"github.com/spf13/cobra"
)

var (
	initramfsEnable  bool
	initramfsDisable bool
	initramfsArgs    []string

	etcTrack      []string
	etcUntrack    []string
	etcUntrackAll bool
)

var initramfsCmd = &cobra.Command{
	Use:   "initramfs",
	Short: "Enable or disable client-side initramfs regeneration",
	Long: `Enable or disable client-side initramfs regeneration.

Examples:
  originctl --file deploy.origin initramfs --enable --arg=-I --arg=/etc/crypttab
  originctl --file deploy.origin initramfs --disable`,
	Args: cobra.NoArgs,
	RunE: runInitramfs,
}

var initramfsEtcCmd = &cobra.Command{
	Use:   "initramfs-etc",
	Short: "Track /etc files into the initramfs",
	Long: `Add or remove /etc files that are copied into the initramfs.

Examples:
  originctl --file deploy.origin initramfs-etc --track /etc/crypttab
  originctl --file deploy.origin initramfs-etc --untrack-all`,
	Args: cobra.NoArgs,
	RunE: runInitramfsEtc,
}

var cliwrapCmd = &cobra.Command{
	Use:       "cliwrap on|off",
	Short:     "Enable or disable wrapping of package manager commands",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled := args[0] == "on"
		return mutate("cliwrap", changedOnly(func(o *origin.Origin) error {
			return o.SetCliwrap(enabled)
		}), "CLI wrapping %s\n", args[0])
	},
}

func init() {
	initramfsCmd.Flags().BoolVar(&initramfsEnable, "enable", false, "Regenerate the initramfs on the client")
	initramfsCmd.Flags().BoolVar(&initramfsDisable, "disable", false, "Use the initramfs of the base")
	initramfsCmd.Flags().StringArrayVar(&initramfsArgs, "arg", nil, "Extra argument for the initramfs generator (repeatable, requires --enable)")
	initramfsCmd.MarkFlagsMutuallyExclusive("enable", "disable")

	initramfsEtcCmd.Flags().StringArrayVar(&etcTrack, "track", nil, "Start tracking an /etc file (repeatable)")
	initramfsEtcCmd.Flags().StringArrayVar(&etcUntrack, "untrack", nil, "Stop tracking an /etc file (repeatable)")
	initramfsEtcCmd.Flags().BoolVar(&etcUntrackAll, "untrack-all", false, "Stop tracking all /etc files")

	rootCmd.AddCommand(initramfsCmd)
	rootCmd.AddCommand(initramfsEtcCmd)
	rootCmd.AddCommand(cliwrapCmd)
}

func runInitramfs(cmd *cobra.Command, args []string) error {
	if !initramfsEnable && !initramfsDisable {
		return fmt.Errorf("one of --enable or --disable is required")
	}
	if initramfsDisable && len(initramfsArgs) > 0 {
		return fmt.Errorf("--arg requires --enable")
	}

	state := "disabled"
	if initramfsEnable {
		state = "enabled"
		if len(initramfsArgs) > 0 {
			state += " with " + strings.Join(initramfsArgs, " ")
		}
	}
	return mutate("initramfs", func(o *origin.Origin) (bool, error) {
		return o.SetRegenerateInitramfs(initramfsEnable, initramfsArgs)
	}, "Initramfs regeneration %s\n", state)
}

func runInitramfsEtc(cmd *cobra.Command, args []string) error {
	if len(etcTrack) == 0 && len(etcUntrack) == 0 && !etcUntrackAll {
		return fmt.Errorf("one of --track, --untrack or --untrack-all is required")
	}

	return mutate("initramfs-etc", func(o *origin.Origin) (bool, error) {
		changed := false
		if etcUntrackAll {
			c, err := o.InitramfsEtcFilesUntrackAll()
			if err != nil {
				return false, err
			}
			changed = changed || c
		}
		if len(etcUntrack) > 0 {
			c, err := o.InitramfsEtcFilesUntrack(etcUntrack)
			if err != nil {
				return false, err
			}
			changed = changed || c
		}
		if len(etcTrack) > 0 {
			c, err := o.InitramfsEtcFilesTrack(etcTrack)
			if err != nil {
				return false, err
			}
			changed = changed || c
		}
		return changed, nil
	}, "Updated tracked initramfs files\n")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
