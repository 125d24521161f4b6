package commands

import (
	"fmt"

	"github.com/dyluth/origin/pkg/origin"
	"github.com/spf13/cobra"
)

var (
	rebaseCustomURL         string
	rebaseCustomDescription string

	deployUnpin bool
)

var rebaseCmd = &cobra.Command{
	Use:   "rebase REFSPEC",
	Short: "Switch to a different base",
	Long: `Point the origin at a different base. REFSPEC is an ostree ref
("remote:branch"), a commit checksum, or a container image reference
("ostree-unverified-registry:quay.io/fedora/fedora-silverblue:40").

Any custom origin URL and description are replaced by the given flags.

Examples:
  originctl --file deploy.origin rebase fedora:fedora/40/x86_64/silverblue
  originctl --file deploy.origin rebase ostree-remote-image:fedora:docker://quay.io/fedora/fedora-coreos:stable \
      --custom-url https://example.com/stream --custom-description "Example stream"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate("rebase", changedOnly(func(o *origin.Origin) error {
			return o.RebaseCustom(args[0], rebaseCustomURL, rebaseCustomDescription)
		}), "Rebased to %s\n", args[0])
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy [CHECKSUM]",
	Short: "Pin the origin to a commit",
	Long: `Pin the origin to a specific commit of its base, or unpin it with --unpin.

Examples:
  originctl --file deploy.origin deploy 4f3c...9a
  originctl --file deploy.origin deploy --unpin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

func init() {
	rebaseCmd.Flags().StringVar(&rebaseCustomURL, "custom-url", "", "URL describing where the new base comes from")
	rebaseCmd.Flags().StringVar(&rebaseCustomDescription, "custom-description", "", "Description of the new base (requires --custom-url)")

	deployCmd.Flags().BoolVar(&deployUnpin, "unpin", false, "Remove the pinned commit")

	rootCmd.AddCommand(rebaseCmd)
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	var checksum string
	switch {
	case deployUnpin && len(args) == 0:
	case !deployUnpin && len(args) == 1:
		checksum = args[0]
	default:
		return fmt.Errorf("expected either a CHECKSUM or --unpin")
	}

	msg := "Pinned to " + checksum + "\n"
	if deployUnpin {
		msg = "Unpinned\n"
	}
	return mutate("deploy", changedOnly(func(o *origin.Origin) error {
		return o.SetOverrideCommit(checksum)
	}), "%s", msg)
}
