package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/origin/internal/format"
	"github.com/dyluth/origin/internal/printer"
	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/spf13/cobra"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display an origin",
	Long: `Display the selected origin.

Output Formats:
  summary - Human-readable description (default)
  yaml    - Structured treefile view
  keyfile - Origin file as it would be written

Examples:
  originctl --file deploy.origin show
  originctl --deployment abc123.0 show --format yaml`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an origin",
	Long: `Validate the selected origin and report whether it is stored in canonical form.

An origin that is valid but not canonical (for example one using the legacy
baserefspec key, or with unsorted lists) is rewritten to canonical form by the
next edit; the differences are listed.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments in the configured store",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "o", string(format.OutputFormatSummary), "Output format: summary, yaml or keyfile")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	f, err := format.ParseOutputFormat(showFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: summary, yaml, keyfile"})
	}

	t, err := openTarget(context.Background())
	if err != nil {
		return err
	}
	defer t.close()

	if f == format.OutputFormatSummary {
		printer.Info("Origin of %s:\n\n", t.name)
	}
	return format.Write(cmd.OutOrStdout(), t.origin, f)
}

func runCheck(cmd *cobra.Command, args []string) error {
	t, err := openTarget(context.Background())
	if err != nil {
		return err
	}
	defer t.close()

	canonical := t.origin.Keyfile()
	if keyfile.Equivalent(t.source, canonical) {
		printer.Success("Origin of %s is valid\n", t.name)
		return nil
	}

	printer.Warning("Origin of %s is valid but not in canonical form (-stored +canonical):\n", t.name)
	printer.Diff(keyfile.Diff(t.source, canonical))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	refs, err := store.List(ctx, cfg.Stateroot)
	if err != nil {
		return fmt.Errorf("failed to list deployments: %w", err)
	}

	format.FormatDeployments(cmd.OutOrStdout(), refs, cfg.Stateroot)
	return nil
}
