package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/origin/internal/deployment"
	"github.com/dyluth/origin/internal/format"
	"github.com/dyluth/origin/internal/printer"
	"github.com/dyluth/origin/internal/watch"
	"github.com/dyluth/origin/pkg/origin"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchFor          string
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor origin updates in the deployment store",
	Long: `Monitor origin updates as they are written to the deployment store.

Without --for, streams an event for every origin stored through the Redis
backend until interrupted. With --for, waits until the given deployment has an
origin and prints it; this works with every backend.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Stream origin updates
  originctl watch

  # Export events as JSON
  originctl watch --output=json > events.jsonl

  # Wait for a deployment to be written
  originctl watch --for 3f1a...e2.0 --timeout 1m`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchFor, "for", "", "Wait for the origin of this deployment (CHECKSUM.SERIAL, full checksum)")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 30*time.Second, "How long --for waits")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if watchFor != "" {
		ref, err := origin.ParseDeploymentRef(cfg.Stateroot, watchFor)
		if err != nil {
			return printer.Error("invalid deployment", err.Error(), []string{"Use the form CHECKSUM.SERIAL with the full commit checksum."})
		}
		kf, err := watch.PollForOrigin(ctx, store, ref, watchTimeout)
		if err != nil {
			return printer.Error(
				fmt.Sprintf("no origin for deployment %s", ref),
				err.Error(),
				[]string{"Increase the wait:\n  originctl watch --for CHECKSUM.SERIAL --timeout 5m"},
			)
		}
		o, err := origin.ParseDeployment(origin.Deployment{DeploymentRef: ref, Origin: kf})
		if err != nil {
			return originError(err)
		}
		return format.Write(cmd.OutOrStdout(), o, format.OutputFormatSummary)
	}

	rs, ok := store.(*deployment.RedisStore)
	if !ok {
		return printer.ErrorWithContext(
			"watching requires the redis backend",
			"Origin events are only published by the Redis store.",
			map[string]string{"Backend": cfg.Store.Backend},
			[]string{"Wait for a single deployment instead:\n  originctl watch --for CHECKSUM.SERIAL"},
		)
	}

	sub := rs.SubscribeOriginEvents(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to origin events: %w", err)
	}

	if outputFormat == watch.OutputFormatDefault {
		printer.Info("Watching origin updates in stateroot '%s' (Ctrl-C to stop)...\n", cfg.Stateroot)
	}
	return watch.StreamOriginEvents(ctx, sub, outputFormat, cmd.OutOrStdout())
}
