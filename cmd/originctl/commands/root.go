package commands

import (
	"fmt"

	"github.com/dyluth/origin/internal/config"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath   string
	targetFile   string
	targetDeploy string
	stateroot    string
	dryRun       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "originctl",
	Short: "originctl - inspect and edit rpm-ostree deployment origins",
	Long: `originctl reads and edits the origin of an rpm-ostree deployment: the base
refspec it tracks, layered and local packages, base package overrides,
module streams and initramfs settings.

An origin is read either from a file (--file) or from the configured
deployment store (--deployment CHECKSUM.SERIAL). Edits are written back
to the same place unless --dry-run is given.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to originctl.yml")
	flags.StringVarP(&targetFile, "file", "f", "", "Origin file to operate on")
	flags.StringVarP(&targetDeploy, "deployment", "d", "", "Deployment to operate on, as CHECKSUM.SERIAL")
	flags.StringVar(&stateroot, "stateroot", "", "Stateroot of --deployment (default from config)")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "Show the resulting changes without writing them")
}
