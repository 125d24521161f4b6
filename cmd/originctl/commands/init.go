package commands

import (
	"github.com/dyluth/origin/internal/config"
	"github.com/dyluth/origin/internal/printer"
	"github.com/dyluth/origin/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit     bool
	initBackend   string
	initRedisURL  string
	initBucketURL string
	initOrigin    string
	initRefspec   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an originctl configuration",
	Long: `Write a configuration file for originctl at the --config path.

With --origin, also writes a new origin file that tracks --refspec and has no
local modifications.

Use --force to overwrite existing files.

Examples:
  originctl --config ./originctl.yml init --stateroot fedora
  originctl init --backend redis --redis-url redis://localhost:6379/0
  originctl --config ./originctl.yml init --origin ./new.origin --refspec fedora:fedora/39/x86_64/silverblue`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initBackend, "backend", config.BackendBlob, "Store backend: blob or redis")
	initCmd.Flags().StringVar(&initRedisURL, "redis-url", "", "Redis URL for the redis backend")
	initCmd.Flags().StringVar(&initBucketURL, "bucket-url", "", "Bucket URL for the blob backend")
	initCmd.Flags().StringVar(&initOrigin, "origin", "", "Also write a new origin file at this path")
	initCmd.Flags().StringVar(&initRefspec, "refspec", "", "Refspec tracked by the new origin")
	initCmd.MarkFlagsRequiredTogether("origin", "refspec")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	written, err := scaffold.Initialize(scaffold.Options{
		ConfigPath: configPath,
		Stateroot:  stateroot,
		Store: config.StoreConfig{
			Backend:   initBackend,
			RedisURL:  initRedisURL,
			BucketURL: initBucketURL,
		},
		OriginPath: initOrigin,
		Refspec:    initRefspec,
		Force:      forceInit,
	})
	if err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	printer.Success("Initialized originctl\n")
	printer.Println("\nCreated:")
	for _, p := range written {
		printer.Printf("  ✓ %s\n", p)
	}
	printer.Println("\nNext steps:")
	printer.Printf("  originctl --config %s list\n", configPath)
	return nil
}
