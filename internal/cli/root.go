package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/panelkit/panelkit/pkg/config"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with
// values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the panelkit CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands (serve, graph,
// cache, watch), configures logging based on the --verbose flag, and
// executes the command tree. The logger is attached to the context and
// accessible to all commands via loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "panelkit",
		Short:        "Panelkit keeps analytics dashboards alive when their parts fail",
		Long:         `Panelkit is the resilient core of an analytics dashboard: it wires services through a validated dependency registry, loads data with caching and retries, renders charts with post-render validation, and degrades failed regions to static fallbacks instead of leaving them blank.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("panelkit %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to panelkit.toml")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newGraphCmd(&configPath))
	root.AddCommand(newCacheCmd(&configPath))
	root.AddCommand(newWatchCmd())

	return root.ExecuteContext(ctx)
}

// loadConfig reads the configured file, or the defaults when none is given.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}
