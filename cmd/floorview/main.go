package main

import (
	"fmt"
	"os"
	"time"

	"floorview/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
	streamURL  string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "floorview",
	Short: "Live terminal view of the part sorting line",
	Long: `floorview connects to the line's event stream and animates every part
from the source through inspection into its bin, with per-bin counts, a
decision log and shift statistics.

Press q, Esc or Ctrl-C to quit. The subcommands call the line's REST API
directly and print the response body as returned.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		return runDashboard(cmd.Context(), cfg)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	pf.StringVar(&apiURL, "api", "", "REST base URL (overrides api.base_url)")
	pf.StringVar(&streamURL, "stream", "", "websocket URL (overrides stream.url)")
	pf.DurationVar(&timeout, "timeout", 0, "REST request timeout (overrides api.timeout)")

	rootCmd.AddCommand(
		statusCmd,
		healthCmd,
		policyCmd,
		uploadCmd,
		compileCmd,
		approveCmd,
		rejectCmd,
		inspectCmd,
		overrideCmd,
		askCmd,
		eventsCmd,
		statsCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig() (*config.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if streamURL != "" {
		cfg.Stream.URL = streamURL
	}
	if timeout > 0 {
		cfg.API.Timeout = timeout
	}
	return cfg, nil
}

// loadConfig tries the explicit path first, then the usual locations, and
// falls back to defaults when none exists.
func loadConfig(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}

	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}
	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.Load("")
}
