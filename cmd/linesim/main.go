package main

import (
	"fmt"
	"os"

	"floorview/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	addrFlag   string
	noSeed     bool
	emitFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "linesim",
	Short: "Sorting line simulator speaking the backend REST and websocket protocol",
	Long: `linesim stands in for the sorting line backend. It parses uploaded
documents, runs the policy lifecycle, inspects synthetic parts and pushes
every result to websocket clients on /ws.

With seeding enabled (the default) it starts with an approved policy and
inspects a part every emit interval, so a dashboard shows traffic at once.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if addrFlag != "" {
			cfg.Simulator.Address = addrFlag
		}
		if noSeed {
			cfg.Simulator.SeedPolicy = false
		}
		if emitFlag != "" {
			if err := setEmitInterval(cfg, emitFlag); err != nil {
				return err
			}
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides simulator.address)")
	rootCmd.Flags().BoolVar(&noSeed, "no-seed", false, "start without an approved policy")
	rootCmd.Flags().StringVar(&emitFlag, "emit", "", "inspection interval, e.g. 500ms; 0 disables the generator")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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
