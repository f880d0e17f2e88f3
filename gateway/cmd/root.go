package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/hookgate/gateway/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hookgate",
	Short: "Instagram comment webhook gateway",
	Long: `hookgate receives Instagram change notifications, verifies their
X-Hub-Signature-256, and hands each new comment to the work queue exactly once.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/hookgate/config.yaml)")
}

// loadConfig loads the configuration and, when strict, validates it.
func loadConfig(strict bool) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if strict {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}
