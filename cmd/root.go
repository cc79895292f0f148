package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "permit-leads",
	Short: "Building-permit lead qualification pipeline",
	Long:  "Fetches municipal building-permit records, qualifies them as sales leads by priority and trade, and serves the results over a JSON API with CSV and XLSX export.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
