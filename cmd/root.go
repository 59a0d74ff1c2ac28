package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "transit-ratio",
	Short: "Transit-to-driving duration ratios for a country's largest cities",
	Long:  "Pulls city tables from Opendatasoft, keeps the cities above a population percentile, evaluates Google Maps driving and transit routes from a fixed origin, and renders the ratios onto maps and reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")

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
