package main

import (
	"github.com/kapu/pec-ai-go/internal/config"
	"github.com/kapu/pec-ai-go/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "pecctl",
	Short: "Developer tool for the PEC AI card service",
	Long: `pecctl talks to the same AI providers and secrets as the server.
It checks provider health, generates a card from a local photo and
issues development bearer tokens.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log provider calls")
	rootCmd.AddCommand(pingCmd, generateCmd, tokenCmd)
}

func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := util.NewLogger(level, "")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
