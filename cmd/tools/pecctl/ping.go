package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/kapu/pec-ai-go/internal/app"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the AI providers answer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEnv()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		stack, err := app.BuildAI(ctx, cfg, logger)
		if err != nil {
			return err
		}

		results := stack.Models.Ping(ctx)
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)

		healthy := 0
		for _, name := range names {
			if results[name] {
				healthy++
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("ok  "), name)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.RedString("fail"), name)
		}

		if healthy == 0 {
			return fmt.Errorf("no AI provider reachable")
		}
		return nil
	},
}
