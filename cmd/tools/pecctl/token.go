package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/kapu/pec-ai-go/internal/auth"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue a development bearer token",
	Long: `Token signs a bearer token for user-id with AUTH_JWT_SECRET.
When AUTH_DEV_USER_IDS is set, only the listed ids are accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := strings.TrimSpace(args[0])
		if userID == "" {
			return fmt.Errorf("user id is required")
		}

		cfg, logger, err := loadEnv()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if len(cfg.Auth.DevUserIDs) > 0 && !slices.Contains(cfg.Auth.DevUserIDs, userID) {
			return fmt.Errorf("user %q is not listed in AUTH_DEV_USER_IDS", userID)
		}

		token, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Generate(userID)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("valid for %s", cfg.Auth.TokenTTL))
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
