package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/kapu/pec-ai-go/internal/app"
	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [photo]",
	Short: "Generate a card from a local photo",
	Long: `Generate runs recognition and card synthesis on a photo and writes
the resulting card image next to it (or to --out). Nothing is uploaded
or stored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		photoPath := args[0]
		language, _ := cmd.Flags().GetString("language")
		outPath, _ := cmd.Flags().GetString("out")

		data, err := os.ReadFile(photoPath)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		photo := domain.NewEncodedImage(data, mime.TypeByExtension(strings.ToLower(filepath.Ext(photoPath))))

		cfg, logger, err := loadEnv()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithTimeout(cmd.Context(), constants.AITimeouts.Recognition+constants.AITimeouts.Synthesis)
		defer cancel()

		stack, err := app.BuildAI(ctx, cfg, logger)
		if err != nil {
			return err
		}

		draft, err := stack.Generator.GenerateCard(ctx, photo, language)
		if err != nil {
			return err
		}

		if outPath == "" {
			base := strings.TrimSuffix(photoPath, filepath.Ext(photoPath))
			outPath = base + ".card" + draft.CardImage.Extension()
		}
		if err := os.WriteFile(outPath, draft.CardImage.Data, 0o644); err != nil {
			return fmt.Errorf("write card: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.CyanString("Name:     ")+color.HiWhiteString("%s", draft.Name))
		fmt.Fprintln(out, color.CyanString("Category: ")+color.HiWhiteString("%s", draft.Category))
		fmt.Fprintln(out, color.CyanString("Card:     ")+color.HiWhiteString("%s", outPath))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringP("language", "l", "", "label language (defaults to SPEECH_DEFAULT_LANGUAGE)")
	generateCmd.Flags().StringP("out", "o", "", "where to write the card image")
}
