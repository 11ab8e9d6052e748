package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"imgmeta/internal/app"
	"imgmeta/internal/config"
	"imgmeta/internal/ingest"
	"imgmeta/internal/logger"
)

var importOpts ingest.Options

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Register and upload local image files directly against the configured stores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Init(&cfg.Log)

		ctx := cmd.Context()
		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := ingest.Files(ctx, a.Service, args, importOpts)
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", r.Path, r.Err)
				continue
			}
			if r.Image != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "OK   %s -> %s\n", r.Path, r.Image.ImageID)
			}
		}
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importOpts.UserID, "user", "", "owner of the imported images (required)")
	importCmd.Flags().StringSliceVar(&importOpts.Tags, "tags", nil, "comma-separated tags")
	importCmd.Flags().StringVar(&importOpts.Description, "description", "", "description for every image")
	importCmd.Flags().IntVar(&importOpts.Concurrency, "concurrency", 4, "parallel uploads")
	_ = importCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(importCmd)
}
