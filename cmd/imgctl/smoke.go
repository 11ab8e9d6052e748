package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"imgmeta/internal/client"
	"imgmeta/internal/smoke"
)

var (
	smokeBaseURL string
	smokeTimeout time.Duration
	smokeUpload  bool
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run create, list, get and delete against a deployed API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if smokeBaseURL == "" {
			smokeBaseURL = os.Getenv("API_URL")
		}
		if smokeBaseURL == "" {
			return fmt.Errorf("--base-url or API_URL is required")
		}

		ctx := cmd.Context()
		logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
			With().Timestamp().Str("base_url", smokeBaseURL).Logger()

		sc := smoke.DefaultScenario()
		if smokeUpload {
			sc.Body = []byte("\xff\xd8\xff\xe0 imgctl smoke")
		}

		c := client.New(smokeBaseURL, &http.Client{Timeout: smokeTimeout})
		report, err := smoke.Run(ctx, c, sc, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "smoke ok: image %s (%s)\n", report.ImageID, report.S3Key)
		return nil
	},
}

func init() {
	smokeCmd.Flags().StringVar(&smokeBaseURL, "base-url", "", "API base URL (defaults to $API_URL)")
	smokeCmd.Flags().DurationVar(&smokeTimeout, "timeout", 30*time.Second, "per-request timeout")
	smokeCmd.Flags().BoolVar(&smokeUpload, "upload", false, "also PUT a small payload to the presigned URL")
	rootCmd.AddCommand(smokeCmd)
}
