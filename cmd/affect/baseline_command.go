package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"affect/internal/api"
	"affect/internal/signal"
)

func newBaselineCommand(ctx *commandContext) *cobra.Command {
	var (
		userID string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Record a user's resting baseline from a sample file",
		Long: "Reads a JSON array of samples from a file (or stdin with -) and records " +
			"the user's baseline profile. Feature extraction needs a baseline before " +
			"any of the user's sessions can produce predictions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user is required")
			}

			var raw []byte
			var err error
			if file == "-" {
				raw, err = os.ReadFile(os.Stdin.Name())
			} else {
				raw, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read samples: %w", err)
			}

			var samples []signal.Sample
			if err := json.Unmarshal(raw, &samples); err != nil {
				return fmt.Errorf("parse samples: %w", err)
			}

			var resp api.BaselineResponse
			if err := ctx.postJSON("/api/baseline", api.BaselineRequest{
				UserID:  userID,
				Samples: samples,
			}, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline recorded for %s: mean GSR %.3f, mean HR %.1f (%d samples)\n",
				resp.UserID, resp.MeanGSR, resp.MeanHR, resp.SampleCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&file, "file", "-", "Path to a JSON sample array, - for stdin")
	return cmd
}
