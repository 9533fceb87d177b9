package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"affect/internal/api"
)

func newPredictionsCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionID string
		userID    string
		videoID   int64
		since     int64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "predictions",
		Short: "List per-window emotion predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if trimmed := strings.TrimSpace(sessionID); trimmed != "" {
				query.Set("session_id", trimmed)
			}
			if trimmed := strings.TrimSpace(userID); trimmed != "" {
				query.Set("user_id", trimmed)
			}
			if videoID > 0 {
				query.Set("video_id", strconv.FormatInt(videoID, 10))
			}
			if cmd.Flags().Changed("since") {
				query.Set("since", strconv.FormatInt(since, 10))
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			path := "/api/predictions"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			var resp api.PredictionsResponse
			if err := ctx.getJSON(path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Predictions) == 0 {
				fmt.Fprintln(out, "No predictions found.")
				return nil
			}

			cols := []column{
				{name: "Session"},
				{name: "Window", numeric: true},
				{name: "Probe"},
				{name: "V", numeric: true},
				{name: "A", numeric: true},
				{name: "Score", numeric: true},
				{name: "GSR Δ", numeric: true},
				{name: "HR Δ", numeric: true},
				{name: "Cluster", numeric: true},
			}
			rows := make([][]string, 0, len(resp.Predictions))
			for _, p := range resp.Predictions {
				rows = append(rows, []string{
					p.SessionID,
					fmt.Sprintf("%d", p.WindowIndex),
					p.Probe,
					fmt.Sprintf("%d", p.Valence),
					fmt.Sprintf("%d", p.Arousal),
					fmt.Sprintf("%.4f", p.ChangeScore),
					fmt.Sprintf("%.3f", p.GSRDiff),
					fmt.Sprintf("%.3f", p.HRDiff),
					fmt.Sprintf("%d", p.ClusterID),
				})
			}
			fmt.Fprintln(out, renderColumns(cols, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Filter by session id")
	cmd.Flags().StringVar(&userID, "user", "", "Filter by user id")
	cmd.Flags().Int64Var(&videoID, "video", 0, "Filter by stimulus video id")
	cmd.Flags().Int64Var(&since, "since", 0, "Only windows after this index")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to return")
	return cmd
}
