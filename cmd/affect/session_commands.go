package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"affect/internal/api"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Start and stop viewing sessions",
	}
	sessionCmd.AddCommand(newSessionStartCommand(ctx))
	sessionCmd.AddCommand(newSessionStopCommand(ctx))
	return sessionCmd
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionID string
		userID    string
		videoID   int64
		startTs   int64
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open a session for a user watching a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user is required")
			}
			var resp api.SessionResponse
			if err := ctx.postJSON("/api/session/start", api.StartSessionRequest{
				SessionID: sessionID,
				UserID:    userID,
				VideoID:   videoID,
				StartTs:   startTs,
			}, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s started for user %s (video %d)\n",
				resp.Session.SessionID, resp.Session.UserID, resp.Session.VideoID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (generated when omitted)")
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().Int64Var(&videoID, "video", 0, "Stimulus video id")
	cmd.Flags().Int64Var(&startTs, "start-ts", 0, "Session origin timestamp in ms (defaults to now)")
	return cmd
}

func newSessionStopCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <session-id>",
		Short: "Stop a session and drain its final window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.SessionResponse
			if err := ctx.postJSON("/api/session/stop", api.StopSessionRequest{
				SessionID: strings.TrimSpace(args[0]),
			}, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s %s (%d windows, %d dropped samples)\n",
				resp.Session.SessionID, resp.Session.State,
				resp.Session.WindowsEmitted, resp.Session.SamplesDropped)
			return nil
		},
	}
	return cmd
}
