package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"affect/internal/api"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var states []string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List registered sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/sessions"
			if len(states) > 0 {
				query := url.Values{}
				for _, state := range states {
					if trimmed := strings.TrimSpace(state); trimmed != "" {
						query.Add("state", trimmed)
					}
				}
				if encoded := query.Encode(); encoded != "" {
					path += "?" + encoded
				}
			}

			var resp api.SessionListResponse
			if err := ctx.getJSON(path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			fmt.Fprintln(out, renderSessionTable(resp.Sessions))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by session state (repeatable)")
	return cmd
}
