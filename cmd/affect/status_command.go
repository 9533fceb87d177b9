package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"affect/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status api.DaemonStatus
			if err := ctx.getJSON("/api/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := newStatusPrinter(out)

			p.Section("Affect Daemon")
			runningSev := sevError
			if status.Running {
				runningSev = sevOK
			}
			p.Line("Running", runningSev, yesNo(status.Running))
			p.Line("PID", sevInfo, fmt.Sprintf("%d", status.PID))
			p.Line("Database", sevInfo, status.DBPath)
			p.Line("Lock file", sevInfo, status.LockFilePath)

			modelsSev := sevOK
			if status.LoadedModels == 0 {
				modelsSev = sevWarn
			}
			p.Line("Models loaded", modelsSev, fmt.Sprintf("%d", status.LoadedModels))
			p.Line("Active sessions", sevInfo, fmt.Sprintf("%d", status.ActiveSessions))
			p.Line("Predictions logged", sevInfo, fmt.Sprintf("%d", status.PredictionsLogged))
			p.Line("Predictions cached", sevInfo, fmt.Sprintf("%d", status.PredictionsCached))

			if len(status.Sessions) > 0 {
				p.Blank()
				fmt.Fprintln(out, renderSessionTable(status.Sessions))
			}
			return nil
		},
	}
}

func renderSessionTable(sessions []api.SessionInfo) string {
	cols := []column{
		{name: "Session"},
		{name: "User"},
		{name: "Video", numeric: true},
		{name: "State"},
		{name: "Cluster", numeric: true},
		{name: "Windows", numeric: true},
		{name: "Failed", numeric: true},
		{name: "Dropped", numeric: true},
		{name: "Progress", numeric: true},
	}

	rows := make([][]string, 0, len(sessions))
	for _, sess := range sessions {
		clusterLabel := "-"
		if sess.ClusterID != nil {
			clusterLabel = fmt.Sprintf("%d", *sess.ClusterID)
		}
		rows = append(rows, []string{
			sess.SessionID,
			sess.UserID,
			fmt.Sprintf("%d", sess.VideoID),
			sess.State,
			clusterLabel,
			fmt.Sprintf("%d", sess.WindowsEmitted),
			fmt.Sprintf("%d", sess.WindowsFailed),
			fmt.Sprintf("%d", sess.SamplesDropped),
			fmt.Sprintf("%.0f%%", sess.ProgressPct),
		})
	}
	return renderColumns(cols, rows)
}
