package cli

import (
	"github.com/spf13/cobra"

	"meeting_assistant/internal/store"
)

func NewReportCmd(deps *Dependencies) *cobra.Command {
	var (
		meetingID  int64
		reportType string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and store a progress report",
		Long:  "Generates a report for --meeting. Without --meeting a general report placeholder is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var target *int64
			if meetingID > 0 {
				target = &meetingID
			}
			rep, err := deps.App.Orchestrator().GenerateReport(cmd.Context(), target, store.ParseReportType(reportType))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().Int64Var(&meetingID, "meeting", 0, "meeting to report on")
	cmd.Flags().StringVar(&reportType, "type", string(store.ReportMeeting), "report type: meeting, weekly or custom")
	return cmd
}
