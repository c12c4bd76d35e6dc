package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"meeting_assistant/internal/store"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	var (
		limit  int
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []store.MeetingStatus
			if status != "" {
				statuses = append(statuses, store.MeetingStatus(status))
			}
			meetings, err := deps.App.Store().ListMeetings(cmd.Context(), limit, statuses...)
			if err != nil {
				return err
			}
			if len(meetings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No meetings found")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tDATE\tTITLE")
			for _, m := range meetings {
				date := "-"
				if m.Date != nil {
					date = m.Date.Format("2006-01-02")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Status, date, m.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum meetings to list")
	cmd.Flags().StringVar(&status, "status", "", "only list meetings in this status")
	return cmd
}
