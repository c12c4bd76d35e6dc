package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"meeting_assistant/internal/export"
	"meeting_assistant/internal/store"
)

func NewExportCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export reports and meetings as DOCX",
	}
	cmd.AddCommand(newExportReportCmd(deps))
	cmd.AddCommand(newExportMeetingCmd(deps))
	return cmd
}

func newExportReportCmd(deps *Dependencies) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report <report-id>",
		Short: "Write a stored report to a DOCX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st := deps.App.Store()
			rep, err := st.GetReport(ctx, id)
			if err != nil {
				return err
			}
			var title string
			if rep.MeetingID != nil {
				if m, err := st.GetMeeting(ctx, *rep.MeetingID); err == nil {
					title = m.Title
				}
			}
			doc, err := export.ReportDocument(rep, title)
			if err != nil {
				return err
			}
			return save(cmd, doc, outputPath(deps, output, fmt.Sprintf("report-%d.docx", id)))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: EXPORT_DIR/report-<id>.docx)")
	return cmd
}

func newExportMeetingCmd(deps *Dependencies) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "meeting <meeting-id>",
		Short: "Write a meeting's summary, tasks and transcript to a DOCX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st := deps.App.Store()
			m, err := st.GetMeeting(ctx, id)
			if err != nil {
				return err
			}
			summary, err := st.GetSummary(ctx, id)
			if err != nil && !isNotFound(err) {
				return err
			}
			tasks, err := st.ListTasks(ctx, store.TaskFilter{MeetingID: id})
			if err != nil {
				return err
			}
			segments, err := st.ListSegments(ctx, id)
			if err != nil {
				return err
			}
			doc := export.MeetingDocument(m, summary, tasks, segments)
			return save(cmd, doc, outputPath(deps, output, fmt.Sprintf("meeting-%d.docx", id)))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: EXPORT_DIR/meeting-<id>.docx)")
	return cmd
}

func outputPath(deps *Dependencies, explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	dir := deps.Config.ExportDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

func save(cmd *cobra.Command, doc export.Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := export.Save(doc, path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
