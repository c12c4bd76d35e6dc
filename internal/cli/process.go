package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"meeting_assistant/internal/config"
	"meeting_assistant/internal/transcribe"
)

// NewProcessCmd runs the processing pipeline in the foreground, retries
// included, without going through the job queue.
func NewProcessCmd(deps *Dependencies) *cobra.Command {
	var audio string
	cmd := &cobra.Command{
		Use:   "process <meeting-id>",
		Short: "Transcribe and analyze a meeting in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st := deps.App.Store()
			if audio != "" {
				if err := transcribe.Validate(audio); err != nil {
					return err
				}
				if err := st.AttachAudio(ctx, id, audio, config.Now()); err != nil {
					return err
				}
			}
			if err := deps.App.Orchestrator().ProcessMeeting(ctx, id); err != nil {
				return err
			}
			m, err := st.GetMeeting(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "meeting %d %s\n", m.ID, m.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&audio, "audio", "", "audio file to attach before processing")
	return cmd
}

func NewRegenerateCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <meeting-id>",
		Short: "Rebuild a meeting summary from its stored transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			summary, err := deps.App.Orchestrator().RegenerateSummary(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}
