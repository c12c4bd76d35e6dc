package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewIngestCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <audio-file>...",
		Short: "Register audio files as meetings and queue them for processing",
		Long:  "Creates one meeting per audio file and queues processing. Queued jobs run in the next 'serve' process.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				m, err := deps.App.Ingest(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "meeting %d %q %s\n", m.ID, m.Title, m.Status)
			}
			return nil
		},
	}
	return cmd
}
