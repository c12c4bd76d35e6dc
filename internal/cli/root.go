package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"meeting_assistant/internal/app"
	"meeting_assistant/internal/config"
)

type Dependencies struct {
	App    *app.App
	Config config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meeting-assistant",
		Short:         "Transcribe, summarize and track meetings",
		Long:          "Runs the meeting pipeline: speaker-attributed transcription, LLM summaries and task extraction, progress reports and DOCX export.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version()

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewIngestCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewProcessCmd(deps))
	rootCmd.AddCommand(NewRegenerateCmd(deps))
	rootCmd.AddCommand(NewReportCmd(deps))
	rootCmd.AddCommand(NewExportCmd(deps))
	rootCmd.AddCommand(NewBackfillCmd(deps))

	return rootCmd
}

func version() string {
	if v := strings.TrimSpace(os.Getenv("GIT_SHA")); v != "" {
		return v
	}
	return "dev"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
