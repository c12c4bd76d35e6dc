package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meeting_assistant/internal/backfill"
	"meeting_assistant/internal/store"
)

func NewBackfillCmd(deps *Dependencies) *cobra.Command {
	var (
		opts   backfill.Options
		server string
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Re-queue meetings stuck in processing",
		Long: "Queues processing jobs for meetings left in processing (and failed ones with --include-failed).\n" +
			"With --server (or SERVICE_BASE_URL) the running service performs the backfill; otherwise jobs are queued in the database for the next 'serve' process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				server = os.Getenv("SERVICE_BASE_URL")
			}
			if server != "" {
				return remoteBackfill(cmd, normalizeBaseURL(server, deps.Config.HTTPPort), opts)
			}
			summary, err := backfill.Execute(cmd.Context(), deps.App.Backfill(), opts, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum meetings to queue (0 means all)")
	cmd.Flags().BoolVar(&opts.IncludeFailed, "include-failed", false, "also re-queue failed meetings")
	cmd.Flags().StringVar(&server, "server", "", "base URL of a running service to trigger instead")
	return cmd
}

func remoteBackfill(cmd *cobra.Command, baseURL string, opts backfill.Options) error {
	body, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, baseURL+"/ops/backfill", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger backfill: %w", err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("trigger backfill: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	_, err = cmd.OutOrStdout().Write(payload)
	return err
}

// normalizeBaseURL adds a scheme and drops trailing slashes. An empty raw
// value targets the local HTTP port.
func normalizeBaseURL(raw, httpPort string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "localhost" + httpPort
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
