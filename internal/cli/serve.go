package cli

import "github.com/spf13/cobra"

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, job workers and inbox watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.App.Run(cmd.Context())
		},
	}
}
