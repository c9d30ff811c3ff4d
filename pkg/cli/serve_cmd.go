package cli

import (
	"github.com/spf13/cobra"

	"lake-explorer/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				addr := a.Config.ListenAddr
				if listen != "" {
					addr = listen
				}
				return a.Serve(cmd.Context(), addr)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides LISTEN_ADDR)")
	return cmd
}
