package commands

import (
	"mcs-forecast/internal/mcp"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `serve exposes forecast_how_many, forecast_when and history_summary as MCP tools
over stdin/stdout. Forecasts sample the local history store written by sync.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		server, err := mcp.NewServer(cfg, Version)
		if err != nil {
			return err
		}
		return server.Serve(cmd.Context())
	},
}
