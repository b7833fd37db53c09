package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/theapemachine/hivemind/pkg/ingest"
	"github.com/theapemachine/hivemind/pkg/logging"
	"github.com/theapemachine/hivemind/pkg/service"
	"github.com/theapemachine/hivemind/pkg/tools"
)

var (
	addrFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP or MCP",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	httpCmd = &cobra.Command{
		Use:   "http",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg)

			if err != nil {
				return err
			}

			defer st.Close()

			options := []service.ServerOption{service.WithMetrics(st.metrics)}

			if cfg.Server.Documents != "" {
				options = append(options, service.WithDocuments(ingest.NewWorker(
					st.newPipeline(cfg, ingest.WithTextSource(ingest.NewDirSource(cfg.Server.Documents))),
				)))
			}

			srv := service.NewServer(st.engine, st.pipeline, options...)

			go func() {
				<-ctx.Done()

				if err := srv.Shutdown(); err != nil {
					log.Error("failed to shut down http server", "error", err)
				}
			}()

			addr := cfg.Server.Addr

			if addrFlag != "" {
				addr = addrFlag
			}

			return srv.Start(addr)
		},
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout belongs to the protocol.
			if err := logging.Init(cfg.Log.File); err != nil {
				return err
			}

			defer logging.Close()

			st, err := buildStack(cmd.Context(), cfg)

			if err != nil {
				return err
			}

			defer st.Close()

			return server.ServeStdio(tools.NewToolset(st.engine, st.pipeline).NewMCPServer(version))
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(httpCmd)
	serveCmd.AddCommand(mcpCmd)

	httpCmd.Flags().StringVarP(&addrFlag, "addr", "a", "", "Address to listen on (default server.addr)")
}

var longServe = `
Serve the engine to other programs.

Examples:
  # Serve the HTTP API on the configured address
  hivemind serve http

  # Serve on another port
  hivemind serve http --addr :8080

  # Serve MCP tools over stdio for an agent
  hivemind serve mcp
`
