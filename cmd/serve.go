package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mcpserver "github.com/ziadkadry99/drift/internal/mcp"
	"github.com/ziadkadry99/drift/internal/metricsserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the drift backend as tools for AI agents like Claude Code.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Bind before stdio starts: ServeStdio does not watch the context, so a
	// listen failure must surface here.
	ln, reg, err := listenMetrics(cmd, cfg)
	if err != nil {
		return err
	}
	client, err := newDriftClient(cfg, registerer(reg))
	if err != nil {
		if ln != nil {
			ln.Close()
		}
		return err
	}

	// Set version from the cmd package variable.
	mcpserver.Version = Version
	srv := mcpserver.NewServer(client, logger)

	fmt.Fprintf(os.Stderr, "drift MCP server started on stdio (backend=%s)\n", client.BaseURL())

	if ln == nil {
		return srv.Serve()
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	ctx, cancel := context.WithCancel(ctx)
	g.Go(func() error {
		// Stdio closes when the agent disconnects; stop the metrics server with it.
		defer cancel()
		return srv.Serve()
	})
	g.Go(func() error {
		return metricsserver.Serve(ctx, ln, reg, logger.With(zap.String("component", "metrics")))
	})
	return g.Wait()
}
