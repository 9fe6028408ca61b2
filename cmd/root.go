package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/drift/internal/config"
	"github.com/ziadkadry99/drift/internal/logging"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "drift",
	Short: "Client for a drift conversation-branching backend",
	Long: `drift talks to a drift backend, which keeps each conversation split into
topic branches. It routes messages, shows what a branch holds,
assembles language-model prompts for a branch, runs an interactive chat
on top of them and exposes the backend to AI agents via MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(verbose)
		return config.LoadDotEnv(".env")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command. Interrupts cancel the command context so
// long-running commands can shut down cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}
