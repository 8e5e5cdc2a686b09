// Package cmd implements the hrmate command line interface.
//
// The binary exposes four commands: serve (HTTP API), mcp (Model
// Context Protocol server on stdio), sessions (conversation admin),
// and version. main.go delegates here via Execute.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hrmate/hrmate/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flagDebug   bool
	flagLogJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "hrmate",
	Short: "HR assistant chatbot service",
	Long: `hrmate answers employee HR questions (leave, attendance, payroll,
policy) through a set of domain agents and manages the leave request
lifecycle end to end.

Run "hrmate serve" to start the HTTP API, or "hrmate mcp" to expose the
HR tools over the Model Context Protocol.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Logs go to stderr: the mcp command reserves stdout for
		// JSON-RPC frames.
		level := slog.LevelInfo
		if flagDebug || os.Getenv("DEBUG") != "" {
			level = slog.LevelDebug
		}
		slog.SetDefault(log.New(log.Config{Level: level, JSON: flagLogJSON}))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "emit JSON log records")
}
