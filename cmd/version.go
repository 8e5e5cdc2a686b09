package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("hrmate %s\n", Version)
		cmd.Printf("Build Time: %s\n", BuildTime)
		cmd.Printf("Git Commit: %s\n", GitCommit)

		// Confirm the key is present without echoing it.
		if os.Getenv("GEMINI_API_KEY") != "" {
			cmd.Println("GEMINI_API_KEY: configured")
		} else {
			cmd.Println("GEMINI_API_KEY: not set (required for serve and mcp)")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
