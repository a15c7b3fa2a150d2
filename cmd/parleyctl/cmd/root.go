package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "parleyctl",
	Short: "Operator CLI for the parley chat server",
	Long: `parleyctl talks to a running parley server's admin API.

Available commands:
  rooms      Manage chat rooms (list, create, delete)
  kick       Disconnect a user
  presence   Show active and inactive users

Use "parleyctl [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8888",
		"Base URL of the parley server admin API")
}
