package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var kickCmd = &cobra.Command{
	Use:   "kick <username>",
	Short: "Disconnect an active user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "/api/kick/" + url.PathEscape(args[0])
		if err := apiRequest("POST", path, nil, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("User %q kicked\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(kickCmd)
}
