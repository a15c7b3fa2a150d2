package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avelar/parley/internal/presence"
)

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "Show active and inactive users",
	Run: func(cmd *cobra.Command, args []string) {
		var active []presence.ActiveEntry
		if err := apiRequest("GET", "/api/presence/active", nil, &active); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		var inactive []presence.InactiveEntry
		if err := apiRequest("GET", "/api/presence/inactive", nil, &inactive); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Active (%d):\n", len(active))
		for _, e := range active {
			fmt.Printf("  %s | room: %s | online: %ds\n", e.Username, e.LastRoom, e.OnlineSeconds)
		}
		fmt.Printf("Inactive (%d):\n", len(inactive))
		for _, e := range inactive {
			fmt.Printf("  %s | last name: %s | offline: %ds\n", e.Username, e.LastName, e.OfflineSeconds)
		}
	},
}

func init() {
	rootCmd.AddCommand(presenceCmd)
}
