package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avelar/parley/internal/protocol"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Manage chat rooms",
}

var roomsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rooms with their current members",
	Run: func(cmd *cobra.Command, args []string) {
		var rooms []protocol.RoomSummary
		if err := apiRequest("GET", "/api/rooms", nil, &rooms); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(rooms) == 0 {
			fmt.Println("No rooms")
			return
		}
		for _, r := range rooms {
			fmt.Printf("%s (%d): %s\n", r.Name, r.UserCount, strings.Join(r.Users, ", "))
		}
	},
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty room",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		body := map[string]string{"name": args[0]}
		if err := apiRequest("POST", "/api/rooms", body, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Room %q created\n", args[0])
	},
}

var roomsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a room, notifying its members first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "/api/rooms/" + url.PathEscape(args[0])
		if err := apiRequest("DELETE", path, nil, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Room %q deleted\n", args[0])
	},
}

func init() {
	roomsCmd.AddCommand(roomsListCmd)
	roomsCmd.AddCommand(roomsCreateCmd)
	roomsCmd.AddCommand(roomsDeleteCmd)
	rootCmd.AddCommand(roomsCmd)
}
