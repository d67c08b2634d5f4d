package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guestwall/internal/client"
)

var (
	serverURL  string
	authToken  string
	eventFlag  string
	jsonOutput bool

	wallClient client.WallClient
)

func defaultServerURL() string {
	if s := os.Getenv("WALL_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultEvent() string {
	if s := os.Getenv("WALL_EVENT"); s != "" {
		return s
	}
	return activeRemoteEvent()
}

// requireEvent returns the event selected by --event, WALL_EVENT or the
// active remote.
func requireEvent() (string, error) {
	if eventFlag == "" {
		return "", errors.New("no event selected; pass --event or set WALL_EVENT")
	}
	return eventFlag, nil
}

func defaultToken() string {
	if s := os.Getenv("WALL_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

var rootCmd = &cobra.Command{
	Use:           "wall <command>",
	Short:         "Moderated realtime message wall for events",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		wallClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if wallClient != nil {
			wallClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "admin token")
	rootCmd.PersistentFlags().StringVarP(&eventFlag, "event", "e", defaultEvent(), "event ID")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "wall", Title: "Wall:"},
		&cobra.Group{ID: "moderation", Title: "Moderation:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Wall
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(guestCmd)
	rootCmd.AddCommand(submitCmd)

	// Moderation
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(resendCmd)
	rootCmd.AddCommand(relayCmd)

	// Views
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(screensCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(newRemoteCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
