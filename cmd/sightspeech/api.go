package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running SightSpeech server via HTTP.

These commands require a running server (sightspeech serve).
Use --server to specify a custom server URL.

Examples:
  sightspeech api health              # Check server health
  sightspeech api data command c      # Capture and extract the current frame
  sightspeech api data words          # Print the ordered text
  sightspeech api settings list       # Show effective configuration`,
}

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Reading state and command commands",
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Configuration settings commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:5000", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Remote extraction, speech and metrics at top level
	apiCmd.AddCommand((&endpoints.ExtractEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SpeechEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.AnnouncementEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.MetricsEndpoint{}).Command(getServerURL))

	// Reading state as subcommand group
	for _, ep := range endpoints.DataCommands() {
		dataCmd.AddCommand(ep.Command(getServerURL))
	}

	// Settings as subcommand group
	for _, ep := range endpoints.SettingsCommands() {
		settingsCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(dataCmd)
	apiCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(apiCmd)
}
