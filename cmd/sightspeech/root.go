package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/api"
	"github.com/jackzampolin/sightspeech/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sightspeech",
	Short: "Camera reading assistant with local OCR and remote extraction",
	Long: `SightSpeech reads text in front of a camera and makes it available for
read-aloud navigation.

The pipeline includes:
  - Frame capture from a webcam or a directory of saved frames
  - Local OCR on a fixed frame budget with reading-order reconstruction
  - Dictionary-based cleanup of OCR fragments
  - On-demand remote extraction (structured text or scene description)
  - An HTTP API, live MJPEG preview and speech synthesis`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.sightspeech/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "sightspeech home directory (default: ~/.sightspeech)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or text",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
