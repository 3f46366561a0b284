package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	apiKey     string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "trackctl",
	Short: "CLI for the zeropragas conversion relay",
	Long: `trackctl drives a running conversion relay over its HTTP API.

Send test events, inspect delivery statistics, and watch delivery
activity in real time.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "http://localhost:8080", "relay HTTP address")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", os.Getenv("ZP_API_KEY"), "API key for the /v1 endpoints")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON responses")
}
