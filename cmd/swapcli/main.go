// Package main implements swapcli, a small command line client for the swap
// router service. It talks to a running server over HTTP.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "swapcli",
		Short: "Command line client for the swap router service",
		Long: `swapcli queries a running swap router for quotes, provider
availability, and transaction status.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server",
		envOrDefault("SWAP_ROUTER_URL", "http://localhost:8080"),
		"base URL of the swap router service")

	root.AddCommand(newQuoteCmd())
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newStatusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
