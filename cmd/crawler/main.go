// Package main is the crawler command line: it enqueues crawl jobs, runs the
// job processor and serves the status API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	storeFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "crawler",
	Short:         "Article crawl-job engine",
	Long:          "Discovers, fetches and extracts articles, tracking every unit of work in a durable crawl_jobs table.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "job and article store: postgres or memory (overrides store.driver)")
}

func main() {
	// A missing .env is fine; the environment alone can configure everything.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
