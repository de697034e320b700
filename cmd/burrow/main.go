package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - Minimal TCP publish/subscribe broker",
	Long: `Burrow is a TCP publish/subscribe broker. Clients subscribe to named
topics, publish payloads, and receive fan-out deliveries of everything
published to their topics, over a compact binary protocol.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	// Initialize logging before command execution
	cobra.OnInitialize(initLogging)

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(subscribeCmd)
}

func initLogging() {
	// Environment supplies the defaults; flags win when set.
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Config{LogLevel: "info"}
	}

	logLevel := cfg.LogLevel
	logJSON := cfg.LogJSON
	if rootCmd.PersistentFlags().Changed("log-level") {
		logLevel, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-json") {
		logJSON, _ = rootCmd.PersistentFlags().GetBool("log-json")
	}

	log.Init(log.Config{
		Level:      logLevel,
		JSONOutput: logJSON,
	})
}
