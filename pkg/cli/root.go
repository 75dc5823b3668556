// Package cli implements the restmock command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"

	// Persistent flags available to all subcommands
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "restmock",
	Short: "restmock serves declarative REST mocks with CRUD emulation",
	Long: `restmock turns a declarative resource-route definition into a running mock
REST API. Collections are populated lazily, respond to GET/POST/PUT/PATCH/
DELETE with emulated CRUD semantics, and can be persisted across restarts.

Definitions are JSON or YAML files; point restmock at a file, a directory, or
a glob pattern.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}
