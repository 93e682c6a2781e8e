// Docsentry keeps documentation in sync with a source repository.
//
// It maintains an embedding-backed knowledge base of the repository, updates
// it incrementally on GitHub push and merge events, and opens pull requests
// against the docs repository when source changes affect documentation pages.
//
// Usage:
//
//	docsentry serve              Start the webhook server
//	docsentry index              Build the knowledge base snapshot once
//	docsentry query "<text>"     Query the persisted knowledge base
//
// Configuration comes from an optional YAML file (--config), environment
// variables prefixed DOCSENTRY_, and a .env file in the working directory.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docsentry",
	Short: "Documentation maintenance automation for source repositories",
	Long: `docsentry watches a source repository, maintains an embedding-backed
knowledge base of its contents, and proposes documentation updates as pull
requests when the source changes.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docsentry\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "docsentry.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// A .env file is a convenience for local development; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
