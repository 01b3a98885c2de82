// Package cmd provides the command-line interface for the dbgateway
// server and its operator tooling, using the Cobra CLI framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dbgateway",
	Short: "Natural-language-to-SQL query gateway",
	Long: `dbgateway serves natural language questions against registered
PostgreSQL and MySQL databases, translating them to read-only SQL via an
LLM, validating the generated statement against an AST-based safety
boundary, and executing it under a request-scoped budget.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the gateway JSON config file (overrides DBGATEWAY_CONFIG)")
}
