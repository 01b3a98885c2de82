package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbquery-gateway/gateway/internal/config"
	"github.com/dbquery-gateway/gateway/internal/dbregistry"
)

var (
	registerName    string
	registerURI     string
	registerDialect string
	registerPoolMax int
)

var registerDBCmd = &cobra.Command{
	Use:   "register-db",
	Short: "Add a database entry to the gateway config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if registerName == "" || registerURI == "" {
			fmt.Fprintln(os.Stderr, "--name and --uri are required")
			os.Exit(exitConfigError)
		}
		if registerDialect != string(dbregistry.DialectPostgres) && registerDialect != string(dbregistry.DialectMySQL) {
			fmt.Fprintf(os.Stderr, "--dialect must be %q or %q\n", dbregistry.DialectPostgres, dbregistry.DialectMySQL)
			os.Exit(exitConfigError)
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "load config:", err)
			os.Exit(exitConfigError)
		}

		for _, db := range cfg.Databases {
			if db.Name == registerName {
				fmt.Fprintf(os.Stderr, "database %q is already registered\n", registerName)
				os.Exit(exitConfigError)
			}
		}

		cfg.Databases = append(cfg.Databases, config.DatabaseConfig{
			Name:    registerName,
			Dialect: registerDialect,
			URI:     registerURI,
			PoolMax: registerPoolMax,
		})

		path := configPath
		if path == "" {
			path = os.Getenv("DBGATEWAY_CONFIG")
		}
		if path == "" {
			fmt.Fprintln(os.Stderr, "no config file path given (use --config or DBGATEWAY_CONFIG)")
			os.Exit(exitConfigError)
		}

		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "marshal config:", err)
			os.Exit(exitConfigError)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write config:", err)
			os.Exit(exitConfigError)
		}

		fmt.Printf("registered database %q (%s) in %s\n", registerName, registerDialect, path)
		return nil
	},
}

func init() {
	registerDBCmd.Flags().StringVar(&registerName, "name", "", "database name")
	registerDBCmd.Flags().StringVar(&registerURI, "uri", "", "connection URI")
	registerDBCmd.Flags().StringVar(&registerDialect, "dialect", string(dbregistry.DialectPostgres), "postgres or mysql")
	registerDBCmd.Flags().IntVar(&registerPoolMax, "pool-max", config.DefaultPoolMax, "maximum pool size")
	rootCmd.AddCommand(registerDBCmd)
}
