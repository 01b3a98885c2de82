package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbquery-gateway/gateway/internal/config"
	"github.com/dbquery-gateway/gateway/internal/dbpool"
	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/errs"
	"github.com/dbquery-gateway/gateway/internal/executor"
	"github.com/dbquery-gateway/gateway/internal/sqlsafety"
)

var (
	queryDB  string
	querySQL string
)

// queryCmd runs a raw, already-written SQL statement straight through
// the safety validator and executor, bypassing SQL generation. Useful
// for exercising the safety boundary and connection pools without a
// configured LLM.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Validate and execute a SQL statement against a registered database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryDB == "" || querySQL == "" {
			fmt.Fprintln(os.Stderr, "--db and --sql are required")
			os.Exit(exitConfigError)
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "load config:", err)
			os.Exit(exitConfigError)
		}

		registry, err := dbregistry.FromConfig(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "build registry:", err)
			os.Exit(exitConfigError)
		}

		desc, err := registry.Resolve(queryDB)
		if err != nil {
			fmt.Fprintln(os.Stderr, "resolve database:", err)
			os.Exit(exitConfigError)
		}

		validated, gerr := sqlsafety.Validate(querySQL, sqlsafety.Options{
			Dialect:          desc.Dialect,
			AllowWrite:       cfg.Security.AllowWrite,
			AllowExplain:     cfg.Security.AllowExplain,
			BlockedFunctions: config.BlockedFunctionsFor(string(desc.Dialect), cfg.Security.BlockedFunctions),
			AllowedTables:    cfg.Security.AllowedTables,
			MaxRows:          desc.RowCap,
		})
		if gerr != nil {
			fmt.Fprintln(os.Stderr, "sql refused:", gerr.Error())
			os.Exit(exitSafetyRefused)
		}

		pools := dbpool.NewManager(registry)
		exec := executor.New(pools)

		ctx := context.Background()
		result, gerr := exec.Execute(ctx, desc.Name, validated, desc.Dialect, desc.StatementTimeoutS, desc.RowCap)
		pools.CloseAll(ctx, time.Duration(cfg.Shutdown.DeadlineS)*time.Second)
		if gerr != nil {
			fmt.Fprintln(os.Stderr, "execution failed:", gerr.Error())
			if gerr.Kind == errs.KindTimeout || gerr.Kind == errs.KindConnectFailed || gerr.Kind == errs.KindPoolExhausted {
				os.Exit(exitTransientError)
			}
			os.Exit(exitConfigError)
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryDB, "db", "", "target database name")
	queryCmd.Flags().StringVar(&querySQL, "sql", "", "SQL statement to validate and execute")
	rootCmd.AddCommand(queryCmd)
}
