// Package main is the entry point for the dbgateway command-line
// application: the natural-language-to-SQL query gateway server plus
// its operator tooling.
package main

import (
	"github.com/dbquery-gateway/gateway/cmd/dbgateway/cmd"
)

func main() {
	cmd.Execute()
}
