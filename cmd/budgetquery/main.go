// Package main provides the budgetquery CLI.
package main

import (
	"context"
	"os"

	"github.com/leapstack-labs/budgetquery/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
