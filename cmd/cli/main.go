// Package main is the entry point for the iac-pipeline CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"iac-pipeline/cmd/cli/cmd"
	"iac-pipeline/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes an over-budget refusal from a failure
func exitCode(err error) int {
	if errors.IsType(err, errors.TypeBudgetExceeded) {
		return 2
	}
	return 1
}
