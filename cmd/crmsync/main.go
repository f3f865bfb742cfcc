// Package main provides the entry point for the crmsync CLI tool.
package main

import (
	"context"
	"os"

	"github.com/agentstation/crmsync/cmd/crmsync/app"
	"github.com/agentstation/crmsync/pkg/constants"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := app.ContextWithSignals(context.Background())

	err = application.Execute(ctx, os.Args[1:])
	cancel()

	// Fresh context: the signal context may be cancelled
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
		application.Logger().Error().Err(shutdownErr).Msg("Shutdown error")
	}

	if err != nil {
		shutdownCancel()
		app.ExitOnError(err)
	}
}
