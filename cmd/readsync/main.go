// Package main is the entry point for the readsync command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/c0deZ3R0/readsync/cmd/readsync/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
