// Package main implements testdb, a command that manages the test database
// described by the TEST_DB_* environment variables.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
