package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	runner := NewRunner(RunnerOpts{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.app().Run(ctx, os.Args); err != nil {
		runner.logger.Error("radiosync failed", "error", err)
		stop()
		os.Exit(1)
	}
}
