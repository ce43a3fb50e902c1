package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxsync-io/luxsync/cmd/lux-agent/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.NewAgentCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
