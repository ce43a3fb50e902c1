package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxsync-io/luxsync/cmd/lux-simd/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.NewSimCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
