package main

import (
	"os"

	"github.com/luxsync-io/luxsync/cmd/luxctl/app"
)

func main() {
	if err := app.NewCtlCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
