package main

import (
	"log/slog"
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	app := newCLIApp(log)
	if err := app.Run(os.Args); err != nil {
		log.Error("vcday failed", "error", err)
		os.Exit(1)
	}
}
