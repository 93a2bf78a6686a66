// Package main wires the simulation MCP service process lifecycle.
//
// It reads config from env and runs the simulation server until shutdown.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/app"
)

func main() {
	log.SetPrefix("[SIMULATION] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
