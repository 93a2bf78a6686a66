// Package main provides a CLI for seeding the local development database
// with demo scenarios.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/stagecraft-sim/stagecraft/internal/simulation/seed"
	"github.com/stagecraft-sim/stagecraft/internal/simulation/storage/sqlite"
)

func main() {
	var dbPath string
	var list bool
	flag.StringVar(&dbPath, "db", defaultDBPath(), "path to the simulation database")
	flag.BoolVar(&list, "list", false, "list available demo scenarios")
	flag.Parse()

	if list {
		for _, scenario := range seed.Scenarios() {
			fmt.Printf("%s\t%s (%d scenes)\n", scenario.ID, scenario.Title, len(scenario.Scenes))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(dbPath)
	if err != nil {
		log.Fatalf("open store at %s: %v", dbPath, err)
	}
	defer store.Close()

	if err := seed.Apply(ctx, store); err != nil {
		log.Fatalf("seed scenarios: %v", err)
	}
	log.Printf("seeded scenarios db_path=%s count=%d", dbPath, len(seed.Scenarios()))
}

func defaultDBPath() string {
	if env := os.Getenv("STAGECRAFT_SIMULATION_DB_PATH"); env != "" {
		return env
	}
	return filepath.Join("data", "simulation.db")
}
