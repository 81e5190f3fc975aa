// Command migrate applies the schema of the configured store and prints
// row counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/backend"
	"github.com/kuldeep456789/VisionIQ/internal/config"
)

func main() {
	flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadStorage()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.StorageBackend == config.StorageNone {
		fmt.Println("Storage is disabled (STORAGE_BACKEND=none), nothing to migrate")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Printf("Migrating %s store...\n", cfg.StorageBackend)

	// opening a store applies its schema
	store, err := backend.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	users, err := store.Users().Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	logs, err := store.DetectionLogs().Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count detection logs: %v", err)
	}

	fmt.Printf("✅ %s schema is up to date\n", store.Name())
	fmt.Printf("\n📊 Database Statistics:\n")
	fmt.Printf("   Users: %d\n", users)
	fmt.Printf("   Detection logs: %d\n", logs)
}
