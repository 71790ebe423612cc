// Command main fills the configured store with demo board content.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"whisperwall/internal/bootstrap"
	"whisperwall/internal/config"
	"whisperwall/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numMessages := flag.Int("messages", defaults.Messages, "Number of messages to create")
	maxComments := flag.Int("comments", defaults.MaxComments, "Maximum comments per message")
	maxLikes := flag.Int("likes", defaults.MaxLikes, "Maximum likes per message")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread message timestamps over this many days")
	automated := flag.Float64("automated", defaults.AutomatedRatio, "Share of comments posted as automated replies")
	shouldClean := flag.Bool("clean", false, "Delete existing messages before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("Whisperwall seeder")
	log.Printf("Target: %d messages, clean=%v", *numMessages, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DBDriver == config.DriverMemory {
		log.Fatal("DB_DRIVER=memory does not persist; seed a sqlite or postgres store instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	res, err := seed.NewSeeder(store, *randSeed).Seed(ctx, seed.Options{
		Messages:       *numMessages,
		MaxComments:    *maxComments,
		MaxLikes:       *maxLikes,
		MaxDays:        *maxDays,
		AutomatedRatio: *automated,
		Clean:          *shouldClean,
	})
	if err != nil {
		log.Printf("Seeding failed: %v", err)
		return
	}
	if res.Removed > 0 {
		log.Printf("Removed %d existing messages", res.Removed)
	}
	log.Println("All done.")
}
