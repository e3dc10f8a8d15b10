package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/hoyun5295-ctrl/targetup/internal/config"
	"github.com/hoyun5295-ctrl/targetup/internal/queue"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
	"github.com/hoyun5295-ctrl/targetup/internal/scheduler"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Verify database connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	// RabbitMQ is optional: without a broker the sweep still commits
	// transitions, dispatch intents are just log-only
	var publisher scheduler.DispatchPublisher
	if conn, err := queue.NewConnection(cfg.GetRabbitMQURL()); err != nil {
		log.Printf("⚠️  RabbitMQ unavailable, dispatch intents will be log-only: %v", err)
	} else {
		defer conn.Close()
		pub, err := queue.NewPublisher(conn, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Printf("⚠️  Failed to create publisher: %v", err)
		} else {
			publisher = pub
			log.Println("✅ Connected to RabbitMQ")
		}
	}

	campaignRepo := repository.NewCampaignRepository(db)
	sched := scheduler.New(campaignRepo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(cfg.Scheduler.SweepInterval)
	defer ticker.Stop()

	log.Printf("✅ Worker started, sweeping every %s", cfg.Scheduler.SweepInterval)

	// One sweep up front so a restart doesn't wait a full interval
	runSweep(ctx, sched)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, sched)
		case <-sigChan:
			log.Println("🛑 Shutting down gracefully...")
			cancel()
			log.Println("✅ Worker stopped")
			return
		}
	}
}

// runSweep performs one due-campaign sweep and logs the outcome
func runSweep(ctx context.Context, sched *scheduler.Scheduler) {
	results, err := sched.Sweep(ctx)
	if err != nil {
		log.Printf("❌ Sweep failed: %v", err)
		return
	}

	sent, skipped, failed := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			log.Printf("❌ Campaign %d dispatch failed: %v", r.Campaign.ID, r.Err)
		case r.Sent:
			sent++
		default:
			skipped++
		}
	}

	if len(results) > 0 {
		log.Printf("📨 Sweep done: %d sent, %d skipped, %d failed", sent, skipped, failed)
	}
}
