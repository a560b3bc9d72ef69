package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"premisewatch/internal/access"
	"premisewatch/internal/config"
	"premisewatch/internal/queue"
	"premisewatch/internal/store"
)

// Worker consumes security alert messages and persists them to the alert
// log. Alerting is best-effort end to end: a message that cannot be
// processed is logged and skipped, never retried into a hot loop.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "premisewatch:alerts")
	}

	repo := access.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("alert worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "alert" {
			continue
		}

		var alert access.Alert
		if err := json.Unmarshal(msg.Body, &alert); err != nil {
			log.Printf("malformed alert message: %v", err)
			continue
		}

		// Attach subject context when the record still exists; a missing
		// record is fine, the alert row stands on its own.
		if rec, err := repo.GetRecord(ctx, alert.RecordID); err == nil {
			log.Printf("alert %s: %s (%s at %s)", alert.Reason, rec.SubjectName, rec.Role, rec.LocationName)
		} else {
			log.Printf("alert %s: record %s", alert.Reason, alert.RecordID)
		}

		if err := repo.InsertAlert(ctx, alert); err != nil {
			log.Printf("alert persist failed for %s: %v", alert.RecordID, err)
			continue
		}
	}

	log.Println("alert worker stopped")
}
