package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbehrens/kalle-tracker/internal/notification"
	"github.com/mbehrens/kalle-tracker/internal/protocol"
	"github.com/mbehrens/kalle-tracker/internal/queue"
	"github.com/mbehrens/kalle-tracker/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Notification Service...")

	// Create email notifier
	emailNotifier := notification.NewEmailNotifier(&cfg.SMTP)

	// Test SMTP connection (optional, will skip if not configured)
	if err := emailNotifier.TestConnection(); err != nil {
		fmt.Printf("Note: %v (notifications will be logged only)\n", err)
	}

	// Create Telegram notifier (nil when no bot token is configured)
	telegramNotifier, err := notification.NewTelegramNotifier(&cfg.Telegram)
	if err != nil {
		log.Fatalf("Failed to create Telegram notifier: %v", err)
	}
	if telegramNotifier == nil {
		fmt.Println("Telegram not configured, skipping")
	}

	// Create consumer for alert notifications
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "notification-group")
	defer consumer.Close()
	fmt.Println("Kafka consumer initialized")

	ctx := context.Background()

	fmt.Println("\n✓ Notification Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Start consuming notifications
	go func() {
		for {
			msg, err := consumer.Consume(ctx)
			if err != nil {
				log.Printf("Failed to consume message: %v\n", err)
				continue
			}

			// Decode alert notification
			alert, err := protocol.DecodeAlertNotification(msg.Value)
			if err != nil {
				log.Printf("Failed to decode notification: %v\n", err)
				consumer.Commit(ctx, msg)
				continue
			}

			// Send notification
			if err := emailNotifier.SendAlertNotification(alert); err != nil {
				log.Printf("Failed to send email: %v\n", err)
				// Don't commit on error - retry
				continue
			}

			if telegramNotifier != nil {
				if err := telegramNotifier.SendAlertNotification(alert); err != nil {
					log.Printf("Failed to send Telegram message: %v\n", err)
				}
			}

			// Commit offset
			if err := consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit offset: %v\n", err)
			}
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
