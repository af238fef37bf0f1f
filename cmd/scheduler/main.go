package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/mbehrens/kalle-tracker/internal/database"
	"github.com/mbehrens/kalle-tracker/internal/queue"
	"github.com/mbehrens/kalle-tracker/internal/schedule"
	"github.com/mbehrens/kalle-tracker/internal/settings"
	"github.com/mbehrens/kalle-tracker/internal/timer"
	"github.com/mbehrens/kalle-tracker/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Scheduler Service...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	// Create settings store
	settingsStore := settings.NewStore(redisClient, &cfg.Tracker)

	// Create alert producer for walk reminders
	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()
	fmt.Println("Alert producer initialized")

	// Create timer manager for one-shot reminders
	timerManager := timer.NewManager()
	timerManager.Start()
	defer timerManager.Stop()
	fmt.Println("Timer manager started")

	// Create planner
	planner := schedule.NewPlanner(
		db,
		settingsStore,
		alertProducer,
		timerManager,
		cfg.Tracker.DogName,
		cfg.Scheduler.CalendarFeedURL,
		cfg.Scheduler.ReminderLeadTime,
	)

	// Build today's plan right away
	if _, err := planner.BuildTodayPlan(ctx); err != nil {
		log.Printf("Failed to build today's plan: %v\n", err)
	}

	// Rebuild the plan every morning at the configured time
	cronExpr, err := cronSpecFromClock(cfg.Scheduler.PlanBuildTime)
	if err != nil {
		log.Fatalf("Invalid plan build time %q: %v", cfg.Scheduler.PlanBuildTime, err)
	}

	c := cron.New()
	_, err = c.AddFunc(cronExpr, func() {
		fmt.Println("\n--- Rebuilding Day Plan ---")
		if _, err := planner.BuildTodayPlan(ctx); err != nil {
			log.Printf("Failed to build plan: %v\n", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule plan build: %v", err)
	}
	c.Start()
	defer c.Stop()
	fmt.Printf("Daily plan build scheduled at %s\n", cfg.Scheduler.PlanBuildTime)

	fmt.Println("\n✓ Scheduler Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}

// cronSpecFromClock converts "HH:MM" to a daily cron expression.
func cronSpecFromClock(clock string) (string, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("expected HH:MM")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
