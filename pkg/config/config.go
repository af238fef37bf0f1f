package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	TCPServer TCPServerConfig
	Tracker   TrackerConfig
	Scheduler SchedulerConfig
	SMTP      SMTPConfig
	Telegram  TelegramConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicEvents   string
	TopicAlerts   string
	NumPartitions int
}

type TCPServerConfig struct {
	Port              int
	MaxConnections    int
	WorkerCount       int
	JobQueueSize      int
	IdentifyTimeout   time.Duration
	InactivityTimeout time.Duration
}

// TrackerConfig carries the default care settings for the dog. These seed
// the Redis-backed settings store on first start; after that the stored
// snapshot wins.
type TrackerConfig struct {
	DogName           string
	MorningWalkTime   string
	WalkIntervalHours float64
	SleepStartHour    float64
	SleepEndHour      float64
	CountdownMode     string
	Birthday          string // YYYY-MM-DD, empty if unknown
	EventWindowDays   int
}

type SchedulerConfig struct {
	CalendarFeedURL  string
	PlanBuildTime    string // HH:MM, daily plan build
	ReminderLeadTime time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "kalle_user"),
			Password: getEnv("DB_PASSWORD", "kalle_pass"),
			DBName:   getEnv("DB_NAME", "kalle_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicEvents:   getEnv("KAFKA_TOPIC_EVENTS", "kalle.events.raw"),
			TopicAlerts:   getEnv("KAFKA_TOPIC_ALERTS", "kalle.alerts"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 4),
		},
		TCPServer: TCPServerConfig{
			Port:              getEnvAsInt("TCP_PORT", 8080),
			MaxConnections:    getEnvAsInt("TCP_MAX_CONNECTIONS", 100),
			WorkerCount:       getEnvAsInt("TCP_WORKER_COUNT", 4),
			JobQueueSize:      getEnvAsInt("TCP_JOB_QUEUE_SIZE", 256),
			IdentifyTimeout:   getEnvAsDuration("TCP_IDENTIFY_TIMEOUT", 10*time.Second),
			InactivityTimeout: getEnvAsDuration("TCP_INACTIVITY_TIMEOUT", 5*time.Minute),
		},
		Tracker: TrackerConfig{
			DogName:           getEnv("TRACKER_DOG_NAME", "Kalle"),
			MorningWalkTime:   getEnv("TRACKER_MORNING_WALK_TIME", "07:00"),
			WalkIntervalHours: getEnvAsFloat("TRACKER_WALK_INTERVAL_HOURS", 4),
			SleepStartHour:    getEnvAsFloat("TRACKER_SLEEP_START_HOUR", 22),
			SleepEndHour:      getEnvAsFloat("TRACKER_SLEEP_END_HOUR", 6.5),
			CountdownMode:     getEnv("TRACKER_COUNTDOWN_MODE", "count_down"),
			Birthday:          getEnv("TRACKER_BIRTHDAY", ""),
			EventWindowDays:   getEnvAsInt("TRACKER_EVENT_WINDOW_DAYS", 90),
		},
		Scheduler: SchedulerConfig{
			CalendarFeedURL:  getEnv("SCHEDULER_CALENDAR_FEED_URL", ""),
			PlanBuildTime:    getEnv("SCHEDULER_PLAN_BUILD_TIME", "05:00"),
			ReminderLeadTime: getEnvAsDuration("SCHEDULER_REMINDER_LEAD_TIME", 15*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "kalle-tracker@example.com"),
			To:       getEnv("SMTP_TO", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
