package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// InsertEvent inserts a logged care event. Duplicate IDs are ignored so
// the batch writer can safely replay uncommitted Kafka offsets.
func (db *DB) InsertEvent(event *Event) error {
	query := `
		INSERT INTO events (id, event_type, event_time, ph_value, weight_kg, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := db.Exec(
		query,
		event.ID,
		string(event.Type),
		event.Time,
		event.PHValue,
		event.WeightKg,
		event.ReceivedAt,
	)
	return err
}

// DeleteEvent removes an event by ID (swipe-to-delete on the client).
func (db *DB) DeleteEvent(id string) error {
	_, err := db.Exec(`DELETE FROM events WHERE id = $1`, id)
	return err
}

// EventsSince returns all events with event_time >= since, oldest first.
func (db *DB) EventsSince(since time.Time) ([]Event, error) {
	query := `
		SELECT id, event_type, event_time, ph_value, weight_kg, received_at
		FROM events
		WHERE event_time >= $1
		ORDER BY event_time ASC
	`

	rows, err := db.Query(query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var eventType string
		if err := rows.Scan(
			&e.ID,
			&eventType,
			&e.Time,
			&e.PHValue,
			&e.WeightKg,
			&e.ReceivedAt,
		); err != nil {
			return nil, err
		}
		e.Type = EventType(eventType)
		events = append(events, e)
	}

	return events, rows.Err()
}

// EventsBetween returns all events in [from, to), oldest first.
func (db *DB) EventsBetween(from, to time.Time) ([]Event, error) {
	query := `
		SELECT id, event_type, event_time, ph_value, weight_kg, received_at
		FROM events
		WHERE event_time >= $1 AND event_time < $2
		ORDER BY event_time ASC
	`

	rows, err := db.Query(query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var eventType string
		if err := rows.Scan(
			&e.ID,
			&eventType,
			&e.Time,
			&e.PHValue,
			&e.WeightKg,
			&e.ReceivedAt,
		); err != nil {
			return nil, err
		}
		e.Type = EventType(eventType)
		events = append(events, e)
	}

	return events, rows.Err()
}

// InsertAnomalyLog inserts a record of a triggered alert
func (db *DB) InsertAnomalyLog(entry *AnomalyLog) error {
	query := `
		INSERT INTO anomalies_log (
			anomaly_type, severity, title, description, related_event_id, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return db.QueryRow(
		query,
		entry.AnomalyType,
		entry.Severity,
		entry.Title,
		entry.Description,
		entry.RelatedEventID,
		entry.TriggeredAt,
	).Scan(&entry.ID)
}

// RecentAnomalyLogs returns the most recent alert records, newest first.
func (db *DB) RecentAnomalyLogs(limit int) ([]*AnomalyLog, error) {
	query := `
		SELECT id, anomaly_type, severity, title, description, related_event_id, triggered_at, created_at
		FROM anomalies_log
		ORDER BY triggered_at DESC
		LIMIT $1
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AnomalyLog
	for rows.Next() {
		var a AnomalyLog
		if err := rows.Scan(
			&a.ID,
			&a.AnomalyType,
			&a.Severity,
			&a.Title,
			&a.Description,
			&a.RelatedEventID,
			&a.TriggeredAt,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &a)
	}

	return entries, rows.Err()
}
