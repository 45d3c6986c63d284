package database

import (
	"context"
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS venues (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		address VARCHAR(255) NOT NULL,
		lat DOUBLE NULL,
		lon DOUBLE NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		venue_id BIGINT UNSIGNED NOT NULL,
		title VARCHAR(255) NOT NULL,
		date CHAR(10) NOT NULL,
		time CHAR(5) NOT NULL,
		price INT NOT NULL,
		remaining INT NOT NULL DEFAULT 250,
		CONSTRAINT fk_events_venue FOREIGN KEY (venue_id) REFERENCES venues(id),
		CONSTRAINT chk_events_remaining CHECK (remaining >= 0),
		INDEX idx_events_venue_schedule (venue_id, date, time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS venues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL,
		lat REAL,
		lon REAL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		venue_id INTEGER NOT NULL REFERENCES venues(id),
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		price INTEGER NOT NULL,
		remaining INTEGER NOT NULL DEFAULT 250 CHECK (remaining >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_venue_schedule ON events(venue_id, date, time)`,
}

// Migrate creates the venues and events tables when they do not exist.
// Statements are idempotent, so Migrate is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts := mysqlSchema
	if driver == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
