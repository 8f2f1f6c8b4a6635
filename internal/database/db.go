package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when an operation targets a lot id
// that does not exist.
var ErrNotFound = errors.New("stock lot not found")

const (
	connAttempts = 10
	connTimeout  = time.Second
)

// DB wraps a PostgreSQL connection
type DB struct {
	conn *sql.DB
}

// New connects to PostgreSQL, retrying while the database comes up.
func New(connString string) (*DB, error) {
	var conn *sql.DB
	var err error

	for attempt := connAttempts; attempt > 0; attempt-- {
		conn, err = sql.Open("postgres", connString)
		if err == nil {
			err = conn.Ping()
		}
		if err == nil {
			break
		}

		slog.Info("postgres is trying to connect", slog.Int("attempts left", attempt-1))
		time.Sleep(connTimeout)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &DB{conn: conn}, nil
}

// Migrate applies all migrations from the given directory.
func (db *DB) Migrate(migrationsDir string) error {
	driver, err := postgres.WithInstance(db.conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsDir,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}
