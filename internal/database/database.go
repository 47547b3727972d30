package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

var DB *sql.DB

// InitDB opens the connection pool and brings the schema up to date.
func InitDB(host, port, user, password, dbname, sslmode, migrationsDir string) error {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	log.Info().Str("host", host).Str("database", dbname).Msg("Connected to database")

	if migrationsDir != "" {
		if err := runMigrations(DB, migrationsDir); err != nil {
			return err
		}
	}
	return nil
}

func runMigrations(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	log.Info().Str("dir", dir).Msg("Migrations applied")
	return nil
}

// GetDB returns the database connection pool.
func GetDB() *sql.DB {
	return DB
}
