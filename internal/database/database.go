package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/theblitlabs/tinyml-runner/internal/database/migrations"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

// Connect opens and pings a postgres connection.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate applies every embedded migration in direction.
func Migrate(ctx context.Context, db *sqlx.DB, direction migrations.Direction) error {
	log := logger.WithComponent("database.migrate")

	files, err := migrations.Load(direction)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s migration files found", direction)
	}

	for _, m := range files {
		log.Info().Str("file", m.Name).Msgf("Executing %s migration", direction)
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.Name, err)
		}
	}

	log.Info().Int("count", len(files)).Msgf("Migrations (%s) completed successfully", direction)
	return nil
}
