package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dragonvpn-app/internal/logger"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// NewDatabase opens the Postgres database backing the durable client storage.
func NewDatabase(url string) (*sql.DB, error) {
	return newDatabaseWithDriver(url, "postgres")
}

func newDatabaseWithDriver(url, driver string) (*sql.DB, error) {
	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.L().Info("Database connection established")
	return db, nil
}
