package crawlerdb

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Postgres represents a Postgres database client.
type Postgres struct {
	db *sqlx.DB
}

// New creates a new Postgres client.
func New(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db}, err
}

// NewFromDB wraps an existing connection pool.
func NewFromDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Connect creates a new Postgres client, retrying while the database comes
// up. It gives up after retries failed attempts.
func Connect(ctx context.Context, dsn string, retries int, logger *zap.Logger) (*Postgres, error) {
	sleep := 5 * time.Second
	for count := 0; ; count++ {
		p, err := New(dsn)
		if err == nil {
			return p, nil
		}
		if count >= retries {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		logger.Warn("database not ready, retrying", zap.Duration("sleep", sleep), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		sleep += 3 * time.Second
	}
}
