package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/SilverStorm2/currency-exchange-app/deploy/config"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

// Storage keeps the widget state in a single key-value table. The payload
// column holds the same JSON documents the other adapters store verbatim.
type Storage struct {
	db  *pgxpool.Pool
	cfg *config.Config
}

func NewStorage(pool *pgxpool.Pool, cfg *config.Config) *Storage {
	return &Storage{
		db:  pool,
		cfg: cfg,
	}
}

func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	const op = "storage.postgres.New"

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		cfg.Storage.Host,
		cfg.Storage.Port,
		cfg.Storage.User,
		cfg.Storage.Password,
		cfg.Storage.DBName,
		cfg.Storage.SSLMode,
		cfg.Storage.Schema,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: parse config failed: %w", op, err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("pgxpool connect failed", "error", err)
		return nil, fmt.Errorf("%s: pgxpool connect failed: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		slog.Error("pgxpool ping failed", "error", err)
		pool.Close()
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	storage := NewStorage(pool, cfg)

	if err := storage.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	slog.Info("PostgresSQL storage initialized successfully")
	return storage, nil
}

func (s *Storage) ensureSchema(ctx context.Context) error {
	const op = "storage.postgres.ensureSchema"

	query := `
		CREATE TABLE IF NOT EXISTS widget_state (
			key        text PRIMARY KEY,
			payload    jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)
	`

	if _, err := s.db.Exec(ctx, query); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.postgres.Get"

	query := `SELECT payload FROM widget_state WHERE key = $1`

	var payload []byte
	if err := s.db.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrNotFound
		}
		return nil, errors.Wrap(err, op)
	}

	return payload, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	const op = "storage.postgres.Set"

	query := `
		INSERT INTO widget_state (key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()
	`

	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.postgres.Delete"

	query := `DELETE FROM widget_state WHERE key = $1`

	if _, err := s.db.Exec(ctx, query, key); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Storage) Close() {
	s.db.Close()
}
