package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage bundles the pgx-backed storage implementations.
type PostgresStorage struct {
	pool      *pgxpool.Pool
	intakes   *PostgresIntakeStorage
	templates *PostgresTemplateStorage
}

func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:      pool,
		intakes:   NewPostgresIntakeStorage(pool),
		templates: NewPostgresTemplateStorage(pool),
	}, nil
}

func (s *PostgresStorage) GetIntakeStorage() *PostgresIntakeStorage {
	return s.intakes
}

func (s *PostgresStorage) GetTemplateStorage() *PostgresTemplateStorage {
	return s.templates
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
