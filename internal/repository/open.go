// Package repository selects and opens the configured metadata store.
package repository

import (
	"context"
	"fmt"

	"imgmeta/internal/config"
	"imgmeta/internal/port"
	"imgmeta/internal/repository/badgerdb"
	"imgmeta/internal/repository/dynamodb"
	"imgmeta/internal/repository/memory"
	"imgmeta/internal/repository/postgres"
)

// Open returns the ImageRepository for cfg.Store.Driver and a function that
// releases its resources.
func Open(ctx context.Context, cfg *config.Config) (port.ImageRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.StoreDynamoDB:
		client, err := dynamodb.NewClient(ctx, &cfg.DynamoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing dynamodb: %w", err)
		}
		return dynamodb.NewImageRepo(client, &cfg.DynamoDB), noop, nil

	case config.StorePostgres:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewImageRepo(db), db.Close, nil

	case config.StoreBadger:
		db, err := badgerdb.Open(&cfg.Badger)
		if err != nil {
			return nil, nil, err
		}
		return badgerdb.NewImageRepo(db), db.Close, nil

	case config.StoreMemory:
		return memory.NewImageRepo(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
