package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/mihaimyh/premiumgate/pkg/config"
	"github.com/mihaimyh/premiumgate/pkg/premium"
	firestorestore "github.com/mihaimyh/premiumgate/storage/firestore"
	"github.com/mihaimyh/premiumgate/storage/memory"
	"github.com/mihaimyh/premiumgate/storage/postgres"
	"github.com/mihaimyh/premiumgate/storage/postgrest"
)

// newUserStore opens the backend selected by USER_STORE. The returned func
// releases its connections.
func newUserStore(ctx context.Context, cfg config.Config) (premium.UserStore, func(), error) {
	noop := func() {}

	switch cfg.UserStore {
	case config.StorePostgREST:
		store, err := postgrest.New(postgrest.Config{
			URL:        cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Table:      cfg.UsersTable,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgrest store: %w", err)
		}
		return store, noop, nil

	case config.StorePostgres:
		pgConfig := postgres.DefaultConfig()
		pgConfig.ConnectionString = cfg.DatabaseURL
		pgConfig.Table = cfg.UsersTable
		store, err := postgres.New(ctx, pgConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		return store, store.Close, nil

	case config.StoreFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		store, err := firestorestore.New(client, firestorestore.Config{UsersCollection: cfg.UsersTable})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil

	case config.StoreMemory:
		return memory.New(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
	}
}
