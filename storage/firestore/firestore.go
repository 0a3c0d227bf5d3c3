// Package firestore provides a Firestore implementation of the premium.UserStore interface.
// User records are documents in a collection, matched on their "email" field.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

const (
	fieldEmail        = "email"
	fieldIsPremium    = "is_premium"
	fieldStorageLimit = "storage_limit"
)

// Storage implements premium.UserStore using Google Cloud Firestore
type Storage struct {
	client          *firestore.Client
	usersCollection string
}

var _ premium.UserStore = (*Storage)(nil)

// Config holds Firestore storage configuration
type Config struct {
	// UsersCollection is the Firestore collection holding user documents
	// Default: "users"
	UsersCollection string
}

// New creates a new Firestore storage adapter
func New(client *firestore.Client, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	// Set defaults
	if config.UsersCollection == "" {
		config.UsersCollection = "users"
	}

	return &Storage{
		client:          client,
		usersCollection: config.UsersCollection,
	}, nil
}

// UpgradeUser implements premium.UserStore.
// Every document whose email matches is updated; documents deleted between
// the query and the update are not counted.
func (s *Storage) UpgradeUser(ctx context.Context, email string, upgrade premium.UserUpgrade) (int64, error) {
	docs, err := s.client.Collection(s.usersCollection).
		Where(fieldEmail, "==", email).
		Documents(ctx).
		GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to query users: %w", err)
	}

	updates := []firestore.Update{
		{Path: fieldIsPremium, Value: upgrade.IsPremium},
		{Path: fieldStorageLimit, Value: upgrade.StorageLimit},
	}

	var affected int64
	for _, doc := range docs {
		if _, err := doc.Ref.Update(ctx, updates); err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return affected, fmt.Errorf("failed to update user %s: %w", doc.Ref.ID, err)
		}
		affected++
	}
	return affected, nil
}
