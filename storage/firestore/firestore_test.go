package firestore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

const testProjectID = "test-project"

// setupFirestoreClient connects to the emulator named by FIRESTORE_EMULATOR_HOST
func setupFirestoreClient(t *testing.T) *firestore.Client {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("Skipping test: FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, testProjectID)
	if err != nil {
		t.Fatalf("Failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// getTestCollection returns a unique collection name for each test run
func getTestCollection(testName string) string {
	return fmt.Sprintf("test_users_%s_%d", testName, time.Now().UnixNano())
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}

func TestStorage_UpgradeUser(t *testing.T) {
	client := setupFirestoreClient(t)
	ctx := context.Background()
	collection := getTestCollection("upgrade")

	storage, err := New(client, Config{UsersCollection: collection})
	require.NoError(t, err)

	_, err = client.Collection(collection).Doc("u1").Set(ctx, map[string]interface{}{
		"email": "a@example.com", "is_premium": false, "storage_limit": int64(1 << 30),
	})
	require.NoError(t, err)
	_, err = client.Collection(collection).Doc("u2").Set(ctx, map[string]interface{}{
		"email": "b@example.com", "is_premium": false, "storage_limit": int64(1 << 30),
	})
	require.NoError(t, err)

	rows, err := storage.UpgradeUser(ctx, "a@example.com", premium.PremiumUpgrade())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	snap, err := client.Collection(collection).Doc("u1").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, snap.Data()["is_premium"])
	assert.Equal(t, premium.PremiumStorageLimit, snap.Data()["storage_limit"])

	snap, err = client.Collection(collection).Doc("u2").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, snap.Data()["is_premium"])
}

func TestStorage_UpgradeUser_NoMatch(t *testing.T) {
	client := setupFirestoreClient(t)
	storage, err := New(client, Config{UsersCollection: getTestCollection("nomatch")})
	require.NoError(t, err)

	rows, err := storage.UpgradeUser(context.Background(), "ghost@example.com", premium.PremiumUpgrade())
	require.NoError(t, err)
	assert.Zero(t, rows)
}
