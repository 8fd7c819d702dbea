package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) *MongoRepository {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))
	return repo
}

func TestGetCart_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	cart, err := repo.GetCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestUpsertCart_RoundTripsVariants(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	size := "M"
	p1, p2 := uuid.NewString(), uuid.NewString()

	cart := &domain.Cart{UserID: "user123"}
	require.NoError(t, cart.AddItem(p1, 2, &domain.Variant{Size: &size}, time.Now()))
	require.NoError(t, cart.AddItem(p2, 1, nil, time.Now()))
	require.NoError(t, repo.UpsertCart(ctx, cart))

	stored, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, p1, stored.Items[0].ProductID)
	require.NotNil(t, stored.Items[0].SelectedVariant)
	assert.Equal(t, "M", *stored.Items[0].SelectedVariant.Size)
	assert.Nil(t, stored.Items[0].SelectedVariant.Color)
	assert.Nil(t, stored.Items[1].SelectedVariant)
}

// A cart read back from the store carries its _id; writing it again must not
// try to modify that immutable field.
func TestUpsertCart_ReplacesItemsOfExistingCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	cart := &domain.Cart{UserID: "user123"}
	require.NoError(t, cart.AddItem(uuid.NewString(), 1, nil, time.Now()))
	require.NoError(t, repo.UpsertCart(ctx, cart))

	stored, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	createdAt := stored.CreatedAt

	stored.Clear()
	require.NoError(t, repo.UpsertCart(ctx, stored))

	cleared, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
	assert.Equal(t, stored.ID, cleared.ID)
	assert.WithinDuration(t, createdAt, cleared.CreatedAt, time.Millisecond)
}

func TestContextCancellation(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetCart(ctx, "user123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
