package store_test

import (
	"context"
	"testing"

	catalog "github.com/fjod/go_storefront/internal/catalog/repository"
	"github.com/fjod/go_storefront/internal/inventory/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	beltID  = "0b6a3c5e-1f41-4a8e-9a57-3f1c2d4e5a04" // seeded with 8
	socksID = "0b6a3c5e-1f41-4a8e-9a57-3f1c2d4e5a05" // seeded with 0
)

func setupLedger(t *testing.T) (*store.SQLiteLedger, *catalog.Repository) {
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations("../../catalog/repository/migrations"))

	return store.NewSQLiteLedger(repo.DB()), repo
}

func TestSQLiteLedger_Adjust(t *testing.T) {
	ledger, repo := setupLedger(t)
	ctx := context.Background()

	qty, err := ledger.Adjust(ctx, beltID, -3)
	require.NoError(t, err)
	assert.Equal(t, 5, qty)

	// the catalog sees the same counter
	p, err := repo.GetProduct(ctx, beltID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)
}

func TestSQLiteLedger_Adjust_DoesNotClamp(t *testing.T) {
	ledger, _ := setupLedger(t)

	qty, err := ledger.Adjust(context.Background(), socksID, -2)

	require.NoError(t, err)
	assert.Equal(t, -2, qty)
}

func TestSQLiteLedger_Adjust_UnknownProduct(t *testing.T) {
	ledger, _ := setupLedger(t)

	_, err := ledger.Adjust(context.Background(), uuid.NewString(), -1)
	assert.ErrorIs(t, err, store.ErrProductNotFound)
}

func TestSQLiteLedger_TryConsume(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	qty, err := ledger.TryConsume(ctx, beltID, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	qty, err = ledger.TryConsume(ctx, beltID, 1)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 0, qty)

	_, err = ledger.TryConsume(ctx, uuid.NewString(), 1)
	assert.ErrorIs(t, err, store.ErrProductNotFound)
}

func TestSQLiteLedger_StockKeepsRequestOrder(t *testing.T) {
	ledger, _ := setupLedger(t)

	levels, err := ledger.Stock(context.Background(), []string{socksID, uuid.NewString(), beltID})

	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, store.StockLevel{ProductID: socksID, Quantity: 0}, levels[0])
	assert.Equal(t, store.StockLevel{ProductID: beltID, Quantity: 8}, levels[1])
}

func TestSQLiteLedger_SetStock(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.SetStock(ctx, socksID, 30))
	levels, err := ledger.Stock(ctx, []string{socksID})
	require.NoError(t, err)
	assert.Equal(t, 30, levels[0].Quantity)

	assert.ErrorIs(t, ledger.SetStock(ctx, uuid.NewString(), 1), store.ErrProductNotFound)
	assert.ErrorIs(t, ledger.SetStock(ctx, socksID, -1), store.ErrNegativeStock)
}
