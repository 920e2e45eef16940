package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercavio/checkout/internal/model"
)

func storedSession(id string) *Session {
	cost := int64(15000)
	return &Session{
		ID:      id,
		BuyerID: "buyer-1",
		Step:    StepShipping,
		Cart: model.CartSnapshot{Items: []model.CartItem{
			{ProductID: "sku-1", Quantity: 2, UnitPrice: 50000},
		}},
		ShippingCost: &cost,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestMemoryStoreSaveGetRoundtrip(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storedSession("s-1")))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", got.BuyerID)
	assert.Equal(t, StepShipping, got.Step)
	require.NotNil(t, got.ShippingCost)
	assert.Equal(t, int64(15000), *got.ShippingCost)
	assert.Len(t, got.Cart.Items, 1)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storedSession("s-1")))
	time.Sleep(25 * time.Millisecond)

	_, err := store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storedSession("s-1")))

	first, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	first.Step = StepConfirmation
	first.Cart.Items[0].Quantity = 99

	second, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, StepShipping, second.Step)
	assert.Equal(t, int32(2), second.Cart.Items[0].Quantity)
}

func TestMemoryStoreProcessingGate(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	acquired, err := store.AcquireProcessing(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	// second caller is turned away while the gate is held
	acquired, err = store.AcquireProcessing(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, store.ReleaseProcessing(ctx, "s-1"))

	acquired, err = store.AcquireProcessing(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryStoreGateIsPerSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	acquired, err := store.AcquireProcessing(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = store.AcquireProcessing(ctx, "s-2")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storedSession("s-1")))
	_, err := store.AcquireProcessing(ctx, "s-1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "s-1"))

	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// deleting the session frees its gate too
	acquired, err := store.AcquireProcessing(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}
