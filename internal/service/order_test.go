package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercavio/checkout/internal/model"
)

func TestOrderCreateComputesTotals(t *testing.T) {
	env := newTestEnv(t)

	order := placeOrder(t, env, model.MethodCard)

	assert.True(t, strings.HasPrefix(order.Reference, "ORD-"))
	assert.Equal(t, model.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, "tienda-sol", order.VendorID)
	assert.Equal(t, int64(100000), order.Subtotal)
	assert.Equal(t, int64(19000), order.IVA)
	assert.Equal(t, int64(15000), order.Shipping)
	assert.Equal(t, int64(134000), order.Total)
	assert.Equal(t, "COP", order.Currency)
}

func TestOrderCreateRepricesFromCatalog(t *testing.T) {
	env := newTestEnv(t)

	// the client claims a 1 peso price; the catalog wins
	in := createOrderInput(model.MethodCard)
	in.Items[0].UnitPrice = 1

	order, created, err := env.orders.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, int64(100000), order.Subtotal)
	assert.Equal(t, int64(134000), order.Total)

	items, err := env.orderRepo.GetItems(context.Background(), order.Reference)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(50000), items[0].UnitPrice)
}

func TestOrderCreateIdempotentPerCart(t *testing.T) {
	env := newTestEnv(t)

	first := placeOrder(t, env, model.MethodCard)

	again, created, err := env.orders.Create(context.Background(), createOrderInput(model.MethodCard))
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.Reference, again.Reference)
	assert.Equal(t, first.ID, again.ID)

	orders, err := env.orders.ListByBuyer(context.Background(), "buyer-ana")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// only the creating call announces the order
	assert.Len(t, env.publisher.created, 1)
	assert.Equal(t, first.Reference, env.publisher.created[0].Reference)
}

func TestOrderCreateChangedCartIsNewOrder(t *testing.T) {
	env := newTestEnv(t)

	first := placeOrder(t, env, model.MethodCard)

	in := createOrderInput(model.MethodCard)
	in.Items[0].Quantity = 3
	second, created, err := env.orders.Create(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, created)
	assert.NotEqual(t, first.Reference, second.Reference)
}

func TestOrderCreatePriceMismatch(t *testing.T) {
	env := newTestEnv(t)

	in := createOrderInput(model.MethodCard)
	in.DisplayedTotal = 120000

	_, _, err := env.orders.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrPriceMismatch)
}

func TestOrderCreateToleratesOnePesoDrift(t *testing.T) {
	env := newTestEnv(t)

	in := createOrderInput(model.MethodCard)
	in.DisplayedTotal = 134001

	_, created, err := env.orders.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestOrderCreateMixedVendorCart(t *testing.T) {
	env := newTestEnv(t)

	in := createOrderInput(model.MethodCard)
	in.Items = append(in.Items, model.CartItem{ProductID: "prod-tinto", Quantity: 1, UnitPrice: 10000})

	_, _, err := env.orders.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrMixedVendorCart)
}

func TestOrderCreateInsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	in := createOrderInput(model.MethodCard)
	in.Items[0].Quantity = 11

	_, _, err := env.orders.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestOrderCreateUntrackedStockAlwaysSells(t *testing.T) {
	env := newTestEnv(t)

	in := createOrderInput(model.MethodCard)
	in.Items = []model.CartItem{{ProductID: "prod-ruana", Quantity: 500, UnitPrice: 25000}}

	order, created, err := env.orders.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(12500000), order.Subtotal)
}

func TestOrderCreateUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	in := createOrderInput(model.MethodCard)
	in.Items[0].ProductID = "prod-fantasma"

	_, _, err := env.orders.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(in *CreateOrderInput)
	}{
		{"empty cart", func(in *CreateOrderInput) { in.Items = nil }},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }},
		{"missing address name", func(in *CreateOrderInput) { in.Address.Name = "" }},
		{"bad phone", func(in *CreateOrderInput) { in.Address.Phone = "abc" }},
		{"unknown method", func(in *CreateOrderInput) { in.PaymentMethod = "paypal" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createOrderInput(model.MethodCard)
			tt.mutate(in)

			_, _, err := env.orders.Create(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestOrderCreateOfflineMethodSkipsGateway(t *testing.T) {
	env := newTestEnv(t)

	order := placeOrder(t, env, model.MethodCashOnDelivery)
	assert.Equal(t, model.OrderStatusPendingFulfillment, order.Status)

	in := createOrderInput(model.MethodBankTransfer)
	in.Items[0].Quantity = 1
	other, created, err := env.orders.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, model.OrderStatusPendingFulfillment, other.Status)
}

func TestOrderCreateFreeShippingOverThreshold(t *testing.T) {
	env := newTestEnv(t)

	in := createOrderInput(model.MethodCard)
	in.Items[0].Quantity = 4 // 200000, right at the threshold

	order, _, err := env.orders.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(0), order.Shipping)
	assert.Equal(t, int64(238000), order.Total)
}

func TestOrderRetrySwitchesMethod(t *testing.T) {
	env := newTestEnv(t)

	placeOrder(t, env, model.MethodCard)

	// same cart, new method: the unpaid order follows the choice
	order, created, err := env.orders.Create(context.Background(), createOrderInput(model.MethodPSE))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.MethodPSE, order.PaymentMethod)
	assert.Equal(t, model.OrderStatusPendingPayment, order.Status)

	// switching to an offline method parks the order for fulfillment
	order, _, err = env.orders.Create(context.Background(), createOrderInput(model.MethodCashOnDelivery))
	require.NoError(t, err)
	assert.Equal(t, model.MethodCashOnDelivery, order.PaymentMethod)
	assert.Equal(t, model.OrderStatusPendingFulfillment, order.Status)

	stored, err := env.orderRepo.FindByReference(context.Background(), order.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.MethodCashOnDelivery, stored.PaymentMethod)
}

func TestOrderMethodSwitchBlockedByOpenAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := placeOrder(t, env, model.MethodCard)
	require.NoError(t, env.txRepo.CreateOpen(ctx, env.db, &model.Transaction{
		OrderReference: order.Reference,
		Provider:       "placetopay",
		Amount:         order.Total,
		Currency:       "COP",
	}))

	_, _, err := env.orders.Create(ctx, createOrderInput(model.MethodPSE))
	assert.ErrorIs(t, err, ErrTransactionInFlight)
}

func TestOrderMethodSwitchIgnoredOncePaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := placeOrder(t, env, model.MethodCard)
	require.NoError(t, env.db.Model(&model.Order{}).
		Where("reference = ?", order.Reference).
		Update("status", model.OrderStatusPaid).Error)

	got, created, err := env.orders.Create(ctx, createOrderInput(model.MethodPSE))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.MethodCard, got.PaymentMethod)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
}

func TestOrderGetByReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := placeOrder(t, env, model.MethodCard)
	require.NoError(t, env.txRepo.CreateOpen(ctx, env.db, &model.Transaction{
		OrderReference: order.Reference,
		Provider:       "placetopay",
		Amount:         order.Total,
		Currency:       "COP",
	}))

	detail, err := env.orders.GetByReference(ctx, order.Reference)
	require.NoError(t, err)

	assert.Equal(t, order.Reference, detail.Order.Reference)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "prod-poncho", detail.Items[0].ProductID)
	require.Len(t, detail.Transactions, 1)
	assert.Equal(t, model.TransactionStatusInitializing, detail.Transactions[0].Status)
}

func TestOrderGetByReferenceNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orders.GetByReference(context.Background(), "ORD-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderListByBuyer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	placeOrder(t, env, model.MethodCard)

	in := createOrderInput(model.MethodCard)
	in.Items[0].Quantity = 1
	_, _, err := env.orders.Create(ctx, in)
	require.NoError(t, err)

	orders, err := env.orders.ListByBuyer(ctx, "buyer-ana")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = env.orders.ListByBuyer(ctx, "buyer-otro")
	require.NoError(t, err)
	assert.Empty(t, orders)
}
