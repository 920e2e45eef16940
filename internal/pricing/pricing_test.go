package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mercavio/checkout/internal/model"
)

func testEngine() Engine {
	return NewEngine(decimal.RequireFromString("0.19"))
}

func TestComputeBelowThresholdScenario(t *testing.T) {
	// subtotal 100,000 COP with 15,000 shipping
	engine := testEngine()
	items := []model.CartItem{
		{ProductID: "sku-1", Quantity: 2, UnitPrice: 50000},
	}

	quote := engine.Compute(items, 15000)

	assert.Equal(t, int64(100000), quote.Subtotal)
	assert.Equal(t, int64(19000), quote.IVA)
	assert.Equal(t, int64(15000), quote.Shipping)
	assert.Equal(t, int64(134000), quote.Total)
}

func TestComputeFreeShippingScenario(t *testing.T) {
	// subtotal 500,000 COP ships free
	engine := testEngine()
	items := []model.CartItem{
		{ProductID: "sku-1", Quantity: 5, UnitPrice: 100000},
	}

	quote := engine.Compute(items, 0)

	assert.Equal(t, int64(500000), quote.Subtotal)
	assert.Equal(t, int64(95000), quote.IVA)
	assert.Equal(t, int64(0), quote.Shipping)
	assert.Equal(t, int64(595000), quote.Total)
}

func TestComputeRoundsHalfUp(t *testing.T) {
	engine := testEngine()

	tests := []struct {
		name      string
		unitPrice int64
		wantIVA   int64
	}{
		// 50 * 0.19 = 9.5 rounds to 10
		{"half rounds up", 50, 10},
		// 7 * 0.19 = 1.33 rounds to 1
		{"below half rounds down", 7, 1},
		// 4 * 0.19 = 0.76 rounds to 1
		{"above half rounds up", 4, 1},
		{"zero subtotal", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote := engine.Compute([]model.CartItem{
				{ProductID: "sku-1", Quantity: 1, UnitPrice: tt.unitPrice},
			}, 0)
			assert.Equal(t, tt.wantIVA, quote.IVA)
		})
	}
}

func TestComputeTotalLaw(t *testing.T) {
	engine := testEngine()

	carts := [][]model.CartItem{
		{{ProductID: "a", Quantity: 1, UnitPrice: 1}},
		{{ProductID: "a", Quantity: 3, UnitPrice: 33333}},
		{
			{ProductID: "a", Quantity: 2, UnitPrice: 14999},
			{ProductID: "b", Quantity: 1, UnitPrice: 89000},
			{ProductID: "c", Quantity: 7, UnitPrice: 120},
		},
	}

	for _, items := range carts {
		for _, shipping := range []int64{0, 9000, 15000} {
			quote := engine.Compute(items, shipping)
			assert.Equal(t, quote.Subtotal+quote.IVA+quote.Shipping, quote.Total)
			assert.Equal(t, shipping, quote.Shipping)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	engine := testEngine()
	items := []model.CartItem{
		{ProductID: "sku-1", Quantity: 3, UnitPrice: 41999},
	}

	first := engine.Compute(items, 15000)
	second := engine.Compute(items, 15000)

	assert.Equal(t, first, second)
}
