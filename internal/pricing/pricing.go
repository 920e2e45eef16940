package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/mercavio/checkout/internal/model"
)

// Quote is the priced view of a cart in COP minor units (0 decimals).
type Quote struct {
	Subtotal int64 `json:"subtotal"`
	IVA      int64 `json:"iva"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// Engine computes order totals. Pure: no I/O, no state beyond the IVA rate.
// The same computation runs at quote time and at order creation; any
// divergence between the two is rejected upstream, never corrected here.
type Engine interface {
	Compute(items []model.CartItem, shippingCost int64) Quote
	IVARate() decimal.Decimal
}

type engineImpl struct {
	ivaRate decimal.Decimal
}

func NewEngine(ivaRate decimal.Decimal) Engine {
	return &engineImpl{ivaRate: ivaRate}
}

func (e *engineImpl) Compute(items []model.CartItem, shippingCost int64) Quote {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	// COP has no decimal places; halves round up
	iva := decimal.NewFromInt(subtotal).
		Mul(e.ivaRate).
		Round(0).
		IntPart()

	return Quote{
		Subtotal: subtotal,
		IVA:      iva,
		Shipping: shippingCost,
		Total:    subtotal + iva + shippingCost,
	}
}

func (e *engineImpl) IVARate() decimal.Decimal {
	return e.ivaRate
}
