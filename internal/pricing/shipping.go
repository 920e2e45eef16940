package pricing

import (
	"strings"

	"github.com/mercavio/checkout/internal/model"
)

// RateSource resolves the destination-based cost before the free-shipping
// threshold is applied. Carrier-rate integrations substitute here.
type RateSource interface {
	BaseCost(address *model.ShippingAddress) int64
}

// FlatRates is a per-region table with a fallback cost. Region keys are
// matched case-insensitively.
type FlatRates struct {
	ByRegion map[string]int64
	Default  int64
}

func (f FlatRates) BaseCost(address *model.ShippingAddress) int64 {
	region := strings.ToLower(strings.TrimSpace(address.Region))
	if cost, ok := f.ByRegion[region]; ok {
		return cost
	}
	return f.Default
}

// ShippingCalculator derives the shipping cost for a destination and cart
// subtotal. Idempotent for identical inputs; callers cache the result per
// address change.
type ShippingCalculator interface {
	Calculate(address *model.ShippingAddress, subtotal int64) int64
	FreeShippingThreshold() int64
}

type shippingCalculatorImpl struct {
	rates     RateSource
	threshold int64
}

func NewShippingCalculator(rates RateSource, freeShippingThreshold int64) ShippingCalculator {
	return &shippingCalculatorImpl{
		rates:     rates,
		threshold: freeShippingThreshold,
	}
}

func (c *shippingCalculatorImpl) Calculate(address *model.ShippingAddress, subtotal int64) int64 {
	if subtotal >= c.threshold {
		return 0
	}
	return c.rates.BaseCost(address)
}

func (c *shippingCalculatorImpl) FreeShippingThreshold() int64 {
	return c.threshold
}
