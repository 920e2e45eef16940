package service

import "errors"

// Service-level sentinels. Package-owned sentinels complete the taxonomy:
// payment.ErrUnknownMethod, gateway.ErrUnsupportedMethod,
// checkout.ErrEmptyCart and checkout.ErrSessionNotFound.
var (
	// ErrValidation wraps field-scoped input problems; these never reach a
	// payment gateway
	ErrValidation = errors.New("validation failed")

	// ErrPriceMismatch means the total the buyer saw no longer matches
	// server-side repricing beyond the 1 COP tolerance
	ErrPriceMismatch = errors.New("displayed total does not match current pricing")

	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	ErrPaymentDeclined = errors.New("payment declined")

	// ErrTransactionInFlight guards the single open payment attempt per order
	ErrTransactionInFlight = errors.New("a payment attempt for this order is already in progress")

	// ErrCheckoutInProgress guards the per-session processing gate
	ErrCheckoutInProgress = errors.New("another checkout request for this session is in progress")

	ErrOrderNotFound = errors.New("order not found")

	ErrMixedVendorCart = errors.New("cart items belong to more than one vendor")

	ErrInsufficientStock = errors.New("insufficient stock")
)
