package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
)

const (
	ProviderPlacetopay = "placetopay"
	ProviderBraintree  = "braintree"
)

var (
	ErrUnknownProvider   = errors.New("unknown payment provider")
	ErrUnsupportedMethod = errors.New("payment method not supported by this provider")
	ErrInvalidSignature  = errors.New("notification signature does not match")
	ErrNoNotifications   = errors.New("provider does not deliver webhook notifications")
)

// Mode discriminates the two provider styles: a hosted redirect that
// reconciles out-of-band, or an inline synchronous result.
type Mode string

const (
	ModeRedirect Mode = "redirect"
	ModeInline   Mode = "inline"
)

type Payer struct {
	Name         string
	Email        string
	Document     string
	DocumentType string
	Mobile       string
}

// InitiateRequest carries everything a provider needs to start one payment
// attempt. Amount always equals the order total fixed at creation time;
// providers never reprice.
type InitiateRequest struct {
	OrderReference string
	Amount         int64
	Currency       string
	Description    string
	Request        *payment.Request
	Payer          Payer
	ReturnURL      string
	ClientIP       string
	UserAgent      string
}

// InitiateResult is the discriminated outcome of starting an attempt.
// Redirect results park in PROCESSING until reconciled; inline results carry
// a mapped provider status immediately.
type InitiateResult struct {
	Mode                 Mode
	ProcessURL           string // redirect only
	GatewayTransactionID string
	Status               model.TransactionStatus
	FailureReason        string
}

type StatusResult struct {
	GatewayTransactionID string
	Status               model.TransactionStatus
	FailureReason        string
}

// Notification is a parsed, signature-verified webhook event.
type Notification struct {
	EventID              string // dedup key
	Provider             string
	GatewayTransactionID string
	OrderReference       string
	Status               model.TransactionStatus
	FailureReason        string
}

// Client is the shared provider contract. Business logic never branches on
// the provider name; everything it needs is in the discriminated results.
type Client interface {
	Name() string
	Supports(method model.PaymentMethod) bool
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error)
	QueryStatus(ctx context.Context, gatewayTransactionID string) (*StatusResult, error)
	ParseNotification(headers http.Header, body []byte) (*Notification, error)
}
