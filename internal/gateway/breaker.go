package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
)

const (
	breakerOpenTimeout   = 30 * time.Second
	breakerTripThreshold = 5
)

type breakerClient struct {
	inner    Client
	initiate *gobreaker.CircuitBreaker[*InitiateResult]
	status   *gobreaker.CircuitBreaker[*StatusResult]
}

// WithBreaker shields a provider behind per-operation circuit breakers so a
// provider outage sheds load fast instead of stacking 30s timeouts.
// Notification parsing is local verification and passes through unguarded.
func WithBreaker(inner Client) Client {
	return &breakerClient{
		inner:    inner,
		initiate: gobreaker.NewCircuitBreaker[*InitiateResult](breakerSettings(inner.Name() + "-initiate")),
		status:   gobreaker.NewCircuitBreaker[*StatusResult](breakerSettings(inner.Name() + "-status")),
	}
}

func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    name,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripThreshold
		},
		IsSuccessful: isProviderSuccess,
	}
}

// isProviderSuccess keeps buyer mistakes and routing misses from counting
// as provider failures. Only transport and provider errors may trip.
func isProviderSuccess(err error) bool {
	if err == nil {
		return true
	}
	var ve *payment.ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrUnsupportedMethod)
}

// IsBreakerOpen reports whether err means the provider is being short-circuited.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (b *breakerClient) Name() string {
	return b.inner.Name()
}

func (b *breakerClient) Supports(method model.PaymentMethod) bool {
	return b.inner.Supports(method)
}

func (b *breakerClient) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	return b.initiate.Execute(func() (*InitiateResult, error) {
		return b.inner.Initiate(ctx, req)
	})
}

func (b *breakerClient) QueryStatus(ctx context.Context, gatewayTransactionID string) (*StatusResult, error) {
	return b.status.Execute(func() (*StatusResult, error) {
		return b.inner.QueryStatus(ctx, gatewayTransactionID)
	})
}

func (b *breakerClient) ParseNotification(headers http.Header, body []byte) (*Notification, error) {
	return b.inner.ParseNotification(headers, body)
}
