package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercavio/checkout/internal/model"
)

type namedStub struct {
	name    string
	methods []model.PaymentMethod
}

func (s *namedStub) Name() string { return s.name }

func (s *namedStub) Supports(method model.PaymentMethod) bool {
	for _, m := range s.methods {
		if m == method {
			return true
		}
	}
	return false
}

func (s *namedStub) Initiate(_ context.Context, _ *InitiateRequest) (*InitiateResult, error) {
	return nil, nil
}

func (s *namedStub) QueryStatus(_ context.Context, _ string) (*StatusResult, error) {
	return nil, nil
}

func (s *namedStub) ParseNotification(_ http.Header, _ []byte) (*Notification, error) {
	return nil, ErrNoNotifications
}

func TestRegistryGet(t *testing.T) {
	ptp := &namedStub{name: ProviderPlacetopay, methods: []model.PaymentMethod{model.MethodCard, model.MethodPSE}}
	bt := &namedStub{name: ProviderBraintree, methods: []model.PaymentMethod{model.MethodCard}}
	reg := NewRegistry(ptp, bt)

	got, err := reg.Get(ProviderBraintree)
	require.NoError(t, err)
	assert.Equal(t, ProviderBraintree, got.Name())

	_, err = reg.Get("stripe")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryForMethodPrefersRegistrationOrder(t *testing.T) {
	ptp := &namedStub{name: ProviderPlacetopay, methods: []model.PaymentMethod{model.MethodCard, model.MethodPSE}}
	bt := &namedStub{name: ProviderBraintree, methods: []model.PaymentMethod{model.MethodCard}}

	reg := NewRegistry(bt, ptp)
	got, err := reg.ForMethod(model.MethodCard)
	require.NoError(t, err)
	assert.Equal(t, ProviderBraintree, got.Name())

	reg = NewRegistry(ptp, bt)
	got, err = reg.ForMethod(model.MethodCard)
	require.NoError(t, err)
	assert.Equal(t, ProviderPlacetopay, got.Name())
}

func TestRegistryForMethodFallsBack(t *testing.T) {
	ptp := &namedStub{name: ProviderPlacetopay, methods: []model.PaymentMethod{model.MethodCard, model.MethodPSE}}
	bt := &namedStub{name: ProviderBraintree, methods: []model.PaymentMethod{model.MethodCard}}
	reg := NewRegistry(bt, ptp)

	// braintree is first but only placetopay takes pse
	got, err := reg.ForMethod(model.MethodPSE)
	require.NoError(t, err)
	assert.Equal(t, ProviderPlacetopay, got.Name())
}

func TestRegistryForMethodUnsupported(t *testing.T) {
	reg := NewRegistry(&namedStub{name: ProviderBraintree, methods: []model.PaymentMethod{model.MethodCard}})

	_, err := reg.ForMethod(model.MethodCashOnDelivery)
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}
