package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mercavio/checkout/internal/checkout"
	"github.com/mercavio/checkout/internal/gateway"
	"github.com/mercavio/checkout/internal/service"
)

func handleError(t *testing.T, err error, cartURL string) (int, map[string]any) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	errorHandler(zap.NewNop(), cartURL)(err, c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandlerTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", service.ErrValidation, http.StatusUnprocessableEntity},
		{"empty cart", checkout.ErrEmptyCart, http.StatusUnprocessableEntity},
		{"price mismatch", service.ErrPriceMismatch, http.StatusConflict},
		{"invalid transition", checkout.ErrInvalidTransition, http.StatusConflict},
		{"order not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"unknown provider", gateway.ErrUnknownProvider, http.StatusNotFound},
		{"bad signature", gateway.ErrInvalidSignature, http.StatusUnauthorized},
		{"provider never notifies", gateway.ErrNoNotifications, http.StatusBadRequest},
		{"gateway down", service.ErrGatewayUnavailable, http.StatusBadGateway},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := handleError(t, tt.err, "")
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestErrorHandlerEmptyCartRedirect(t *testing.T) {
	code, body := handleError(t, checkout.ErrEmptyCart, "https://tienda.example.com/cart")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "https://tienda.example.com/cart", body["redirect_to"])

	// without a configured cart URL the error stands alone
	_, body = handleError(t, checkout.ErrEmptyCart, "")
	_, ok := body["redirect_to"]
	assert.False(t, ok)
}

func TestErrorHandlerInternalNeverLeaks(t *testing.T) {
	_, body := handleError(t, errors.New("pq: relation orders does not exist"), "")
	assert.Equal(t, "internal server error", body["error"])
}
