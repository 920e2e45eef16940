package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercavio/checkout/internal/config"
	"github.com/mercavio/checkout/internal/model"
)

func fixedClock() time.Time {
	return time.Date(2026, 2, 10, 15, 4, 5, 0, time.UTC)
}

func fixedNonce() []byte {
	return []byte("0123456789abcdef")
}

func testPlacetopayClient(baseURL string) *placetopayClientImpl {
	c := NewPlacetopayClient(&config.Placetopay{
		BaseAPIURL: baseURL,
		Login:      "test-login",
		SecretKey:  "s3cr3t",
	}).(*placetopayClientImpl)

	c.now = fixedClock
	c.nonce = fixedNonce
	return c
}

func TestAuthComputesTranKey(t *testing.T) {
	c := testPlacetopayClient("http://unused")

	auth := c.auth()

	assert.Equal(t, "test-login", auth.Login)
	assert.Equal(t, "2026-02-10T15:04:05Z", auth.Seed)
	assert.Equal(t, "MDEyMzQ1Njc4OWFiY2RlZg==", auth.Nonce)
	// base64(sha256(nonce + seed + secret))
	assert.Equal(t, "T+3xx262i/A4UVTdwAaRu+Nc9eOIDCoR1b62Z7+JV/Y=", auth.TranKey)
}

func TestCreateSession(t *testing.T) {
	var received model.PlacetopaySessionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/session", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(model.PlacetopaySessionResponse{
			Status:     model.PlacetopayStatus{Status: model.PlacetopayStatusOK},
			RequestID:  42,
			ProcessURL: "https://checkout.example.com/session/42/token",
		})
	}))
	defer server.Close()

	c := testPlacetopayClient(server.URL)

	resp, err := c.CreateSession(context.Background(), &model.PlacetopaySessionRequest{
		Payment: model.PlacetopayPayment{
			Reference: "ref-1",
			Amount:    model.PlacetopayAmount{Currency: "COP", Total: 134000},
		},
		ReturnURL: "https://shop.example.com/api/payments/return?reference=ref-1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), resp.RequestID)
	assert.Equal(t, "https://checkout.example.com/session/42/token", resp.ProcessURL)

	// credentials are filled in on the way out
	assert.Equal(t, "test-login", received.Auth.Login)
	assert.NotEmpty(t, received.Auth.TranKey)
	assert.Equal(t, "ref-1", received.Payment.Reference)
	assert.Equal(t, int64(134000), received.Payment.Amount.Total)
}

func TestCreateSessionRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.PlacetopaySessionResponse{
			Status: model.PlacetopayStatus{
				Status:  model.PlacetopayStatusFailed,
				Message: "authentication failed",
			},
		})
	}))
	defer server.Close()

	c := testPlacetopayClient(server.URL)

	_, err := c.CreateSession(context.Background(), &model.PlacetopaySessionRequest{})
	require.ErrorContains(t, err, "session rejected")
	require.ErrorContains(t, err, "authentication failed")
}

func TestCreateSessionHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := testPlacetopayClient(server.URL)

	_, err := c.CreateSession(context.Background(), &model.PlacetopaySessionRequest{})
	require.ErrorContains(t, err, "placetopay error 401")
}

func TestQuerySession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/session/42", r.URL.Path)

		var body map[string]model.PlacetopayAuth
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-login", body["auth"].Login)

		json.NewEncoder(w).Encode(model.PlacetopaySessionInformation{
			RequestID: 42,
			Status:    model.PlacetopayStatus{Status: model.PlacetopayStatusApproved},
			Payment: []model.PlacetopayPaymentRecord{
				{Status: model.PlacetopayStatus{Status: model.PlacetopayStatusApproved}, InternalReference: 9001},
			},
		})
	}))
	defer server.Close()

	c := testPlacetopayClient(server.URL)

	info, err := c.QuerySession(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, model.PlacetopayStatusApproved, info.Status.Status)
	require.Len(t, info.Payment, 1)
	assert.Equal(t, int64(9001), info.Payment[0].InternalReference)
}

func TestVerifyNotificationSignature(t *testing.T) {
	c := testPlacetopayClient("http://unused")

	notification := &model.PlacetopayNotification{
		RequestID: 121212,
		Status: model.PlacetopayStatus{
			Status: model.PlacetopayStatusApproved,
			Date:   "2026-02-10T15:04:05-05:00",
		},
		Reference: "ref-1",
		Signature: "7a8f8764f0ae5ab2103ad5d75d70c93bb92b77e6",
	}

	assert.True(t, c.VerifyNotificationSignature(notification))

	tampered := *notification
	tampered.Status.Status = model.PlacetopayStatusRejected
	assert.False(t, c.VerifyNotificationSignature(&tampered))

	badSig := *notification
	badSig.Signature = "deadbeef"
	assert.False(t, c.VerifyNotificationSignature(&badSig))
}
