package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mercavio/checkout/internal/config"
	"github.com/mercavio/checkout/internal/model"
)

type PlacetopayClient interface {
	// CreateSession starts a hosted Web Checkout session and returns the
	// processUrl the buyer is redirected to
	CreateSession(ctx context.Context, sessionReq *model.PlacetopaySessionRequest) (*model.PlacetopaySessionResponse, error)

	// QuerySession fetches the current state of a session for reconciliation
	QuerySession(ctx context.Context, requestID int64) (*model.PlacetopaySessionInformation, error)

	// VerifyNotificationSignature checks the webhook body signature
	VerifyNotificationSignature(n *model.PlacetopayNotification) bool
}

type placetopayClientImpl struct {
	httpClient *http.Client
	baseAPIURL string
	login      string
	secretKey  string

	now   func() time.Time
	nonce func() []byte
}

func NewPlacetopayClient(cfg *config.Placetopay) PlacetopayClient {
	return &placetopayClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseAPIURL: cfg.BaseAPIURL,
		login:      cfg.Login,
		secretKey:  cfg.SecretKey,
		now:        time.Now,
		nonce:      randomNonce,
	}
}

// auth builds the per-request credentials:
// tranKey = base64(sha256(nonce + seed + secretKey)) with the raw nonce.
func (c *placetopayClientImpl) auth() model.PlacetopayAuth {
	seed := c.now().Format(time.RFC3339)
	nonce := c.nonce()

	h := sha256.New()
	h.Write(nonce)
	h.Write([]byte(seed))
	h.Write([]byte(c.secretKey))

	return model.PlacetopayAuth{
		Login:   c.login,
		TranKey: base64.StdEncoding.EncodeToString(h.Sum(nil)),
		Nonce:   base64.StdEncoding.EncodeToString(nonce),
		Seed:    seed,
	}
}

func (c *placetopayClientImpl) CreateSession(ctx context.Context, sessionReq *model.PlacetopaySessionRequest) (*model.PlacetopaySessionResponse, error) {
	sessionReq.Auth = c.auth()

	body, err := json.Marshal(sessionReq)
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseAPIURL+"/api/session",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("placetopay error %d: %s", resp.StatusCode, string(b))
	}

	var result model.PlacetopaySessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode placetopay response: %w", err)
	}

	if result.Status.Status != model.PlacetopayStatusOK {
		return nil, fmt.Errorf("placetopay session rejected: %s", result.Status.Message)
	}

	return &result, nil
}

func (c *placetopayClientImpl) QuerySession(ctx context.Context, requestID int64) (*model.PlacetopaySessionInformation, error) {
	body, err := json.Marshal(map[string]interface{}{
		"auth": c.auth(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query request: %w", err)
	}

	url := fmt.Sprintf("%s/api/session/%d", c.baseAPIURL, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("placetopay error %d: %s", resp.StatusCode, string(b))
	}

	var result model.PlacetopaySessionInformation
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode placetopay response: %w", err)
	}

	return &result, nil
}

// VerifyNotificationSignature checks sha1(requestId + status + date + secret)
// against the signature carried in the notification.
func (c *placetopayClientImpl) VerifyNotificationSignature(n *model.PlacetopayNotification) bool {
	payload := fmt.Sprintf("%d%s%s%s", n.RequestID, n.Status.Status, n.Status.Date, c.secretKey)
	sum := sha1.Sum([]byte(payload))
	expected := hex.EncodeToString(sum[:])

	return hmac.Equal([]byte(expected), []byte(n.Signature))
}

func randomNonce() []byte {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return b
}
