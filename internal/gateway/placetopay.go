package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mercavio/checkout/internal/client"
	"github.com/mercavio/checkout/internal/model"
)

// Hosted sessions expire server-side; buyers who wander off get a fresh
// session on retry instead of a stale processUrl.
const placetopaySessionExpiry = 15 * time.Minute

type placetopayGateway struct {
	client client.PlacetopayClient
	now    func() time.Time
}

// NewPlacetopayGateway wraps the Web Checkout API client in the shared
// provider contract. Both card and PSE ride the same hosted redirect.
func NewPlacetopayGateway(c client.PlacetopayClient) Client {
	return &placetopayGateway{
		client: c,
		now:    time.Now,
	}
}

func (g *placetopayGateway) Name() string {
	return ProviderPlacetopay
}

func (g *placetopayGateway) Supports(method model.PaymentMethod) bool {
	return method == model.MethodCard || method == model.MethodPSE
}

func (g *placetopayGateway) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	sessionReq := &model.PlacetopaySessionRequest{
		Payment: model.PlacetopayPayment{
			Reference:   req.OrderReference,
			Description: req.Description,
			Amount: model.PlacetopayAmount{
				Currency: req.Currency,
				Total:    req.Amount,
			},
		},
		Expiration: g.now().Add(placetopaySessionExpiry).Format(time.RFC3339),
		ReturnURL:  req.ReturnURL,
		IPAddress:  req.ClientIP,
		UserAgent:  req.UserAgent,
	}

	if req.Request != nil && req.Request.Method == model.MethodPSE {
		// Lock the hosted page to bank debit and pre-fill the payer so the
		// bank form does not ask twice.
		sessionReq.PaymentMethod = "PSE"
		sessionReq.Payer = placetopayPayer(req)
	}

	resp, err := g.client.CreateSession(ctx, sessionReq)
	if err != nil {
		return nil, fmt.Errorf("placetopay create session: %w", err)
	}

	return &InitiateResult{
		Mode:                 ModeRedirect,
		ProcessURL:           resp.ProcessURL,
		GatewayTransactionID: strconv.FormatInt(resp.RequestID, 10),
		Status:               model.TransactionStatusProcessing,
	}, nil
}

func (g *placetopayGateway) QueryStatus(ctx context.Context, gatewayTransactionID string) (*StatusResult, error) {
	requestID, err := strconv.ParseInt(gatewayTransactionID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse placetopay request id %q: %w", gatewayTransactionID, err)
	}

	info, err := g.client.QuerySession(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("placetopay query session: %w", err)
	}

	status, reason := mapPlacetopayStatus(info.Status)
	return &StatusResult{
		GatewayTransactionID: gatewayTransactionID,
		Status:               status,
		FailureReason:        reason,
	}, nil
}

func (g *placetopayGateway) ParseNotification(_ http.Header, body []byte) (*Notification, error) {
	var n model.PlacetopayNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode placetopay notification: %w", err)
	}

	if !g.client.VerifyNotificationSignature(&n) {
		return nil, ErrInvalidSignature
	}

	status, reason := mapPlacetopayStatus(n.Status)
	return &Notification{
		EventID:              fmt.Sprintf("placetopay-%d-%s", n.RequestID, n.Status.Status),
		Provider:             ProviderPlacetopay,
		GatewayTransactionID: strconv.FormatInt(n.RequestID, 10),
		OrderReference:       n.Reference,
		Status:               status,
		FailureReason:        reason,
	}, nil
}

func placetopayPayer(req *InitiateRequest) *model.PlacetopayPerson {
	p := &model.PlacetopayPerson{
		Name:         req.Payer.Name,
		Email:        req.Payer.Email,
		Mobile:       req.Payer.Mobile,
		Document:     req.Payer.Document,
		DocumentType: req.Payer.DocumentType,
	}
	// The PSE form carries its own identification; it wins over profile data.
	if req.Request.IDNumber != "" {
		p.Document = req.Request.IDNumber
		p.DocumentType = req.Request.IDType
	}
	return p
}

// mapPlacetopayStatus folds session statuses into the transaction lifecycle.
// OK and PENDING both mean the buyer has not finished on the hosted page.
func mapPlacetopayStatus(s model.PlacetopayStatus) (model.TransactionStatus, string) {
	switch s.Status {
	case model.PlacetopayStatusApproved:
		return model.TransactionStatusApproved, ""
	case model.PlacetopayStatusRejected:
		return model.TransactionStatusDeclined, placetopayFailureText(s)
	case model.PlacetopayStatusPending, model.PlacetopayStatusOK:
		return model.TransactionStatusProcessing, ""
	case model.PlacetopayStatusFailed:
		return model.TransactionStatusErrored, placetopayFailureText(s)
	default:
		return model.TransactionStatusErrored, placetopayFailureText(s)
	}
}

func placetopayFailureText(s model.PlacetopayStatus) string {
	if s.Message != "" {
		return s.Message
	}
	return s.Reason
}
