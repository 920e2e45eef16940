package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mercavio/checkout/internal/client"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
)

type braintreeGateway struct {
	client client.BraintreeClient
}

// NewBraintreeGateway wraps the Braintree SDK client in the shared provider
// contract. Card only; the drop-in widget tokenizes in the browser and hands
// us a nonce, so a sale settles in one synchronous call.
func NewBraintreeGateway(c client.BraintreeClient) Client {
	return &braintreeGateway{client: c}
}

func (g *braintreeGateway) Name() string {
	return ProviderBraintree
}

func (g *braintreeGateway) Supports(method model.PaymentMethod) bool {
	return method == model.MethodCard
}

func (g *braintreeGateway) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	if req.Request == nil || req.Request.Method != model.MethodCard {
		return nil, ErrUnsupportedMethod
	}
	if req.Request.WidgetNonce == "" {
		return nil, &payment.ValidationError{
			Field:   "widget_nonce",
			Message: "inline card payments require a widget nonce",
		}
	}

	sale, err := g.client.SaleFromNonce(ctx, &client.BraintreeSaleInput{
		Nonce:          req.Request.WidgetNonce,
		Amount:         req.Amount,
		OrderReference: req.OrderReference,
	})
	if err != nil {
		return nil, fmt.Errorf("braintree sale: %w", err)
	}

	status, reason := mapBraintreeStatus(sale.Status, sale.ProcessorText)
	return &InitiateResult{
		Mode:                 ModeInline,
		GatewayTransactionID: sale.TransactionID,
		Status:               status,
		FailureReason:        reason,
	}, nil
}

func (g *braintreeGateway) QueryStatus(ctx context.Context, gatewayTransactionID string) (*StatusResult, error) {
	sale, err := g.client.FindTransaction(ctx, gatewayTransactionID)
	if err != nil {
		return nil, fmt.Errorf("braintree find transaction: %w", err)
	}

	status, reason := mapBraintreeStatus(sale.Status, sale.ProcessorText)
	return &StatusResult{
		GatewayTransactionID: sale.TransactionID,
		Status:               status,
		FailureReason:        reason,
	}, nil
}

// ParseNotification always fails: this provider is reconciled by polling
// FindTransaction, never by webhook.
func (g *braintreeGateway) ParseNotification(_ http.Header, _ []byte) (*Notification, error) {
	return nil, ErrNoNotifications
}

// mapBraintreeStatus folds the SDK transaction states into the transaction
// lifecycle. Anything at or past authorization counts as approved; money
// movement from there on is the processor's problem, not the buyer's.
func mapBraintreeStatus(status, processorText string) (model.TransactionStatus, string) {
	switch status {
	case "authorized", "submitted_for_settlement", "settling", "settled", "settlement_confirmed":
		return model.TransactionStatusApproved, ""
	case "authorizing", "settlement_pending":
		return model.TransactionStatusProcessing, ""
	case "processor_declined", "settlement_declined", "gateway_rejected":
		return model.TransactionStatusDeclined, processorText
	case "voided":
		return model.TransactionStatusVoided, ""
	case "failed":
		return model.TransactionStatusErrored, processorText
	default:
		return model.TransactionStatusErrored, fmt.Sprintf("unexpected braintree status %q", status)
	}
}
