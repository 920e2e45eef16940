package client

import (
	"context"
	"fmt"

	"github.com/braintree-go/braintree-go"

	"github.com/mercavio/checkout/internal/config"
)

// --- INTERFACE ---

type BraintreeClient interface {
	// SaleFromNonce charges a widget payment method nonce and submits it for
	// settlement immediately
	SaleFromNonce(ctx context.Context, in *BraintreeSaleInput) (*BraintreeSaleResult, error)

	// FindTransaction re-fetches a transaction for status reconciliation
	FindTransaction(ctx context.Context, transactionID string) (*BraintreeSaleResult, error)
}

type BraintreeSaleInput struct {
	Nonce          string
	Amount         int64 // COP, 0 decimals
	OrderReference string
}

type BraintreeSaleResult struct {
	TransactionID string
	Status        string
	ProcessorText string
}

// --- IMPLEMENTATION ---

type braintreeClientImpl struct {
	gateway *braintree.Braintree
}

// NewBraintreeClient initializes the Braintree SDK gateway
func NewBraintreeClient(cfg *config.Braintree) BraintreeClient {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	return &braintreeClientImpl{
		gateway: gateway,
	}
}

// --- METHODS ---

func (c *braintreeClientImpl) SaleFromNonce(ctx context.Context, in *BraintreeSaleInput) (*BraintreeSaleResult, error) {
	req := &braintree.TransactionRequest{
		Type: "sale",
		// COP carries no decimal places
		Amount:             braintree.NewDecimal(in.Amount, 0),
		PaymentMethodNonce: in.Nonce,
		OrderId:            in.OrderReference,
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true,
		},
	}

	tx, err := c.gateway.Transaction().Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("braintree transaction create: %w", err)
	}

	return &BraintreeSaleResult{
		TransactionID: tx.Id,
		Status:        string(tx.Status),
		ProcessorText: tx.ProcessorResponseText,
	}, nil
}

func (c *braintreeClientImpl) FindTransaction(ctx context.Context, transactionID string) (*BraintreeSaleResult, error) {
	tx, err := c.gateway.Transaction().Find(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("braintree transaction find: %w", err)
	}

	return &BraintreeSaleResult{
		TransactionID: tx.Id,
		Status:        string(tx.Status),
		ProcessorText: tx.ProcessorResponseText,
	}, nil
}
