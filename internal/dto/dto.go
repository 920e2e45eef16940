package dto

import (
	"time"

	"github.com/mercavio/checkout/internal/checkout"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
)

// -------- checkout --------

type CartItem struct {
	ProductID         string            `json:"product_id"`
	Quantity          int32             `json:"quantity"`
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
}

type BeginCheckoutRequest struct {
	Items []CartItem `json:"items"`
}

type SubmitAddressRequest struct {
	Address model.ShippingAddress `json:"address"`
	// Save remembers the address for the buyer's next checkout
	Save bool `json:"save"`
}

type BackRequest struct {
	Reason string `json:"reason"`
}

type ConfirmResponse struct {
	Session  *checkout.Session `json:"session"`
	Order    *OrderResponse    `json:"order"`
	Provider string            `json:"provider,omitempty"`
	Created  bool              `json:"created"`
}

type SavedAddressResponse struct {
	ID      uint                  `json:"id"`
	Address model.ShippingAddress `json:"address"`
}

func NewSavedAddressResponse(a *model.SavedAddress) *SavedAddressResponse {
	return &SavedAddressResponse{ID: a.ID, Address: a.Address}
}

// -------- orders --------

type CreateOrderRequest struct {
	Items           []OrderItemInput      `json:"items"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	Notes           string                `json:"notes,omitempty"`
	// Totals is what the buyer saw; the server reprices from the catalog and
	// rejects the order when the authoritative total drifts from it
	Totals OrderTotals `json:"totals"`
}

type OrderItemInput struct {
	ProductID         string            `json:"product_id"`
	Quantity          int32             `json:"quantity"`
	UnitPrice         int64             `json:"unit_price"`
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
}

type OrderTotals struct {
	Subtotal int64 `json:"subtotal"`
	IVA      int64 `json:"iva"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

type OrderResponse struct {
	ID            string                `json:"id"`
	Reference     string                `json:"reference"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"payment_method"`
	VendorID      string                `json:"vendor_id"`
	Subtotal      int64                 `json:"subtotal"`
	IVA           int64                 `json:"iva"`
	Shipping      int64                 `json:"shipping"`
	Total         int64                 `json:"total"`
	Currency      string                `json:"currency"`
	Address       model.ShippingAddress `json:"address"`
	Notes         string                `json:"notes,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

func NewOrderResponse(o *model.Order) *OrderResponse {
	return &OrderResponse{
		ID:            o.ID,
		Reference:     o.Reference,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		VendorID:      o.VendorID,
		Subtotal:      o.Subtotal,
		IVA:           o.IVA,
		Shipping:      o.Shipping,
		Total:         o.Total,
		Currency:      o.Currency,
		Address:       o.Address,
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
	}
}

func NewOrderResponses(orders []*model.Order) []*OrderResponse {
	out := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = NewOrderResponse(o)
	}
	return out
}

type OrderItemResponse struct {
	ProductID         string            `json:"product_id"`
	Quantity          int32             `json:"quantity"`
	UnitPrice         int64             `json:"unit_price"`
	Currency          string            `json:"currency"`
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
}

type TransactionResponse struct {
	ID            uint      `json:"id"`
	Provider      string    `json:"provider"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	ProcessURL    string    `json:"process_url,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewTransactionResponse(t *model.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            t.ID,
		Provider:      t.Provider,
		Status:        string(t.Status),
		Amount:        t.Amount,
		Currency:      t.Currency,
		ProcessURL:    t.ProcessURL,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
	}
}

type OrderDetailResponse struct {
	Order        *OrderResponse         `json:"order"`
	Items        []*OrderItemResponse   `json:"items"`
	Transactions []*TransactionResponse `json:"transactions"`
}

func NewOrderDetailResponse(order *model.Order, items []*model.OrderItem, transactions []*model.Transaction) *OrderDetailResponse {
	res := &OrderDetailResponse{
		Order:        NewOrderResponse(order),
		Items:        make([]*OrderItemResponse, len(items)),
		Transactions: make([]*TransactionResponse, len(transactions)),
	}
	for i, item := range items {
		res.Items[i] = &OrderItemResponse{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			Currency:          item.Currency,
			VariantAttributes: item.VariantAttributes,
		}
	}
	for i, t := range transactions {
		res.Transactions[i] = NewTransactionResponse(t)
	}
	return res
}

// -------- payments --------

type ProcessPaymentRequest struct {
	OrderReference string `json:"order_reference"`
	// Amount and Currency are optional cross-checks against the stored order
	Amount    int64             `json:"amount,omitempty"`
	Currency  string            `json:"currency,omitempty"`
	Selection payment.Selection `json:"selection"`
	ReturnURL string            `json:"return_url,omitempty"`
}

type ProcessPaymentResponse struct {
	Mode                 string `json:"mode"`
	PaymentURL           string `json:"payment_url,omitempty"`
	TransactionID        uint   `json:"transaction_id"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	Status               string `json:"status"`
	FailureReason        string `json:"failure_reason,omitempty"`
	Resumed              bool   `json:"resumed,omitempty"`
}

// -------- vendors / commissions --------

type SetCommissionRateRequest struct {
	// Rate is a decimal string in [0, 1), e.g. "0.12"
	Rate string `json:"rate"`
}

type VendorResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CommissionRate string `json:"commission_rate,omitempty"`
}

func NewVendorResponse(v *model.Vendor) *VendorResponse {
	res := &VendorResponse{ID: v.ID, Name: v.Name}
	if v.CommissionRate != nil {
		res.CommissionRate = v.CommissionRate.String()
	}
	return res
}

type CommissionResponse struct {
	OrderID        string `json:"order_id"`
	VendorID       string `json:"vendor_id"`
	VendorAmount   int64  `json:"vendor_amount"`
	PlatformAmount int64  `json:"platform_amount"`
	Rate           string `json:"rate"`
}

func NewCommissionResponse(c *model.Commission) *CommissionResponse {
	return &CommissionResponse{
		OrderID:        c.OrderID,
		VendorID:       c.VendorID,
		VendorAmount:   c.VendorAmount,
		PlatformAmount: c.PlatformAmount,
		Rate:           c.Rate.String(),
	}
}

// -------- config --------

type PricingConfigResponse struct {
	IVARate               string `json:"iva_rate"`
	FreeShippingThreshold int64  `json:"free_shipping_threshold"`
	BaseShippingCost      int64  `json:"base_shipping_cost"`
	Currency              string `json:"currency"`
}
