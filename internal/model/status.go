package model

// OrderStatus is the lifecycle state of a placed order.
type OrderStatus string

const (
	OrderStatusPendingPayment     OrderStatus = "PENDING_PAYMENT"
	OrderStatusPendingFulfillment OrderStatus = "PENDING_FULFILLMENT"
	OrderStatusPaid               OrderStatus = "PAID"
	OrderStatusFulfilled          OrderStatus = "FULFILLED"
	OrderStatusCancelled          OrderStatus = "CANCELLED"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingPayment,
		OrderStatusPendingFulfillment,
		OrderStatusPaid,
		OrderStatusFulfilled,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid. Orders are never
// deleted, only moved forward through here.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPendingPayment:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPendingFulfillment:
		return next == OrderStatusFulfilled || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusFulfilled
	case OrderStatusFulfilled, OrderStatusCancelled:
		return false // terminal
	default:
		return false
	}
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// TransactionStatus is the state of a single gateway payment attempt.
type TransactionStatus string

const (
	TransactionStatusInitializing TransactionStatus = "INITIALIZING"
	TransactionStatusReady        TransactionStatus = "READY"
	TransactionStatusProcessing   TransactionStatus = "PROCESSING"
	TransactionStatusApproved     TransactionStatus = "APPROVED"
	TransactionStatusDeclined     TransactionStatus = "DECLINED"
	TransactionStatusVoided       TransactionStatus = "VOIDED"
	TransactionStatusErrored      TransactionStatus = "ERRORED"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusInitializing,
		TransactionStatusReady,
		TransactionStatusProcessing,
		TransactionStatusApproved,
		TransactionStatusDeclined,
		TransactionStatusVoided,
		TransactionStatusErrored:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further gateway outcome can arrive for the
// attempt. Non-terminal attempts hold the order's single open slot.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusApproved,
		TransactionStatusDeclined,
		TransactionStatusVoided,
		TransactionStatusErrored:
		return true
	default:
		return false
	}
}

func (s TransactionStatus) String() string {
	return string(s)
}

// PaymentMethod is the buyer-facing payment method selection. Values match
// the wire format used by the checkout and payment endpoints.
type PaymentMethod string

const (
	MethodCard           PaymentMethod = "card"
	MethodPSE            PaymentMethod = "pse"
	MethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	MethodBankTransfer   PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCard, MethodPSE, MethodCashOnDelivery, MethodBankTransfer:
		return true
	default:
		return false
	}
}

// RequiresGateway reports whether the method routes through a payment
// gateway. Cash on delivery and manual bank transfer settle offline.
func (m PaymentMethod) RequiresGateway() bool {
	return m == MethodCard || m == MethodPSE
}

func (m PaymentMethod) String() string {
	return string(m)
}
