package model

// PlaceToPay Web Checkout wire types.

const (
	PlacetopayStatusOK       = "OK"
	PlacetopayStatusPending  = "PENDING"
	PlacetopayStatusApproved = "APPROVED"
	PlacetopayStatusRejected = "REJECTED"
	PlacetopayStatusFailed   = "FAILED"
)

type PlacetopayAuth struct {
	Login   string `json:"login"`
	TranKey string `json:"tranKey"`
	Nonce   string `json:"nonce"`
	Seed    string `json:"seed"`
}

type PlacetopayAmount struct {
	Currency string `json:"currency"`
	Total    int64  `json:"total"`
}

type PlacetopayPayment struct {
	Reference   string           `json:"reference"`
	Description string           `json:"description,omitempty"`
	Amount      PlacetopayAmount `json:"amount"`
}

type PlacetopayPerson struct {
	Document     string `json:"document,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	Name         string `json:"name,omitempty"`
	Surname      string `json:"surname,omitempty"`
	Email        string `json:"email,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
}

type PlacetopaySessionRequest struct {
	Auth    PlacetopayAuth    `json:"auth"`
	Payer   *PlacetopayPerson `json:"payer,omitempty"`
	Payment PlacetopayPayment `json:"payment"`
	// PaymentMethod restricts the hosted widget to one method, e.g. PSE
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Expiration    string `json:"expiration"`
	ReturnURL     string `json:"returnUrl"`
	IPAddress     string `json:"ipAddress"`
	UserAgent     string `json:"userAgent"`
}

type PlacetopayStatus struct {
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Date    string `json:"date,omitempty"`
}

type PlacetopaySessionResponse struct {
	Status     PlacetopayStatus `json:"status"`
	RequestID  int64            `json:"requestId"`
	ProcessURL string           `json:"processUrl"`
}

type PlacetopayPaymentRecord struct {
	Status            PlacetopayStatus `json:"status"`
	InternalReference int64            `json:"internalReference"`
	Authorization     string           `json:"authorization,omitempty"`
	PaymentMethod     string           `json:"paymentMethod,omitempty"`
}

type PlacetopaySessionInformation struct {
	RequestID int64                     `json:"requestId"`
	Status    PlacetopayStatus          `json:"status"`
	Payment   []PlacetopayPaymentRecord `json:"payment,omitempty"`
}

// PlacetopayNotification is the asynchronous webhook body. Signature is
// sha1(requestId + status + date + tranKey).
type PlacetopayNotification struct {
	Status    PlacetopayStatus `json:"status"`
	RequestID int64            `json:"requestId"`
	Reference string           `json:"reference"`
	Signature string           `json:"signature"`
}
