package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mercavio/checkout/internal/model"
)

// ErrUnknownMethod rejects a selection whose method matches no declared
// validator. Never defaulted to another method.
var ErrUnknownMethod = errors.New("unknown payment method")

// ValidationError is a field-level rejection surfaced inline at the payment
// step; it never reaches a gateway call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Selection is the raw buyer input: a method tag plus whichever payload the
// form produced for it. Cleared and rebuilt whenever the buyer switches
// methods.
type Selection struct {
	Method model.PaymentMethod `json:"method"`

	Card *CardInput `json:"card,omitempty"`
	PSE  *PSEInput  `json:"pse,omitempty"`

	// WidgetNonce stands in for raw card fields when an inline provider
	// widget already tokenized the card in the browser
	WidgetNonce string `json:"widget_nonce,omitempty"`
}

type CardInput struct {
	Number       string `json:"number"`
	HolderName   string `json:"holder_name"`
	Expiry       string `json:"expiry"` // MM/YY
	CVV          string `json:"cvv"`
	Installments int    `json:"installments"`
}

type PSEInput struct {
	BankCode   string `json:"bank_code"`
	PersonType string `json:"person_type"` // natural | legal
	IDType     string `json:"id_type"`     // CC, CE, NIT, TI, PP
	IDNumber   string `json:"id_number"`
}

// Request is the normalized, gateway-ready shape shared by every provider.
type Request struct {
	Method model.PaymentMethod

	// card
	CardNumber   string // digits only
	HolderName   string
	ExpiryMonth  int
	ExpiryYear   int
	CVV          string
	Installments int
	WidgetNonce  string

	// pse
	BankCode   string
	PersonType string
	IDType     string
	IDNumber   string
}

var idTypes = map[string]bool{
	"CC": true, "CE": true, "NIT": true, "TI": true, "PP": true,
}

// Normalize validates the selection for its method and produces the
// normalized request. Cash on delivery and bank transfer carry no payload.
func Normalize(sel *Selection) (*Request, error) {
	switch sel.Method {
	case model.MethodCard:
		if sel.Card == nil && sel.WidgetNonce != "" {
			return &Request{Method: model.MethodCard, WidgetNonce: sel.WidgetNonce}, nil
		}
		return normalizeCard(sel.Card, sel.WidgetNonce)
	case model.MethodPSE:
		return normalizePSE(sel.PSE)
	case model.MethodCashOnDelivery, model.MethodBankTransfer:
		return &Request{Method: sel.Method}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, sel.Method)
	}
}

func normalizeCard(in *CardInput, widgetNonce string) (*Request, error) {
	if in == nil {
		return nil, &ValidationError{Field: "card", Message: "card details are required"}
	}

	number := digitsOnly(in.Number)
	if len(number) != 16 {
		return nil, &ValidationError{Field: "card.number", Message: "card number must have 16 digits"}
	}

	if strings.TrimSpace(in.HolderName) == "" {
		return nil, &ValidationError{Field: "card.holder_name", Message: "holder name is required"}
	}

	month, year, err := parseExpiry(in.Expiry)
	if err != nil {
		return nil, &ValidationError{Field: "card.expiry", Message: err.Error()}
	}

	cvv := digitsOnly(in.CVV)
	if len(cvv) < 3 || len(cvv) > 4 {
		return nil, &ValidationError{Field: "card.cvv", Message: "cvv must have 3 or 4 digits"}
	}

	installments := in.Installments
	if installments == 0 {
		installments = 1
	}
	if installments < 1 || installments > 36 {
		return nil, &ValidationError{Field: "card.installments", Message: "installments must be between 1 and 36"}
	}

	return &Request{
		Method:       model.MethodCard,
		CardNumber:   number,
		HolderName:   strings.TrimSpace(in.HolderName),
		ExpiryMonth:  month,
		ExpiryYear:   year,
		CVV:          cvv,
		Installments: installments,
		WidgetNonce:  widgetNonce,
	}, nil
}

func normalizePSE(in *PSEInput) (*Request, error) {
	if in == nil {
		return nil, &ValidationError{Field: "pse", Message: "pse details are required"}
	}

	if strings.TrimSpace(in.BankCode) == "" {
		return nil, &ValidationError{Field: "pse.bank_code", Message: "bank is required"}
	}

	if strings.TrimSpace(in.IDNumber) == "" {
		return nil, &ValidationError{Field: "pse.id_number", Message: "identification number is required"}
	}

	// natural person unless the form says otherwise
	personType := strings.ToLower(strings.TrimSpace(in.PersonType))
	if personType == "" {
		personType = "natural"
	}
	if personType != "natural" && personType != "legal" {
		return nil, &ValidationError{Field: "pse.person_type", Message: "person type must be natural or legal"}
	}

	idType := strings.ToUpper(strings.TrimSpace(in.IDType))
	if idType == "" {
		idType = "CC"
	}
	if !idTypes[idType] {
		return nil, &ValidationError{Field: "pse.id_type", Message: "unsupported identification type"}
	}

	return &Request{
		Method:     model.MethodPSE,
		BankCode:   strings.TrimSpace(in.BankCode),
		PersonType: personType,
		IDType:     idType,
		IDNumber:   strings.TrimSpace(in.IDNumber),
	}, nil
}

func parseExpiry(expiry string) (month int, year int, err error) {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("expiry must be in MM/YY format")
	}

	month, err = strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("expiry month must be between 01 and 12")
	}

	yy, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("expiry must be in MM/YY format")
	}

	return month, 2000 + yy, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
