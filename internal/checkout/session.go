package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
	"github.com/mercavio/checkout/internal/pricing"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to check out")
	ErrInvalidTransition = errors.New("invalid checkout transition")
)

// Session is the server-side state of one buyer checkout. It owns the frozen
// cart snapshot, the draft address and the payment selection; once an order
// exists it only holds the order reference, never the order itself.
type Session struct {
	ID      string `json:"id"`
	BuyerID string `json:"buyer_id"`
	Step    Step   `json:"step"`

	Cart    model.CartSnapshot     `json:"cart"`
	Address *model.ShippingAddress `json:"address,omitempty"`

	// shipping cost resolved for the current address; AddressDigest keys the
	// cache so the cost is recalculated only on address change
	ShippingCost  *int64         `json:"shipping_cost,omitempty"`
	AddressDigest string         `json:"address_digest,omitempty"`
	Quote         *pricing.Quote `json:"quote,omitempty"`

	Selection *payment.Selection `json:"selection,omitempty"`

	// set once the order is created; from then on confirmation is sticky
	OrderID        string `json:"order_id,omitempty"`
	OrderReference string `json:"order_reference,omitempty"`

	// LastError gates UI affordances; it is observable state, not a step
	LastError string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) HasOrder() bool {
	return s.OrderReference != ""
}

// Machine owns step sequencing and the per-step guards. It consumes the
// pricing engine and shipping calculator; persistence and gateway calls stay
// with the caller.
type Machine struct {
	pricer   pricing.Engine
	shipping pricing.ShippingCalculator
}

func NewMachine(pricer pricing.Engine, shipping pricing.ShippingCalculator) *Machine {
	return &Machine{
		pricer:   pricer,
		shipping: shipping,
	}
}

// Begin freezes the cart into a new session at the cart step. An empty cart
// never enters the flow.
func (m *Machine) Begin(buyerID string, cart model.CartSnapshot) (*Session, error) {
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := cart.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		Step:      StepCart,
		Cart:      cart,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AdvanceToShipping applies the cart → shipping guard. Stock limits are
// checked by the caller against authoritative product rows before advancing.
func (m *Machine) AdvanceToShipping(s *Session) error {
	if s.Step != StepCart {
		return fmt.Errorf("%w: cannot advance to shipping from %s", ErrInvalidTransition, s.Step)
	}
	if err := s.Cart.Validate(); err != nil {
		return err
	}

	s.Step = StepShipping
	s.touch()
	return nil
}

// AdvanceToPayment applies the shipping → payment guard: a valid address
// with a resolved shipping cost. The quote is fixed here and reused at
// order creation.
func (m *Machine) AdvanceToPayment(s *Session, addr *model.ShippingAddress) error {
	if s.Step != StepShipping {
		return fmt.Errorf("%w: cannot advance to payment from %s", ErrInvalidTransition, s.Step)
	}
	if err := addr.Validate(); err != nil {
		return err
	}

	cost := m.resolveShipping(s, addr)
	quote := m.pricer.Compute(s.Cart.Items, cost)

	s.Address = addr
	s.Quote = &quote
	s.Step = StepPayment
	s.touch()
	return nil
}

// PrepareConfirmation applies the payment → confirmation guard and returns
// the normalized gateway request. The step itself only changes when an order
// is attached, so a failed order creation leaves the session on payment.
func (m *Machine) PrepareConfirmation(s *Session, sel *payment.Selection) (*payment.Request, error) {
	if s.Step != StepPayment {
		return nil, fmt.Errorf("%w: cannot confirm from %s", ErrInvalidTransition, s.Step)
	}

	req, err := payment.Normalize(sel)
	if err != nil {
		return nil, err
	}

	s.Selection = sel
	s.touch()
	return req, nil
}

// AttachOrder lands the session on confirmation with the created order. The
// reference never changes once set; retried attempts reuse it.
func (m *Machine) AttachOrder(s *Session, orderID, reference string) error {
	if s.Step != StepPayment {
		return fmt.Errorf("%w: cannot attach an order from %s", ErrInvalidTransition, s.Step)
	}
	if s.OrderReference != "" && s.OrderReference != reference {
		return fmt.Errorf("%w: session already holds order %s", ErrInvalidTransition, s.OrderReference)
	}

	s.OrderID = orderID
	s.OrderReference = reference
	s.Step = StepConfirmation
	s.LastError = ""
	s.touch()
	return nil
}

// Back steps shipping → cart or payment → shipping. Once an order exists
// there is no way back: a failed payment goes through ReturnToPayment.
func (m *Machine) Back(s *Session) error {
	if s.HasOrder() {
		return fmt.Errorf("%w: order %s already placed", ErrInvalidTransition, s.OrderReference)
	}

	switch s.Step {
	case StepShipping:
		s.Step = StepCart
	case StepPayment:
		s.Step = StepShipping
	case StepCart, StepConfirmation:
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, s.Step)
	default:
		return fmt.Errorf("%w: unknown step %s", ErrInvalidTransition, s.Step)
	}

	s.touch()
	return nil
}

// Reprice rebuilds the quote after catalog prices moved under the session
// and sends the buyer back to the shipping step: the new subtotal can flip
// the free-shipping threshold, so the shipping decision must be made again.
// A bound order priced the old cart, so the binding is dropped; the
// abandoned order stays pending in the store.
func (m *Machine) Reprice(s *Session) error {
	if s.Step != StepPayment || s.Address == nil {
		return fmt.Errorf("%w: nothing to reprice on %s", ErrInvalidTransition, s.Step)
	}

	s.ShippingCost = nil
	s.AddressDigest = ""

	cost := m.resolveShipping(s, s.Address)
	quote := m.pricer.Compute(s.Cart.Items, cost)
	s.Quote = &quote

	s.OrderID = ""
	s.OrderReference = ""
	s.Selection = nil
	s.Step = StepShipping
	s.touch()
	return nil
}

// ReturnToPayment brings a failed attempt back to the payment step for a
// retry with another method. The order reference is kept; the selection is
// cleared on method change.
func (m *Machine) ReturnToPayment(s *Session, reason string) error {
	if s.Step != StepConfirmation || !s.HasOrder() {
		return fmt.Errorf("%w: cannot retry payment from %s", ErrInvalidTransition, s.Step)
	}

	s.Selection = nil
	s.LastError = reason
	s.Step = StepPayment
	s.touch()
	return nil
}

func (m *Machine) resolveShipping(s *Session, addr *model.ShippingAddress) int64 {
	digest := addr.Digest()
	if s.ShippingCost != nil && s.AddressDigest == digest {
		return *s.ShippingCost
	}

	cost := m.shipping.Calculate(addr, s.Cart.Subtotal())
	s.ShippingCost = &cost
	s.AddressDigest = digest
	return cost
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
