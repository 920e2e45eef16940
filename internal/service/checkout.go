package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/checkout"
	"github.com/mercavio/checkout/internal/gateway"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
	"github.com/mercavio/checkout/internal/repository"
)

type CartItemInput struct {
	ProductID         string
	Quantity          int32
	VariantAttributes map[string]string
}

type ConfirmResult struct {
	Session *checkout.Session
	Order   *model.Order
	// Provider names where the storefront sends the payment for gateway
	// methods; empty for offline methods
	Provider string
	Created  bool
}

type CheckoutService interface {
	Begin(ctx context.Context, buyerID string, items []CartItemInput) (*checkout.Session, error)
	Get(ctx context.Context, buyerID, sessionID string) (*checkout.Session, error)
	// ProceedToShipping re-verifies stock before the buyer types an address
	ProceedToShipping(ctx context.Context, buyerID, sessionID string) (*checkout.Session, error)
	// SubmitAddress prices shipping for the address and moves to payment
	SubmitAddress(ctx context.Context, buyerID, sessionID string, addr *model.ShippingAddress, save bool) (*checkout.Session, error)
	// Back steps backwards; on the confirmation step with an order placed it
	// returns to payment for a retry against the same order
	Back(ctx context.Context, buyerID, sessionID, reason string) (*checkout.Session, error)
	// Confirm validates the payment selection and places the order
	Confirm(ctx context.Context, buyerID, sessionID string, sel *payment.Selection) (*ConfirmResult, error)

	ListAddresses(ctx context.Context, buyerID string) ([]*model.SavedAddress, error)
	DeleteAddress(ctx context.Context, buyerID string, id uint) error
}

type checkoutServiceImpl struct {
	machine     *checkout.Machine
	store       checkout.Store
	registry    *gateway.Registry
	orders      OrderService
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	addressRepo repository.SavedAddressRepository
	logger      *zap.Logger
}

func NewCheckoutService(
	machine *checkout.Machine,
	store checkout.Store,
	registry *gateway.Registry,
	orders OrderService,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.SavedAddressRepository,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		machine:     machine,
		store:       store,
		registry:    registry,
		orders:      orders,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		addressRepo: addressRepo,
		logger:      logger,
	}
}

func (s *checkoutServiceImpl) Begin(ctx context.Context, buyerID string, items []CartItemInput) (*checkout.Session, error) {
	if len(items) == 0 {
		return nil, checkout.ErrEmptyCart
	}

	cartItems := make([]model.CartItem, len(items))
	for i, in := range items {
		cartItems[i] = model.CartItem{
			ProductID:         in.ProductID,
			Quantity:          in.Quantity,
			VariantAttributes: in.VariantAttributes,
		}
	}

	// Snapshot prices are authoritative from the start; the buyer never
	// submits a price
	products, _, err := resolveCartProducts(ctx, s.productRepo, cartItems)
	if err != nil {
		return nil, err
	}
	for i := range cartItems {
		cartItems[i].UnitPrice = products[cartItems[i].ProductID].Price
	}

	sess, err := s.machine.Begin(buyerID, model.CartSnapshot{Items: cartItems})
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("checkout started",
		zap.String("session_id", sess.ID),
		zap.String("buyer_id", buyerID),
		zap.Int("items", len(cartItems)),
	)

	return sess, nil
}

func (s *checkoutServiceImpl) Get(ctx context.Context, buyerID, sessionID string) (*checkout.Session, error) {
	return s.load(ctx, buyerID, sessionID)
}

func (s *checkoutServiceImpl) ProceedToShipping(ctx context.Context, buyerID, sessionID string) (*checkout.Session, error) {
	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.load(ctx, buyerID, sessionID)
	if err != nil {
		return nil, err
	}

	// products may have sold out while the buyer was browsing
	if _, _, err := resolveCartProducts(ctx, s.productRepo, sess.Cart.Items); err != nil {
		return nil, err
	}

	if err := s.machine.AdvanceToShipping(sess); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return sess, nil
}

func (s *checkoutServiceImpl) SubmitAddress(ctx context.Context, buyerID, sessionID string, addr *model.ShippingAddress, save bool) (*checkout.Session, error) {
	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.load(ctx, buyerID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.machine.AdvanceToPayment(sess, addr); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if save {
		if err := s.addressRepo.Save(ctx, &model.SavedAddress{BuyerID: buyerID, Address: *addr}); err != nil {
			// the checkout goes on; remembering the address is best-effort
			s.logger.Error("save address", zap.String("buyer_id", buyerID), zap.Error(err))
		}
	}

	return sess, nil
}

func (s *checkoutServiceImpl) Back(ctx context.Context, buyerID, sessionID, reason string) (*checkout.Session, error) {
	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.load(ctx, buyerID, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Step == checkout.StepConfirmation && sess.HasOrder() {
		// a settled order has nothing to retry; the webhook may have landed
		// while the buyer sat on the confirmation page
		paid, err := s.orderRepo.IsPaid(ctx, sess.OrderReference)
		if err != nil {
			return nil, fmt.Errorf("check order state: %w", err)
		}
		if paid {
			return nil, fmt.Errorf("%w: order %s is already paid", checkout.ErrInvalidTransition, sess.OrderReference)
		}

		if reason == "" {
			reason = "el pago no se completó"
		}
		if err := s.machine.ReturnToPayment(sess, reason); err != nil {
			return nil, err
		}
	} else {
		if err := s.machine.Back(sess); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return sess, nil
}

func (s *checkoutServiceImpl) Confirm(ctx context.Context, buyerID, sessionID string, sel *payment.Selection) (*ConfirmResult, error) {
	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.load(ctx, buyerID, sessionID)
	if err != nil {
		return nil, err
	}

	// double confirm lands on the already placed order
	if sess.HasOrder() && sess.Step == checkout.StepConfirmation {
		order, oerr := s.orderRepo.FindByReference(ctx, sess.OrderReference)
		if oerr != nil {
			return nil, fmt.Errorf("load placed order: %w", oerr)
		}
		return s.confirmResult(sess, order, false), nil
	}

	if _, err := s.machine.PrepareConfirmation(sess, sel); err != nil {
		var ve *payment.ValidationError
		if errors.As(err, &ve) || errors.Is(err, payment.ErrUnknownMethod) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	order, created, err := s.orders.Create(ctx, &CreateOrderInput{
		BuyerID:        buyerID,
		Items:          sess.Cart.Items,
		Address:        *sess.Address,
		PaymentMethod:  sel.Method,
		DisplayedTotal: sess.Quote.Total,
	})
	if err != nil {
		if errors.Is(err, ErrPriceMismatch) {
			if rerr := s.refreshPricing(ctx, sess); rerr != nil {
				s.logger.Error("refresh session pricing",
					zap.String("session_id", sess.ID),
					zap.Error(rerr),
				)
			}
		}
		return nil, err
	}

	if err := s.machine.AttachOrder(sess, order.ID, order.Reference); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("checkout confirmed",
		zap.String("session_id", sess.ID),
		zap.String("order_reference", order.Reference),
		zap.Bool("created", created),
	)

	return s.confirmResult(sess, order, created), nil
}

func (s *checkoutServiceImpl) confirmResult(sess *checkout.Session, order *model.Order, created bool) *ConfirmResult {
	provider := ""
	if order.PaymentMethod.RequiresGateway() {
		if client, err := s.registry.ForMethod(order.PaymentMethod); err == nil {
			provider = client.Name()
		}
	}

	return &ConfirmResult{
		Session:  sess,
		Order:    order,
		Provider: provider,
		Created:  created,
	}
}

// refreshPricing reloads catalog prices into the session after a mismatch
// and sends the buyer back to the shipping step with the refreshed quote;
// re-submitting the address re-decides shipping against the new subtotal.
func (s *checkoutServiceImpl) refreshPricing(ctx context.Context, sess *checkout.Session) error {
	products, _, err := resolveCartProducts(ctx, s.productRepo, sess.Cart.Items)
	if err != nil {
		return err
	}
	for i := range sess.Cart.Items {
		sess.Cart.Items[i].UnitPrice = products[sess.Cart.Items[i].ProductID].Price
	}

	if err := s.machine.Reprice(sess); err != nil {
		return err
	}
	sess.LastError = "los precios cambiaron, revisa el nuevo total"

	return s.store.Save(ctx, sess)
}

func (s *checkoutServiceImpl) ListAddresses(ctx context.Context, buyerID string) ([]*model.SavedAddress, error) {
	return s.addressRepo.ListByBuyer(ctx, buyerID)
}

func (s *checkoutServiceImpl) DeleteAddress(ctx context.Context, buyerID string, id uint) error {
	err := s.addressRepo.Delete(ctx, buyerID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: address %d", ErrValidation, id)
	}
	return err
}

// load fetches the session and hides other buyers' sessions behind not-found.
func (s *checkoutServiceImpl) load(ctx context.Context, buyerID, sessionID string) (*checkout.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.BuyerID != buyerID {
		return nil, checkout.ErrSessionNotFound
	}
	return sess, nil
}

func (s *checkoutServiceImpl) acquire(ctx context.Context, sessionID string) (func(), error) {
	ok, err := s.store.AcquireProcessing(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire processing gate: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	return func() {
		if err := s.store.ReleaseProcessing(context.WithoutCancel(ctx), sessionID); err != nil {
			s.logger.Error("release processing gate", zap.String("session_id", sessionID), zap.Error(err))
		}
	}, nil
}
