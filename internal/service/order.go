package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/events"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/pricing"
	"github.com/mercavio/checkout/internal/repository"
)

// orderNamespace seeds the deterministic reference so the same buyer
// submitting the same cart always lands on the same order row.
var orderNamespace = uuid.MustParse("5b918a79-2bfe-47c8-a2dd-61d4f713b8e2")

// priceTolerance absorbs a 1 COP rounding difference between what the buyer
// saw and the server-side quote.
const priceTolerance = 1

type CreateOrderInput struct {
	BuyerID        string
	Items          []model.CartItem
	Address        model.ShippingAddress
	PaymentMethod  model.PaymentMethod
	Notes          string
	// DisplayedTotal is the total the buyer confirmed; zero skips the
	// mismatch check for callers that render the server quote verbatim
	DisplayedTotal int64
}

type OrderDetail struct {
	Order        *model.Order
	Items        []*model.OrderItem
	Transactions []*model.Transaction
}

type OrderService interface {
	// Create is idempotent per (buyer, cart snapshot); the bool reports
	// whether this call created the order or found it already stored
	Create(ctx context.Context, in *CreateOrderInput) (*model.Order, bool, error)
	GetByReference(ctx context.Context, reference string) (*OrderDetail, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error)
}

type orderServiceImpl struct {
	db          *gorm.DB
	pricer      pricing.Engine
	shipping    pricing.ShippingCalculator
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	txRepo      repository.TransactionRepository
	publisher   events.Publisher
	logger      *zap.Logger
}

func NewOrderService(
	db *gorm.DB,
	pricer pricing.Engine,
	shipping pricing.ShippingCalculator,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	txRepo repository.TransactionRepository,
	publisher events.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		db:          db,
		pricer:      pricer,
		shipping:    shipping,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		txRepo:      txRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *orderServiceImpl) Create(ctx context.Context, in *CreateOrderInput) (*model.Order, bool, error) {
	snapshot := model.CartSnapshot{Items: in.Items}
	if len(snapshot.Items) == 0 {
		return nil, false, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := in.Address.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !in.PaymentMethod.IsValid() {
		return nil, false, fmt.Errorf("%w: payment method %q", ErrValidation, in.PaymentMethod)
	}

	// The reference keys on the submitted snapshot: a retry of the same cart
	// maps to the same order, a changed cart starts a new one.
	reference := orderReference(in.BuyerID, snapshot.Digest())

	products, vendorID, err := resolveCartProducts(ctx, s.productRepo, snapshot.Items)
	if err != nil {
		return nil, false, err
	}

	// Server-side repricing from authoritative product rows.
	priced := make([]model.CartItem, len(snapshot.Items))
	for i, item := range snapshot.Items {
		priced[i] = item
		priced[i].UnitPrice = products[item.ProductID].Price
	}
	pricedSnapshot := model.CartSnapshot{Items: priced}
	shippingCost := s.shipping.Calculate(&in.Address, pricedSnapshot.Subtotal())
	quote := s.pricer.Compute(priced, shippingCost)

	if in.DisplayedTotal > 0 {
		diff := quote.Total - in.DisplayedTotal
		if diff < -priceTolerance || diff > priceTolerance {
			return nil, false, fmt.Errorf("%w: confirmed %d, current %d", ErrPriceMismatch, in.DisplayedTotal, quote.Total)
		}
	}

	status := model.OrderStatusPendingPayment
	if !in.PaymentMethod.RequiresGateway() {
		// cash on delivery and bank transfer settle outside the gateway
		status = model.OrderStatusPendingFulfillment
	}

	order := &model.Order{
		ID:            uuid.NewString(),
		Reference:     reference,
		BuyerID:       in.BuyerID,
		VendorID:      vendorID,
		Status:        status,
		PaymentMethod: in.PaymentMethod,
		Subtotal:      quote.Subtotal,
		IVA:           quote.IVA,
		Shipping:      quote.Shipping,
		Total:         quote.Total,
		Currency:      "COP",
		Address:       in.Address,
		Notes:         in.Notes,
	}

	orderItems := make([]*model.OrderItem, len(priced))
	for i, item := range priced {
		orderItems[i] = &model.OrderItem{
			OrderReference:    reference,
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			Currency:          "COP",
			VariantAttributes: item.VariantAttributes,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order: %w", err)
		}
		if err := s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
			return fmt.Errorf("store order items: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := s.orderRepo.FindByReference(ctx, reference)
			if ferr != nil {
				return nil, false, fmt.Errorf("fetch existing order %s: %w", reference, ferr)
			}
			if existing.PaymentMethod != in.PaymentMethod {
				existing, ferr = s.switchMethod(ctx, existing, in.PaymentMethod)
				if ferr != nil {
					return nil, false, ferr
				}
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.logger.Info("order created",
		zap.String("order_reference", reference),
		zap.String("buyer_id", in.BuyerID),
		zap.String("payment_method", string(in.PaymentMethod)),
		zap.Int64("total", quote.Total),
	)

	if err := s.publisher.PublishOrderCreated(ctx, &events.OrderCreated{
		OrderID:       order.ID,
		Reference:     order.Reference,
		BuyerID:       order.BuyerID,
		VendorID:      order.VendorID,
		PaymentMethod: string(order.PaymentMethod),
		Total:         order.Total,
		Currency:      order.Currency,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.logger.Error("publish order created", zap.String("order_reference", reference), zap.Error(err))
	}

	return order, true, nil
}

// switchMethod lets an unpaid order follow the buyer's latest method choice
// on a confirmation retry. The switch is refused while a payment attempt is
// open so a parked redirect cannot race an offline settlement.
func (s *orderServiceImpl) switchMethod(ctx context.Context, order *model.Order, method model.PaymentMethod) (*model.Order, error) {
	if order.Status != model.OrderStatusPendingPayment && order.Status != model.OrderStatusPendingFulfillment {
		return order, nil
	}

	if _, err := s.txRepo.FindOpen(ctx, order.Reference); err == nil {
		return nil, fmt.Errorf("%w: order %s has an attempt open", ErrTransactionInFlight, order.Reference)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	status := model.OrderStatusPendingPayment
	if !method.RequiresGateway() {
		status = model.OrderStatusPendingFulfillment
	}
	if err := s.orderRepo.UpdateMethod(ctx, order.Reference, method, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// settled in between; the stored order wins
			return s.orderRepo.FindByReference(ctx, order.Reference)
		}
		return nil, fmt.Errorf("switch payment method: %w", err)
	}

	order.PaymentMethod = method
	order.Status = status
	s.logger.Info("order payment method switched",
		zap.String("order_reference", order.Reference),
		zap.String("payment_method", string(method)),
	)
	return order, nil
}

// resolveCartProducts loads the authoritative product rows and enforces the
// single-vendor and stock rules. Stock is checked, never decremented.
func resolveCartProducts(ctx context.Context, productRepo repository.ProductRepository, items []model.CartItem) (map[string]*model.Product, string, error) {
	snapshot := model.CartSnapshot{Items: items}
	ids := snapshot.ProductIDs()

	products, err := productRepo.FindMany(ctx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("load products: %w", err)
	}

	byID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	vendorID := ""
	quantities := make(map[string]int32, len(items))
	for _, item := range items {
		quantities[item.ProductID] += item.Quantity
	}
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, "", fmt.Errorf("%w: unknown product %q", ErrValidation, item.ProductID)
		}
		if vendorID == "" {
			vendorID = product.VendorID
		} else if vendorID != product.VendorID {
			return nil, "", ErrMixedVendorCart
		}
		if product.Stock != nil && *product.Stock < quantities[product.ID] {
			return nil, "", fmt.Errorf("%w: %s", ErrInsufficientStock, product.ID)
		}
	}

	return byID, vendorID, nil
}

func (s *orderServiceImpl) GetByReference(ctx context.Context, reference string) (*OrderDetail, error) {
	order, err := s.orderRepo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := s.orderRepo.GetItems(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	transactions, err := s.txRepo.ListByOrder(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	return &OrderDetail{
		Order:        order,
		Items:        items,
		Transactions: transactions,
	}, nil
}

func (s *orderServiceImpl) ListByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error) {
	return s.orderRepo.ListByBuyer(ctx, buyerID)
}

func orderReference(buyerID, cartDigest string) string {
	id := uuid.NewSHA1(orderNamespace, []byte(buyerID+"|"+cartDigest))
	return "ORD-" + id.String()
}
