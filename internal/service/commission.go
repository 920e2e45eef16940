package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/repository"
)

type CommissionService interface {
	// Split records the vendor/platform split for a settled payment. Runs
	// inside the settlement transaction; a split already stored for the
	// order is returned unchanged even if rates moved since
	Split(ctx context.Context, tx *gorm.DB, order *model.Order, settled *model.Transaction) (*model.Commission, error)
	SetVendorRate(ctx context.Context, vendorID string, rate decimal.Decimal) (*model.Vendor, error)
	GetByOrder(ctx context.Context, orderID string) (*model.Commission, error)
}

type commissionServiceImpl struct {
	platformRate   decimal.Decimal
	vendorRepo     repository.VendorRepository
	commissionRepo repository.CommissionRepository
	logger         *zap.Logger
}

func NewCommissionService(
	platformRate decimal.Decimal,
	vendorRepo repository.VendorRepository,
	commissionRepo repository.CommissionRepository,
	logger *zap.Logger,
) CommissionService {
	return &commissionServiceImpl{
		platformRate:   platformRate,
		vendorRepo:     vendorRepo,
		commissionRepo: commissionRepo,
		logger:         logger,
	}
}

func (s *commissionServiceImpl) Split(ctx context.Context, tx *gorm.DB, order *model.Order, settled *model.Transaction) (*model.Commission, error) {
	// a replayed settlement reuses the recorded split; the unique order key
	// below still backstops a race between two settlement paths
	exists, err := s.commissionRepo.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("check commission: %w", err)
	}
	if exists {
		return s.commissionRepo.GetByOrder(ctx, order.ID)
	}

	rate := s.platformRate
	vendor, err := s.vendorRepo.Get(ctx, order.VendorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load vendor %s: %w", order.VendorID, err)
	}
	if vendor != nil && vendor.CommissionRate != nil {
		rate = *vendor.CommissionRate
	}

	// COP has no decimal places; halves round up, the vendor absorbs the
	// remainder so the two shares always sum to the settled amount
	platformAmount := decimal.NewFromInt(settled.Amount).Mul(rate).Round(0).IntPart()
	vendorAmount := settled.Amount - platformAmount

	commission := &model.Commission{
		OrderID:        order.ID,
		TransactionID:  settled.ID,
		VendorID:       order.VendorID,
		VendorAmount:   vendorAmount,
		PlatformAmount: platformAmount,
		Rate:           rate,
	}

	if err := s.commissionRepo.Create(ctx, tx, commission); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.commissionRepo.GetByOrder(ctx, order.ID)
		}
		return nil, fmt.Errorf("store commission: %w", err)
	}

	s.logger.Info("commission split recorded",
		zap.String("order_reference", order.Reference),
		zap.String("vendor_id", order.VendorID),
		zap.Int64("vendor_amount", vendorAmount),
		zap.Int64("platform_amount", platformAmount),
		zap.String("rate", rate.String()),
	)

	return commission, nil
}

func (s *commissionServiceImpl) SetVendorRate(ctx context.Context, vendorID string, rate decimal.Decimal) (*model.Vendor, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: commission rate must be in [0, 1)", ErrValidation)
	}

	if err := s.vendorRepo.SetCommissionRate(ctx, vendorID, rate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: vendor %s", ErrValidation, vendorID)
		}
		return nil, fmt.Errorf("set vendor rate: %w", err)
	}

	return s.vendorRepo.Get(ctx, vendorID)
}

func (s *commissionServiceImpl) GetByOrder(ctx context.Context, orderID string) (*model.Commission, error) {
	commission, err := s.commissionRepo.GetByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return commission, nil
}
