package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByReference(ctx context.Context, reference string) (*model.Order, error)
	GetItems(ctx context.Context, reference string) ([]*model.OrderItem, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error)
	// UpdateStatus moves the order only when its current status is one of
	// from; returns gorm.ErrRecordNotFound when the guard misses
	UpdateStatus(ctx context.Context, tx *gorm.DB, reference string, from []model.OrderStatus, to model.OrderStatus) error
	// UpdateMethod rewrites the payment method of an order that is still
	// awaiting payment or fulfillment; settled orders never change
	UpdateMethod(ctx context.Context, reference string, method model.PaymentMethod, status model.OrderStatus) error
	IsPaid(ctx context.Context, reference string) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByReference(ctx context.Context, reference string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) GetItems(ctx context.Context, reference string) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_reference = ?", reference).
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepoImpl) ListByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, reference string, from []model.OrderStatus, to model.OrderStatus) error {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where(`
			reference = ?
			AND status IN ?
		`,
			reference,
			from,
		).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *orderRepoImpl) UpdateMethod(ctx context.Context, reference string, method model.PaymentMethod, status model.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where(`
			reference = ?
			AND status IN ?
		`,
			reference,
			[]model.OrderStatus{model.OrderStatusPendingPayment, model.OrderStatusPendingFulfillment},
		).
		Updates(map[string]interface{}{
			"payment_method": method,
			"status":         status,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *orderRepoImpl) IsPaid(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("reference = ?", reference).
		Where("status IN ?", []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusFulfilled}).
		Count(&count).Error

	return count > 0, err
}
