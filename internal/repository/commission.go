package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/model"
)

type CommissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, commission *model.Commission) error
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	GetByOrder(ctx context.Context, orderID string) (*model.Commission, error)
}

type commissionRepositoryImpl struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepositoryImpl{
		db: db,
	}
}

func (r *commissionRepositoryImpl) Create(ctx context.Context, tx *gorm.DB, commission *model.Commission) error {
	return tx.WithContext(ctx).Create(commission).Error
}

func (r *commissionRepositoryImpl) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Commission{}).
		Where("order_id = ?", orderID).
		Count(&count).Error

	return count > 0, err
}

func (r *commissionRepositoryImpl) GetByOrder(ctx context.Context, orderID string) (*model.Commission, error) {
	var commission model.Commission
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&commission).Error

	if err != nil {
		return nil, err
	}

	return &commission, nil
}
