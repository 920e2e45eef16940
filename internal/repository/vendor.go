package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercavio/checkout/internal/model"
)

type VendorRepository interface {
	Seed(ctx context.Context) error
	Get(ctx context.Context, vendorID string) (*model.Vendor, error)
	SetCommissionRate(ctx context.Context, vendorID string, rate decimal.Decimal) error
}

type vendorRepoImpl struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepoImpl{
		db: db,
	}
}

func (r *vendorRepoImpl) Seed(ctx context.Context) error {
	vendors := []model.Vendor{
		{ID: "artesanias-guajira", Name: "Artesanías de La Guajira"},
		{ID: "cafetal-andino", Name: "Cafetal Andino"},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&vendors).Error
}

func (r *vendorRepoImpl) Get(ctx context.Context, vendorID string) (*model.Vendor, error) {
	var vendor model.Vendor
	err := r.db.WithContext(ctx).
		Where("id = ?", vendorID).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}

	return &vendor, nil
}

func (r *vendorRepoImpl) SetCommissionRate(ctx context.Context, vendorID string, rate decimal.Decimal) error {
	result := r.db.
		WithContext(ctx).
		Model(&model.Vendor{}).
		Where("id = ?", vendorID).
		Updates(map[string]interface{}{
			"commission_rate": rate,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
