package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercavio/checkout/internal/model"
)

type SavedAddressRepository interface {
	Save(ctx context.Context, addr *model.SavedAddress) error
	ListByBuyer(ctx context.Context, buyerID string) ([]*model.SavedAddress, error)
	Delete(ctx context.Context, buyerID string, id uint) error
}

type savedAddressRepoImpl struct {
	db *gorm.DB
}

func NewSavedAddressRepository(db *gorm.DB) SavedAddressRepository {
	return &savedAddressRepoImpl{
		db: db,
	}
}

func (r *savedAddressRepoImpl) Save(ctx context.Context, addr *model.SavedAddress) error {
	addr.Digest = addr.Address.Digest()

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "buyer_id"}, {Name: "digest"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       addr.Address.Name,
			"phone":      addr.Address.Phone,
			"notes":      addr.Address.Notes,
			"updated_at": time.Now(),
		}),
	}).Create(addr).Error
}

func (r *savedAddressRepoImpl) ListByBuyer(ctx context.Context, buyerID string) ([]*model.SavedAddress, error) {
	var addresses []*model.SavedAddress
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("updated_at DESC").
		Find(&addresses).Error

	if err != nil {
		return nil, err
	}

	return addresses, nil
}

func (r *savedAddressRepoImpl) Delete(ctx context.Context, buyerID string, id uint) error {
	result := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Where("id = ?", id).
		Delete(&model.SavedAddress{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
