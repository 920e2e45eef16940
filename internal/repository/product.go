package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercavio/checkout/internal/model"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, productID string) (*model.Product, error)
	FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Seed(ctx context.Context) error {
	stock := func(n int32) *int32 { return &n }
	products := []model.Product{
		{ID: "mochila-wayuu", Name: "Mochila Wayuu tejida", VendorID: "artesanias-guajira", Price: 185000, Currency: "COP", Stock: stock(12)},
		{ID: "cafe-huila-500", Name: "Café de origen Huila 500g", VendorID: "cafetal-andino", Price: 48000, Currency: "COP", Stock: stock(200)},
		{ID: "sombrero-vueltiao", Name: "Sombrero vueltiao 19 vueltas", VendorID: "artesanias-guajira", Price: 230000, Currency: "COP"},
		{ID: "panela-organica", Name: "Panela orgánica x12", VendorID: "cafetal-andino", Price: 36000, Currency: "COP", Stock: stock(80)},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) FindMany(ctx context.Context, productIDs []string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}
