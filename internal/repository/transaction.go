package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/model"
)

type TransactionRepository interface {
	// CreateOpen inserts the single open attempt for an order. A second
	// open attempt violates idx_open_attempt and surfaces as
	// gorm.ErrDuplicatedKey
	CreateOpen(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	FindOpen(ctx context.Context, orderReference string) (*model.Transaction, error)
	FindByID(ctx context.Context, id uint) (*model.Transaction, error)
	FindByGatewayID(ctx context.Context, provider, gatewayTransactionID string) (*model.Transaction, error)
	ListByOrder(ctx context.Context, orderReference string) ([]*model.Transaction, error)
	// MarkProcessing records the gateway handle once the attempt is started
	MarkProcessing(ctx context.Context, tx *gorm.DB, id uint, gatewayTransactionID, processURL string) error
	// Close moves an open attempt to a terminal status and frees the open
	// slot. Returns false when the attempt was already closed, so
	// concurrent webhook and return reconciliation settle exactly once
	Close(ctx context.Context, tx *gorm.DB, id uint, status model.TransactionStatus, failureReason string) (bool, error)
}

type transactionRepoImpl struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepoImpl{
		db: db,
	}
}

func (r *transactionRepoImpl) CreateOpen(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	open := true
	t.Open = &open
	if t.Status == "" {
		t.Status = model.TransactionStatusInitializing
	}

	return tx.WithContext(ctx).Create(t).Error
}

func (r *transactionRepoImpl) FindOpen(ctx context.Context, orderReference string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Where("order_reference = ?", orderReference).
		Where("open IS NOT NULL").
		First(&t).Error

	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *transactionRepoImpl) FindByID(ctx context.Context, id uint) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error

	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *transactionRepoImpl) FindByGatewayID(ctx context.Context, provider, gatewayTransactionID string) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Where("gateway_transaction_id = ?", gatewayTransactionID).
		First(&t).Error

	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *transactionRepoImpl) ListByOrder(ctx context.Context, orderReference string) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("order_reference = ?", orderReference).
		Order("id ASC").
		Find(&transactions).Error

	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (r *transactionRepoImpl) MarkProcessing(ctx context.Context, tx *gorm.DB, id uint, gatewayTransactionID, processURL string) error {
	result := tx.WithContext(ctx).Model(&model.Transaction{}).
		Where(`
			id = ?
			AND status IN ?
		`,
			id,
			[]model.TransactionStatus{model.TransactionStatusInitializing, model.TransactionStatusReady},
		).
		Updates(map[string]interface{}{
			"status":                 model.TransactionStatusProcessing,
			"gateway_transaction_id": gatewayTransactionID,
			"process_url":            processURL,
			"updated_at":             time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *transactionRepoImpl) Close(ctx context.Context, tx *gorm.DB, id uint, status model.TransactionStatus, failureReason string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Transaction{}).
		Where(`
			id = ?
			AND status IN ?
		`,
			id,
			[]model.TransactionStatus{
				model.TransactionStatusInitializing,
				model.TransactionStatusReady,
				model.TransactionStatusProcessing,
			},
		).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": failureReason,
			"open":           nil,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
