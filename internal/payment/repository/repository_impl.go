package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, provider_tx_id, provider, order_id, customer_id,
			amount, currency, status, metadata, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.ProviderTxID,
		tx.Provider,
		tx.OrderID,
		tx.CustomerID,
		tx.Amount,
		tx.Currency,
		tx.Status,
		tx.Metadata,
		tx.ErrorMessage,
		tx.CreatedAt,
		tx.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider_tx_id, provider, order_id, customer_id,
			amount, currency, status, metadata, error_message, created_at, updated_at
		 FROM transactions WHERE id = ?`,
		id,
	).Scan(&tx).Error
	if err != nil {
		return nil, err
	}
	if tx.ID == 0 {
		return nil, nil
	}
	return &tx, nil
}

func (r *repo) FindByProviderTxID(ctx context.Context, db *gorm.DB, providerTxID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider_tx_id, provider, order_id, customer_id,
			amount, currency, status, metadata, error_message, created_at, updated_at
		 FROM transactions WHERE provider_tx_id = ? LIMIT 1`,
		providerTxID,
	).Scan(&tx).Error
	if err != nil {
		return nil, err
	}
	if tx.ID == 0 {
		return nil, nil
	}
	return &tx, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status, errorMessage string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status,
		errorMessage,
		updatedAt,
		id,
	).Error
}
