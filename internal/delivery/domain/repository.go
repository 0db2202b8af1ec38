package domain

import (
	"context"

	"github.com/shoplane/payments/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Append(ctx context.Context, db *gorm.DB, attempt *Attempt) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Attempt, error)
}
