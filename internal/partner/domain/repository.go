package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, partner *Partner) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Partner, error)
	FindActiveSubscribers(ctx context.Context, db *gorm.DB, event string) ([]*Partner, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Partner, error)
	UpdateSubscription(ctx context.Context, db *gorm.DB, partner *Partner) error
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, updatedAt time.Time) error
}
