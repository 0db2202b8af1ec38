package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/partner/domain"
	"github.com/shoplane/payments/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO partners (id, name, callback_url, secret, events, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		partner.ID,
		partner.Name,
		partner.CallbackURL,
		partner.Secret,
		partner.Events,
		partner.Active,
		partner.CreatedAt,
		partner.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	var partner domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, callback_url, secret, events, active, created_at, updated_at
		 FROM partners WHERE id = ?`,
		id,
	).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, nil
	}
	return &partner, nil
}

// FindActiveSubscribers loads active partners and filters the subscription
// list in process. The events column is a JSON array and membership queries
// against it are not portable across the supported dialects.
func (r *repo) FindActiveSubscribers(ctx context.Context, db *gorm.DB, event string) ([]*domain.Partner, error) {
	var partners []*domain.Partner
	err := db.WithContext(ctx).
		Model(&domain.Partner{}).
		Where("active = ?", true).
		Order("created_at asc, id asc").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}

	subscribed := make([]*domain.Partner, 0, len(partners))
	for _, partner := range partners {
		if partner.Subscribed(event) {
			subscribed = append(subscribed, partner)
		}
	}
	return subscribed, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.Partner, error) {
	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	stmt := db.WithContext(ctx).Model(&domain.Partner{})
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) > (?, ?)", createdAt, cursorID)
	}

	var partners []*domain.Partner
	err := stmt.
		Order("created_at asc, id asc").
		Limit(pageSize + 1).
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *repo) UpdateSubscription(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Exec(
		`UPDATE partners SET callback_url = ?, events = ?, updated_at = ? WHERE id = ?`,
		partner.CallbackURL,
		partner.Events,
		partner.UpdatedAt,
		partner.ID,
	).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE partners SET active = ?, updated_at = ? WHERE id = ?`,
		active,
		updatedAt,
		id,
	).Error
}
