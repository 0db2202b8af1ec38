package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/delivery/domain"
	"github.com/shoplane/payments/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, attempt *domain.Attempt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO delivery_attempts (
			id, partner_id, direction, event, payload, signature,
			attempt_number, status, response_code, response_body, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.PartnerID,
		attempt.Direction,
		attempt.Event,
		attempt.Payload,
		attempt.Signature,
		attempt.AttemptNumber,
		attempt.Status,
		attempt.ResponseCode,
		attempt.ResponseBody,
		attempt.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Attempt, error) {
	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	stmt := db.WithContext(ctx).Model(&domain.Attempt{})
	if filter.PartnerID != "" {
		partnerID, err := snowflake.ParseString(filter.PartnerID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("partner_id = ?", partnerID)
	}
	if filter.Event != "" {
		stmt = stmt.Where("event = ?", filter.Event)
	}
	if filter.Direction != "" {
		stmt = stmt.Where("direction = ?", filter.Direction)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

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
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, cursorID)
	}

	var attempts []*domain.Attempt
	err := stmt.
		Order("created_at desc, id desc").
		Limit(pageSize + 1).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
