package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shoplane/payments/pkg/db/pagination"
)

type RegisterPartnerRequest struct {
	Name        string   `json:"name"`
	CallbackURL string   `json:"callback_url"`
	Events      []string `json:"events"`
}

// RegisteredPartner carries the one-time-visible secret. Returned only from
// Register; every other read path serves Partner with the secret omitted.
type RegisteredPartner struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CallbackURL string    `json:"callback_url"`
	Secret      string    `json:"secret"`
	Events      []string  `json:"events"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type UpdatePartnerRequest struct {
	ID          string
	CallbackURL *string  `json:"callback_url"`
	Events      []string `json:"events"`
}

type ListPartnerResponse struct {
	pagination.PageInfo
	Partners []Partner `json:"partners"`
}

type Service interface {
	Register(ctx context.Context, req RegisterPartnerRequest) (RegisteredPartner, error)
	GetByID(ctx context.Context, id string) (Partner, error)
	List(ctx context.Context, page pagination.Pagination) (ListPartnerResponse, error)
	Update(ctx context.Context, req UpdatePartnerRequest) (Partner, error)
	Deactivate(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidCallbackURL = errors.New("invalid_callback_url")
	ErrInvalidEvents      = errors.New("invalid_events")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("partner_not_found")
)
