package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shoplane/payments/internal/clock"
	"github.com/shoplane/payments/internal/event"
	"github.com/shoplane/payments/internal/partner/domain"
	"github.com/shoplane/payments/internal/signature"
	"github.com/shoplane/payments/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("partner.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterPartnerRequest) (domain.RegisteredPartner, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.RegisteredPartner{}, domain.ErrInvalidName
	}

	callbackURL, err := validateCallbackURL(req.CallbackURL)
	if err != nil {
		return domain.RegisteredPartner{}, err
	}

	events, err := validateEvents(req.Events)
	if err != nil {
		return domain.RegisteredPartner{}, err
	}
	encoded, err := domain.EncodeEvents(events)
	if err != nil {
		return domain.RegisteredPartner{}, domain.ErrInvalidEvents
	}

	secret, err := signature.GenerateSecret(signature.DefaultSecretLength)
	if err != nil {
		return domain.RegisteredPartner{}, err
	}

	now := s.clock.Now()
	partner := domain.Partner{
		ID:          s.genID.Generate(),
		Name:        name,
		CallbackURL: callbackURL,
		Secret:      secret,
		Events:      encoded,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &partner); err != nil {
		return domain.RegisteredPartner{}, err
	}

	s.log.Info("partner registered",
		zap.String("partner_id", partner.ID.String()),
		zap.Strings("events", events),
	)

	// The only response that ever carries the secret.
	return domain.RegisteredPartner{
		ID:          partner.ID.String(),
		Name:        partner.Name,
		CallbackURL: partner.CallbackURL,
		Secret:      secret,
		Events:      events,
		Active:      partner.Active,
		CreatedAt:   partner.CreatedAt,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Partner, error) {
	partnerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Partner{}, domain.ErrInvalidID
	}

	partner, err := s.repo.FindByID(ctx, s.db, partnerID)
	if err != nil {
		return domain.Partner{}, err
	}
	if partner == nil {
		return domain.Partner{}, domain.ErrNotFound
	}
	return *partner, nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) (domain.ListPartnerResponse, error) {
	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, page)
	if err != nil {
		return domain.ListPartnerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(partner *domain.Partner) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        partner.ID.String(),
			CreatedAt: partner.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	partners := make([]domain.Partner, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		partners = append(partners, *item)
	}

	return domain.ListPartnerResponse{
		PageInfo: *pageInfo,
		Partners: partners,
	}, nil
}

// Update touches only the callback URL and subscription list. The secret and
// the active flag have their own paths.
func (s *Service) Update(ctx context.Context, req domain.UpdatePartnerRequest) (domain.Partner, error) {
	partner, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return domain.Partner{}, err
	}

	if req.CallbackURL != nil {
		callbackURL, err := validateCallbackURL(*req.CallbackURL)
		if err != nil {
			return domain.Partner{}, err
		}
		partner.CallbackURL = callbackURL
	}

	if req.Events != nil {
		events, err := validateEvents(req.Events)
		if err != nil {
			return domain.Partner{}, err
		}
		encoded, err := domain.EncodeEvents(events)
		if err != nil {
			return domain.Partner{}, domain.ErrInvalidEvents
		}
		partner.Events = encoded
	}

	partner.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateSubscription(ctx, s.db, &partner); err != nil {
		return domain.Partner{}, err
	}
	return partner, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.setActive(ctx, id, false)
}

func (s *Service) Reactivate(ctx context.Context, id string) error {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id string, active bool) error {
	partner, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SetActive(ctx, s.db, partner.ID, active, s.clock.Now()); err != nil {
		return err
	}

	s.log.Info("partner active flag changed",
		zap.String("partner_id", partner.ID.String()),
		zap.Bool("active", active),
	)
	return nil
}

func validateCallbackURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", domain.ErrInvalidCallbackURL
	}
	return raw, nil
}

func validateEvents(events []string) ([]string, error) {
	if len(events) == 0 {
		return nil, domain.ErrInvalidEvents
	}

	seen := make(map[string]struct{}, len(events))
	out := make([]string, 0, len(events))
	for _, name := range events {
		name = strings.TrimSpace(name)
		if !event.Valid(name) {
			return nil, domain.ErrInvalidEvents
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
