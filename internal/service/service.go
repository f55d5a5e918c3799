// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AmeyGaikar/book-it/internal/model"
	"github.com/AmeyGaikar/book-it/internal/promo"
	"github.com/AmeyGaikar/book-it/internal/repository"
)

// ValidationError reports a request rejected before any database work,
// listing the missing or malformed fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// ExperienceStore is the catalog read contract the service depends on.
type ExperienceStore interface {
	List(ctx context.Context, search string) ([]model.Experience, error)
	GetByID(ctx context.Context, id int64) (*model.Experience, error)
}

// SlotStore is the slot read contract the service depends on.
type SlotStore interface {
	ListUpcomingByExperience(ctx context.Context, experienceID int64) ([]model.Slot, error)
}

// PromoStore is the promo lookup contract the service depends on.
type PromoStore interface {
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)
}

// BookingStore is the booking transaction contract the service depends on.
type BookingStore interface {
	Create(ctx context.Context, p repository.CreateBookingParams) (*model.Booking, error)
}

// Service orchestrates catalog, promo, and booking operations.
type Service struct {
	experiences ExperienceStore
	slots       SlotStore
	promos      PromoStore
	bookings    BookingStore
}

// NewService constructs a Service with its dependencies.
func NewService(experiences ExperienceStore, slots SlotStore, promos PromoStore, bookings BookingStore) *Service {
	return &Service{
		experiences: experiences,
		slots:       slots,
		promos:      promos,
		bookings:    bookings,
	}
}

// ListExperiences returns the catalog, optionally filtered by a search term
// matched against title and location.
func (s *Service) ListExperiences(ctx context.Context, search string) ([]model.Experience, error) {
	return s.experiences.List(ctx, strings.ToLower(strings.TrimSpace(search)))
}

// GetExperience returns one experience with its upcoming slots.
func (s *Service) GetExperience(ctx context.Context, id int64) (*model.ExperienceDetail, error) {
	exp, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		// Surface ErrExperienceNotFound directly so handlers can set 404.
		if errors.Is(err, repository.ErrExperienceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get experience: %w", err)
	}

	slots, err := s.slots.ListUpcomingByExperience(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	return &model.ExperienceDetail{Experience: *exp, Slots: slots}, nil
}

// ValidatePromo previews a promo code against an amount without consuming
// it. Unlike booking creation, a bad code here is a hard failure:
// ErrPromoNotFound covers unknown, inactive, expired, and exhausted codes.
func (s *Service) ValidatePromo(ctx context.Context, code string, amount decimal.Decimal) (*model.PromoValidationResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{Fields: []string{"code"}}
	}

	p, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("validate promo: %w", err)
	}

	if !promo.Usable(p, time.Now()) {
		return nil, repository.ErrPromoNotFound
	}

	discount := promo.Discount(p, amount)
	return &model.PromoValidationResponse{
		Valid:          true,
		Code:           p.Code,
		DiscountType:   p.DiscountType,
		DiscountValue:  p.DiscountValue,
		DiscountAmount: discount,
		FinalAmount:    amount.Sub(discount).Round(2),
	}, nil
}

// CreateBooking validates the request and delegates the atomic
// reserve-price-insert transaction to the repository layer.
func (s *Service) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.PromoCode = strings.TrimSpace(req.PromoCode)

	var missing []string
	if req.ExperienceID <= 0 {
		missing = append(missing, "experienceId")
	}
	if req.SlotID <= 0 {
		missing = append(missing, "slotId")
	}
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Email == "" || !isValidEmail(req.Email) {
		missing = append(missing, "email")
	}
	if req.Phone == "" {
		missing = append(missing, "phone")
	}
	if req.Participants <= 0 {
		missing = append(missing, "participants")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	booking, err := s.bookings.Create(ctx, repository.CreateBookingParams{
		ExperienceID: req.ExperienceID,
		SlotID:       req.SlotID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Participants: req.Participants,
		PromoCode:    req.PromoCode,
	})
	if err != nil {
		// Surface domain errors directly so handlers can set correct HTTP status.
		var capErr *repository.InsufficientCapacityError
		if errors.Is(err, repository.ErrSlotNotFound) ||
			errors.Is(err, repository.ErrExperienceNotFound) ||
			errors.Is(err, repository.ErrLockTimeout) ||
			errors.As(err, &capErr) {
			return nil, err
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return booking, nil
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
