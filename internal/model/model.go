// Package model defines the core domain types for the BookIt experience
// booking platform.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The API emits money fields as bare JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Experience is a bookable offering (tour, class, activity) with a base
// price and display metadata. Read-only as far as the booking core goes.
type Experience struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	Price           decimal.Decimal `json:"price"`
	Duration        string          `json:"duration"`
	Category        string          `json:"category"`
	ImageURL        string          `json:"image_url"`
	Rating          decimal.Decimal `json:"rating"`
	MaxParticipants int             `json:"max_participants"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Slot is a specific date/time occurrence of an Experience with finite
// capacity. Invariants: 0 <= available_spots <= total_spots, and
// is_sold_out is true exactly when available_spots is zero.
type Slot struct {
	ID             int64     `json:"id"`
	ExperienceID   int64     `json:"experience_id"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	AvailableSpots int       `json:"available_spots"`
	TotalSpots     int       `json:"total_spots"`
	IsSoldOut      bool      `json:"is_sold_out"`
	CreatedAt      time.Time `json:"created_at"`
}

// SoldOut reports whether the slot should carry the sold-out flag.
func (s *Slot) SoldOut() bool {
	return s.AvailableSpots == 0
}

// HasCapacity reports whether the slot can seat n more participants.
func (s *Slot) HasCapacity(n int) bool {
	return s.AvailableSpots >= n
}

// ExperienceDetail is an Experience together with its upcoming slots.
type ExperienceDetail struct {
	Experience
	Slots []Slot `json:"slots"`
}

// DiscountType identifies how a promo code's discount value is interpreted.
type DiscountType string

// Supported discount types.
const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode is a discount rule identified by a unique code string.
// The validity window and usage limit are optional; a nil field means
// the constraint does not apply.
type PromoCode struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	IsActive      bool            `json:"is_active"`
	ValidFrom     *time.Time      `json:"valid_from,omitempty"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
	UsageLimit    *int            `json:"usage_limit,omitempty"`
	UsageCount    int             `json:"usage_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BookingStatusConfirmed is the status assigned to every successfully
// committed booking. There is no cancellation path in this core.
const BookingStatusConfirmed = "confirmed"

// Booking is a confirmed reservation of participant seats on one Slot,
// with the final computed price. Immutable once created.
type Booking struct {
	ID             int64           `json:"id"`
	ExperienceID   int64           `json:"experience_id"`
	SlotID         int64           `json:"slot_id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Participants   int             `json:"participants"`
	PromoCode      *string         `json:"promo_code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	BookingStatus  string          `json:"booking_status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreateBookingRequest is the payload for POST /api/bookings.
type CreateBookingRequest struct {
	ExperienceID int64  `json:"experienceId"`
	SlotID       int64  `json:"slotId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Participants int    `json:"participants"`
	PromoCode    string `json:"promoCode,omitempty"`
}

// BookingResponse is the success envelope for POST /api/bookings.
type BookingResponse struct {
	Success bool     `json:"success"`
	Booking *Booking `json:"booking"`
}

// ValidatePromoRequest is the payload for POST /api/promo/validate.
type ValidatePromoRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// PromoValidationResponse is the success payload for POST /api/promo/validate.
type PromoValidationResponse struct {
	Valid          bool            `json:"valid"`
	Code           string          `json:"code"`
	DiscountType   DiscountType    `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
}

// ErrorResponse is a standard JSON error envelope. AvailableSpots is set
// only on capacity conflicts so the client can retry with fewer seats.
type ErrorResponse struct {
	Error          string `json:"error"`
	AvailableSpots *int   `json:"availableSpots,omitempty"`
}
