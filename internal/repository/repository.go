// Package repository implements all database queries for the booking
// platform. It uses pgx directly (no ORM) for transparency and performance.
//
// All shared mutable state (slot capacity, promo usage) lives in PostgreSQL
// and is protected there: concurrent bookings for the same slot serialise on
// a SELECT ... FOR UPDATE row lock held for the duration of the booking
// transaction. Without the lock, two requests can both read available_spots,
// both pass the capacity check, and both decrement — overselling the slot.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/AmeyGaikar/book-it/internal/model"
	"github.com/AmeyGaikar/book-it/internal/pricing"
	"github.com/AmeyGaikar/book-it/internal/promo"
)

// ErrSlotNotFound is returned when the requested slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrExperienceNotFound is returned when the requested experience does not exist.
var ErrExperienceNotFound = errors.New("experience not found")

// ErrPromoNotFound is returned when a promo code is absent or inactive.
var ErrPromoNotFound = errors.New("invalid or expired promo code")

// ErrLockTimeout is returned when the slot row lock could not be acquired
// within the configured bound. Safe to retry with backoff.
var ErrLockTimeout = errors.New("timed out waiting for slot lock")

// InsufficientCapacityError is returned when a slot cannot seat the
// requested number of participants. It carries the current availability so
// the client can offer a reduced quantity without a second round trip.
type InsufficientCapacityError struct {
	AvailableSpots int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("not enough spots available (%d left)", e.AvailableSpots)
}

const experienceColumns = `id, title, description, location, price, duration,
	category, image_url, rating, max_participants, created_at`

// ExperienceRepository handles reads of the experience catalog.
type ExperienceRepository struct {
	db *pgxpool.Pool
}

// NewExperienceRepository constructs an ExperienceRepository.
func NewExperienceRepository(db *pgxpool.Pool) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

// List returns all experiences, newest first. A non-empty search term
// filters by title or location, case-insensitively.
func (r *ExperienceRepository) List(ctx context.Context, search string) ([]model.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences`
	args := []any{}
	if search != "" {
		query += ` WHERE LOWER(title) LIKE $1 OR LOWER(location) LIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer rows.Close()

	var experiences []model.Experience
	for rows.Next() {
		var e model.Experience
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.Price,
			&e.Duration, &e.Category, &e.ImageURL, &e.Rating, &e.MaxParticipants, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		experiences = append(experiences, e)
	}
	return experiences, rows.Err()
}

// GetByID returns a single experience or ErrExperienceNotFound.
func (r *ExperienceRepository) GetByID(ctx context.Context, id int64) (*model.Experience, error) {
	var e model.Experience
	err := r.db.QueryRow(ctx,
		`SELECT `+experienceColumns+` FROM experiences WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.Price,
		&e.Duration, &e.Category, &e.ImageURL, &e.Rating, &e.MaxParticipants, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExperienceNotFound
		}
		return nil, fmt.Errorf("get experience: %w", err)
	}
	return &e, nil
}

// SlotRepository handles reads of slot inventory. Capacity mutation is the
// booking transaction's exclusive job; nothing here writes.
type SlotRepository struct {
	db *pgxpool.Pool
}

// NewSlotRepository constructs a SlotRepository.
func NewSlotRepository(db *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{db: db}
}

// ListUpcomingByExperience returns today's and future slots for an
// experience, ordered by date and time.
func (r *SlotRepository) ListUpcomingByExperience(ctx context.Context, experienceID int64) ([]model.Slot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, experience_id, date, time, available_spots, total_spots, is_sold_out, created_at
		 FROM slots
		 WHERE experience_id = $1 AND date >= CURRENT_DATE
		 ORDER BY date, time`,
		experienceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.ExperienceID, &s.Date, &s.Time,
			&s.AvailableSpots, &s.TotalSpots, &s.IsSoldOut, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// PromoRepository handles reads of promo codes for the standalone validate
// endpoint. The booking transaction does its own locked lookup.
type PromoRepository struct {
	db *pgxpool.Pool
}

// NewPromoRepository constructs a PromoRepository.
func NewPromoRepository(db *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{db: db}
}

// GetByCode returns the promo code row or ErrPromoNotFound.
func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	var p model.PromoCode
	err := r.db.QueryRow(ctx,
		`SELECT id, code, discount_type, discount_value, is_active,
		        valid_from, valid_until, usage_limit, usage_count, created_at
		 FROM promo_codes WHERE code = $1`,
		code,
	).Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.IsActive,
		&p.ValidFrom, &p.ValidUntil, &p.UsageLimit, &p.UsageCount, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("get promo code: %w", err)
	}
	return &p, nil
}

// BookingRepository owns the booking transaction: reserving slot capacity,
// pricing, promo consumption, and the booking insert are one atomic unit.
type BookingRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewBookingRepository constructs a BookingRepository. lockTimeout bounds
// how long a booking waits for a contended slot lock before failing with
// ErrLockTimeout.
func NewBookingRepository(db *pgxpool.Pool, lockTimeout time.Duration) *BookingRepository {
	return &BookingRepository{db: db, lockTimeout: lockTimeout}
}

// CreateBookingParams carries the validated input for one booking attempt.
type CreateBookingParams struct {
	ExperienceID int64
	SlotID       int64
	Name         string
	Email        string
	Phone        string
	Participants int
	PromoCode    string
}

// Create performs the booking transaction.
//
// Inside a single transaction it: locks the slot row and reserves capacity,
// fetches the experience's unit price, evaluates and consumes the promo code
// (soft-fail: an unusable code yields zero discount rather than aborting),
// computes the final price, and inserts the booking. Any failure rolls the
// whole transaction back, so a failed attempt never leaves a decremented
// slot without a booking row or vice versa.
func (r *BookingRepository) Create(ctx context.Context, p CreateBookingParams) (*model.Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved, releasing the slot lock on
	// every exit path.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Bound the wait for a contended slot lock so requests do not queue
	// indefinitely behind a slow holder.
	if r.lockTimeout > 0 {
		_, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds()))
		if err != nil {
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	// Lock, check, and decrement in one serialised step.
	if err = r.reserveSlot(ctx, tx, p.SlotID, p.Participants); err != nil {
		return nil, err
	}

	var unitPrice decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT price FROM experiences WHERE id = $1`,
		p.ExperienceID,
	).Scan(&unitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrExperienceNotFound
			return nil, err
		}
		return nil, fmt.Errorf("get experience price: %w", err)
	}

	baseAmount := pricing.Base(unitPrice, p.Participants)

	discount := decimal.Zero
	var appliedCode *string
	if p.PromoCode != "" {
		appliedCode, discount, err = r.applyPromo(ctx, tx, p.PromoCode, baseAmount)
		if err != nil {
			return nil, err
		}
	}

	booking := &model.Booking{
		ExperienceID:   p.ExperienceID,
		SlotID:         p.SlotID,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Participants:   p.Participants,
		PromoCode:      appliedCode,
		DiscountAmount: discount,
		TotalPrice:     pricing.Total(unitPrice, p.Participants, discount),
		BookingStatus:  model.BookingStatusConfirmed,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO bookings (experience_id, slot_id, name, email, phone, participants,
		                       promo_code, discount_amount, total_price, booking_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		booking.ExperienceID, booking.SlotID, booking.Name, booking.Email, booking.Phone,
		booking.Participants, booking.PromoCode, booking.DiscountAmount, booking.TotalPrice,
		booking.BookingStatus,
	).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return booking, nil
}

// reserveSlot is the sole code path that changes slot capacity. It acquires
// an exclusive row lock on the slot, verifies the requested seats fit, then
// decrements available_spots and recomputes is_sold_out under that same
// lock. Concurrent attempts on the same slot block here until the holder
// commits or rolls back; attempts on different slots run in parallel.
func (r *BookingRepository) reserveSlot(ctx context.Context, tx pgx.Tx, slotID int64, participants int) error {
	var available int
	err := tx.QueryRow(ctx,
		`SELECT available_spots FROM slots WHERE id = $1 FOR UPDATE`,
		slotID,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSlotNotFound
		}
		if isLockTimeout(err) {
			return ErrLockTimeout
		}
		return fmt.Errorf("lock slot row: %w", err)
	}

	if available < participants {
		return &InsufficientCapacityError{AvailableSpots: available}
	}

	// available_spots on the right-hand side is the pre-update value, so the
	// sold-out flag is derived from the post-decrement count.
	_, err = tx.Exec(ctx,
		`UPDATE slots
		 SET available_spots = available_spots - $1,
		     is_sold_out = (available_spots - $1 = 0)
		 WHERE id = $2`,
		participants, slotID,
	)
	if err != nil {
		return fmt.Errorf("decrement available spots: %w", err)
	}
	return nil
}

// applyPromo looks up the promo code inside the booking transaction,
// locking its row so the usage limit holds under concurrent bookings.
//
// An unknown, inactive, expired, or exhausted code is deliberately not an
// error here: the booking proceeds at full price with zero discount. The
// standalone validate endpoint is the place that hard-fails bad codes.
func (r *BookingRepository) applyPromo(ctx context.Context, tx pgx.Tx, code string, amount decimal.Decimal) (*string, decimal.Decimal, error) {
	var p model.PromoCode
	err := tx.QueryRow(ctx,
		`SELECT id, code, discount_type, discount_value, is_active,
		        valid_from, valid_until, usage_limit, usage_count
		 FROM promo_codes WHERE code = $1 FOR UPDATE`,
		code,
	).Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.IsActive,
		&p.ValidFrom, &p.ValidUntil, &p.UsageLimit, &p.UsageCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, decimal.Zero, nil
		}
		if isLockTimeout(err) {
			return nil, decimal.Zero, ErrLockTimeout
		}
		return nil, decimal.Zero, fmt.Errorf("lock promo row: %w", err)
	}

	if !promo.Usable(&p, time.Now()) {
		return nil, decimal.Zero, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE promo_codes SET usage_count = usage_count + 1 WHERE id = $1`,
		p.ID,
	)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("increment promo usage: %w", err)
	}

	return &p.Code, promo.Discount(&p, amount), nil
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.LockNotAvailable
}
