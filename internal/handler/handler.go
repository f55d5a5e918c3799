// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AmeyGaikar/book-it/internal/model"
	"github.com/AmeyGaikar/book-it/internal/repository"
	"github.com/AmeyGaikar/book-it/internal/service"
)

// Service is the business-logic contract the HTTP layer depends on.
type Service interface {
	ListExperiences(ctx context.Context, search string) ([]model.Experience, error)
	GetExperience(ctx context.Context, id int64) (*model.ExperienceDetail, error)
	ValidatePromo(ctx context.Context, code string, amount decimal.Decimal) (*model.PromoValidationResponse, error)
	CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error)
}

// Handler holds all HTTP handlers for the BookIt API.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes builds the chi router with the full /api surface.
func (h *Handler) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/experiences", func(r chi.Router) {
			r.Get("/", h.ListExperiences)
			r.Get("/{id}", h.GetExperience)
		})

		r.Post("/promo/validate", h.ValidatePromo)
		r.Post("/bookings", h.CreateBooking)
	})

	return r
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListExperiences handles GET /api/experiences
// Returns all experiences, optionally filtered by ?search= over title and
// location.
func (h *Handler) ListExperiences(w http.ResponseWriter, r *http.Request) {
	experiences, err := h.svc.ListExperiences(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("list experiences", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch experiences")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if experiences == nil {
		experiences = []model.Experience{}
	}
	writeJSON(w, http.StatusOK, experiences)
}

// GetExperience handles GET /api/experiences/{id}
// Returns one experience together with its upcoming slots.
func (h *Handler) GetExperience(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Experience not found")
		return
	}

	detail, err := h.svc.GetExperience(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrExperienceNotFound) {
			writeError(w, http.StatusNotFound, "Experience not found")
			return
		}
		h.logger.Error("get experience", zap.Error(err), zap.Int64("id", id))
		writeError(w, http.StatusInternalServerError, "Failed to fetch experience details")
		return
	}

	if detail.Slots == nil {
		detail.Slots = []model.Slot{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// invalidPromoResponse is the 404 body for the validate endpoint.
type invalidPromoResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
}

// ValidatePromo handles POST /api/promo/validate
// Previews a promo code against an amount without consuming it.
func (h *Handler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	var req model.ValidatePromoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.ValidatePromo(r.Context(), req.Code, req.Amount)
	if err != nil {
		var valErr *service.ValidationError
		switch {
		case errors.As(err, &valErr):
			writeError(w, http.StatusBadRequest, "Promo code is required")
		case errors.Is(err, repository.ErrPromoNotFound):
			writeJSON(w, http.StatusNotFound, invalidPromoResponse{
				Valid: false,
				Error: "Invalid or expired promo code",
			})
		default:
			h.logger.Error("validate promo", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to validate promo code")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CreateBooking handles POST /api/bookings
// Runs the atomic booking transaction and maps its failure taxonomy onto
// HTTP statuses.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), req)
	if err != nil {
		var valErr *service.ValidationError
		var capErr *repository.InsufficientCapacityError
		switch {
		case errors.As(err, &valErr):
			writeError(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, repository.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, "Slot not found")
		case errors.Is(err, repository.ErrExperienceNotFound):
			writeError(w, http.StatusNotFound, "Experience not found")
		case errors.As(err, &capErr):
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
				Error:          "Not enough spots available",
				AvailableSpots: &capErr.AvailableSpots,
			})
		case errors.Is(err, repository.ErrLockTimeout):
			writeError(w, http.StatusServiceUnavailable, "Slot is busy, please retry")
		default:
			h.logger.Error("create booking", zap.Error(err),
				zap.Int64("slotId", req.SlotID), zap.Int("participants", req.Participants))
			writeError(w, http.StatusInternalServerError, "Failed to create booking")
		}
		return
	}

	writeJSON(w, http.StatusCreated, model.BookingResponse{Success: true, Booking: booking})
}
