package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AmeyGaikar/book-it/internal/model"
	"github.com/AmeyGaikar/book-it/internal/repository"
	"github.com/AmeyGaikar/book-it/internal/service"
)

type stubService struct {
	experiences    []model.Experience
	experiencesErr error

	detail    *model.ExperienceDetail
	detailErr error

	promoResp *model.PromoValidationResponse
	promoErr  error

	booking    *model.Booking
	bookingErr error
}

func (s *stubService) ListExperiences(ctx context.Context, search string) ([]model.Experience, error) {
	return s.experiences, s.experiencesErr
}

func (s *stubService) GetExperience(ctx context.Context, id int64) (*model.ExperienceDetail, error) {
	return s.detail, s.detailErr
}

func (s *stubService) ValidatePromo(ctx context.Context, code string, amount decimal.Decimal) (*model.PromoValidationResponse, error) {
	return s.promoResp, s.promoErr
}

func (s *stubService) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	return s.booking, s.bookingErr
}

func newTestRouter(t *testing.T, svc Service) http.Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger).Routes()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func validBookingBody() model.CreateBookingRequest {
	return model.CreateBookingRequest{
		ExperienceID: 1,
		SlotID:       2,
		Name:         "Jamie Rivera",
		Email:        "jamie@example.com",
		Phone:        "+1-555-0100",
		Participants: 2,
		PromoCode:    "SAVE10",
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestCreateBookingCreated(t *testing.T) {
	code := "SAVE10"
	svc := &stubService{booking: &model.Booking{
		ID:             11,
		ExperienceID:   1,
		SlotID:         2,
		Name:           "Jamie Rivera",
		Email:          "jamie@example.com",
		Phone:          "+1-555-0100",
		Participants:   2,
		PromoCode:      &code,
		DiscountAmount: decimal.RequireFromString("18.00"),
		TotalPrice:     decimal.RequireFromString("161.98"),
		BookingStatus:  model.BookingStatusConfirmed,
		CreatedAt:      time.Now().UTC(),
	}}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", validBookingBody())

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	booking, ok := body["booking"].(map[string]any)
	require.True(t, ok, "booking object missing: %s", rec.Body.String())
	assert.Equal(t, float64(11), booking["id"])
	assert.Equal(t, "SAVE10", booking["promo_code"])
	assert.Equal(t, 18.00, booking["discount_amount"])
	assert.Equal(t, 161.98, booking["total_price"])
	assert.Equal(t, "confirmed", booking["booking_status"])
}

func TestCreateBookingMissingFields(t *testing.T) {
	svc := &stubService{bookingErr: &service.ValidationError{Fields: []string{"phone"}}}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", validBookingBody())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decodeBody(t, rec)["error"])
}

func TestCreateBookingSlotNotFound(t *testing.T) {
	svc := &stubService{bookingErr: repository.ErrSlotNotFound}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", validBookingBody())

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Slot not found", decodeBody(t, rec)["error"])
}

func TestCreateBookingInsufficientCapacity(t *testing.T) {
	svc := &stubService{bookingErr: &repository.InsufficientCapacityError{AvailableSpots: 1}}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", validBookingBody())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Not enough spots available", body["error"])
	assert.Equal(t, float64(1), body["availableSpots"])
}

func TestCreateBookingLockTimeout(t *testing.T) {
	svc := &stubService{bookingErr: repository.ErrLockTimeout}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", validBookingBody())

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateBookingInternalError(t *testing.T) {
	svc := &stubService{bookingErr: errors.New("db unavailable")}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/bookings", validBookingBody())

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to create booking", decodeBody(t, rec)["error"])
}

func TestCreateBookingMalformedJSON(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidatePromoOK(t *testing.T) {
	svc := &stubService{promoResp: &model.PromoValidationResponse{
		Valid:          true,
		Code:           "SAVE10",
		DiscountType:   model.DiscountPercentage,
		DiscountValue:  decimal.RequireFromString("10"),
		DiscountAmount: decimal.RequireFromString("18.00"),
		FinalAmount:    decimal.RequireFromString("161.98"),
	}}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/promo/validate",
		map[string]any{"code": "SAVE10", "amount": 179.98})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "SAVE10", body["code"])
	assert.Equal(t, "percentage", body["discountType"])
	assert.Equal(t, 18.00, body["discountAmount"])
	assert.Equal(t, 161.98, body["finalAmount"])
}

func TestValidatePromoNotFound(t *testing.T) {
	svc := &stubService{promoErr: repository.ErrPromoNotFound}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/promo/validate",
		map[string]any{"code": "NOPE", "amount": 100})

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Invalid or expired promo code", body["error"])
}

func TestValidatePromoMissingCode(t *testing.T) {
	svc := &stubService{promoErr: &service.ValidationError{Fields: []string{"code"}}}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/promo/validate",
		map[string]any{"code": "", "amount": 100})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Promo code is required", decodeBody(t, rec)["error"])
}

func TestListExperiencesEmptyArray(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	rec := doJSON(t, router, http.MethodGet, "/api/experiences", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetExperienceNotFound(t *testing.T) {
	svc := &stubService{detailErr: repository.ErrExperienceNotFound}
	router := newTestRouter(t, svc)

	rec := doJSON(t, router, http.MethodGet, "/api/experiences/99", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Experience not found", decodeBody(t, rec)["error"])
}

func TestGetExperienceNonNumericID(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	rec := doJSON(t, router, http.MethodGet, "/api/experiences/abc", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeaderSet(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
