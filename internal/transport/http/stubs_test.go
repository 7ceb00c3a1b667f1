package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soltoura/booking-api/internal/app"
	"github.com/soltoura/booking-api/internal/domain"
)

type stubAvailability struct {
	getFn  func(ctx context.Context, productID string, from, to time.Time) ([]domain.AvailabilitySnapshot, error)
	pushFn func(ctx context.Context, productID, date string, vacancies int) error
}

func (s *stubAvailability) GetAvailabilities(ctx context.Context, productID string, from, to time.Time) ([]domain.AvailabilitySnapshot, error) {
	return s.getFn(ctx, productID, from, to)
}

func (s *stubAvailability) PushAvailability(ctx context.Context, productID, date string, vacancies int) error {
	return s.pushFn(ctx, productID, date, vacancies)
}

type stubReservations struct {
	createFn func(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
	cancelFn func(ctx context.Context, reference, externalRef string) error
	extendFn func(ctx context.Context, reference string, minutes int) (domain.Reservation, error)
}

func (s *stubReservations) Create(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error) {
	return s.createFn(ctx, in)
}

func (s *stubReservations) Cancel(ctx context.Context, reference, externalRef string) error {
	return s.cancelFn(ctx, reference, externalRef)
}

func (s *stubReservations) Extend(ctx context.Context, reference string, minutes int) (domain.Reservation, error) {
	return s.extendFn(ctx, reference, minutes)
}

type stubBookings struct {
	confirmFn       func(ctx context.Context, in app.ConfirmInput) (domain.Booking, error)
	cancelFn        func(ctx context.Context, reference, externalRef, productID string) error
	redeemTicketFn  func(ctx context.Context, code, externalRef string) error
	redeemBookingFn func(ctx context.Context, externalRef string) error
}

func (s *stubBookings) Confirm(ctx context.Context, in app.ConfirmInput) (domain.Booking, error) {
	return s.confirmFn(ctx, in)
}

func (s *stubBookings) Cancel(ctx context.Context, reference, externalRef, productID string) error {
	return s.cancelFn(ctx, reference, externalRef, productID)
}

func (s *stubBookings) RedeemTicket(ctx context.Context, code, externalRef string) error {
	return s.redeemTicketFn(ctx, code, externalRef)
}

func (s *stubBookings) RedeemBooking(ctx context.Context, externalRef string) error {
	return s.redeemBookingFn(ctx, externalRef)
}

func doRequest(t *testing.T, handler echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code domain.Code) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if got := body["errorCode"]; got != string(code) {
		t.Fatalf("expected errorCode %s, got %v", code, got)
	}
	if msg, ok := body["errorMessage"].(string); !ok || msg == "" {
		t.Fatalf("expected a non-empty errorMessage, got %v", body["errorMessage"])
	}
}
