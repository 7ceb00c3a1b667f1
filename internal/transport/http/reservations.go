package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soltoura/booking-api/internal/app"
	"github.com/soltoura/booking-api/internal/domain"
)

// ReservationAPI is the slice of the reservation coordinator the handlers use.
type ReservationAPI interface {
	Create(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
	Cancel(ctx context.Context, reference, externalRef string) error
	Extend(ctx context.Context, reference string, minutes int) (domain.Reservation, error)
}

type bookingItemBody struct {
	Category  string `json:"category"`
	Count     int    `json:"count"`
	GroupSize int    `json:"groupSize,omitempty"`
}

type createReservationRequest struct {
	ProductID          string            `json:"productId"`
	DateTime           string            `json:"dateTime"`
	BookingItems       []bookingItemBody `json:"bookingItems"`
	ExternalBookingRef string            `json:"externalBookingRef"`
}

type reservationResponse struct {
	ReservationReference  string `json:"reservationReference"`
	ReservationExpiration string `json:"reservationExpiration"`
}

// HandleCreateReservation serves POST /reservations.
func HandleCreateReservation(svc ReservationAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createReservationRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.ProductID == "" {
			return badRequest(c, "productId is required")
		}
		if req.ExternalBookingRef == "" {
			return badRequest(c, "externalBookingRef is required")
		}
		if len(req.BookingItems) == 0 {
			return badRequest(c, "bookingItems is required")
		}
		dateTime, err := parseDateTime(req.DateTime)
		if err != nil {
			return badRequest(c, "dateTime must be an ISO-8601 timestamp")
		}

		res, err := svc.Create(c.Request().Context(), app.CreateReservationInput{
			ProductID:   req.ProductID,
			DateTime:    dateTime,
			Items:       toBookingItems(req.BookingItems),
			ExternalRef: req.ExternalBookingRef,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, dataResponse{Data: reservationResponse{
			ReservationReference:  res.Reference,
			ReservationExpiration: res.ExpiresAt.Format(time.RFC3339),
		}})
	}
}

type cancelReservationRequest struct {
	ReservationReference string `json:"reservationReference"`
	ExternalBookingRef   string `json:"externalBookingRef"`
}

// HandleCancelReservation serves POST /reservations/cancel.
func HandleCancelReservation(svc ReservationAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req cancelReservationRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.ReservationReference == "" {
			return badRequest(c, "reservationReference is required")
		}
		if req.ExternalBookingRef == "" {
			return badRequest(c, "externalBookingRef is required")
		}

		if err := svc.Cancel(c.Request().Context(), req.ReservationReference, req.ExternalBookingRef); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, dataResponse{Data: map[string]any{}})
	}
}

type extendReservationRequest struct {
	ReservationReference string `json:"reservationReference"`
	Minutes              int    `json:"minutes"`
}

// HandleExtendReservation serves POST /reservations/extend.
func HandleExtendReservation(svc ReservationAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req extendReservationRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.ReservationReference == "" {
			return badRequest(c, "reservationReference is required")
		}

		res, err := svc.Extend(c.Request().Context(), req.ReservationReference, req.Minutes)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, dataResponse{Data: reservationResponse{
			ReservationReference:  res.Reference,
			ReservationExpiration: res.ExpiresAt.Format(time.RFC3339),
		}})
	}
}

func toBookingItems(body []bookingItemBody) []domain.BookingItem {
	items := make([]domain.BookingItem, 0, len(body))
	for _, b := range body {
		items = append(items, domain.BookingItem{
			Category:  domain.PriceCategory(b.Category),
			Count:     b.Count,
			GroupSize: b.GroupSize,
		})
	}
	return items
}
