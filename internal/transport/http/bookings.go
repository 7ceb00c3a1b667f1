package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soltoura/booking-api/internal/app"
	"github.com/soltoura/booking-api/internal/domain"
)

// BookingAPI is the slice of the booking ledger the handlers use.
type BookingAPI interface {
	Confirm(ctx context.Context, in app.ConfirmInput) (domain.Booking, error)
	Cancel(ctx context.Context, reference, externalRef, productID string) error
	RedeemTicket(ctx context.Context, code, externalRef string) error
	RedeemBooking(ctx context.Context, externalRef string) error
}

type createBookingRequest struct {
	ProductID            string            `json:"productId"`
	ReservationReference string            `json:"reservationReference"`
	ExternalBookingRef   string            `json:"externalBookingRef"`
	ExternalActivityRef  string            `json:"externalActivityRef"`
	Currency             string            `json:"currency"`
	DateTime             string            `json:"dateTime"`
	BookingItems         []bookingItemBody `json:"bookingItems"`
	AddonItems           []addonItemBody   `json:"addonItems"`
	Travelers            []travelerBody    `json:"travelers"`
	Comment              string            `json:"comment"`
}

type addonItemBody struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count,omitempty"`
}

type travelerBody struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Category  string `json:"category,omitempty"`
}

type ticketBody struct {
	Category       string `json:"category"`
	TicketCode     string `json:"ticketCode"`
	TicketCodeType string `json:"ticketCodeType"`
	GroupSize      int    `json:"groupSize,omitempty"`
}

type createBookingResponse struct {
	BookingReference string       `json:"bookingReference"`
	Tickets          []ticketBody `json:"tickets"`
}

// HandleCreateBooking serves POST /bookings: confirming a reservation into a
// booking with tickets.
func HandleCreateBooking(svc BookingAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createBookingRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.ReservationReference == "" {
			return badRequest(c, "reservationReference is required")
		}
		if req.ExternalBookingRef == "" {
			return badRequest(c, "externalBookingRef is required")
		}

		booking, err := svc.Confirm(c.Request().Context(), app.ConfirmInput{
			ReservationRef: req.ReservationReference,
			ExternalRef:    req.ExternalBookingRef,
			Addons:         toAddonItems(req.AddonItems),
			Travelers:      toTravelers(req.Travelers),
			Comment:        req.Comment,
		})
		if err != nil {
			return respondError(c, err)
		}

		tickets := make([]ticketBody, 0, len(booking.Tickets))
		for _, t := range booking.Tickets {
			tickets = append(tickets, ticketBody{
				Category:       string(t.Category),
				TicketCode:     t.Code,
				TicketCodeType: domain.TicketCodeTypeText,
				GroupSize:      t.GroupSize,
			})
		}
		return c.JSON(http.StatusOK, dataResponse{Data: createBookingResponse{
			BookingReference: booking.Reference,
			Tickets:          tickets,
		}})
	}
}

type cancelBookingRequest struct {
	BookingReference   string `json:"bookingReference"`
	ExternalBookingRef string `json:"externalBookingRef"`
	ProductID          string `json:"productId"`
}

// HandleCancelBooking serves POST /bookings/cancel.
func HandleCancelBooking(svc BookingAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req cancelBookingRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.BookingReference == "" {
			return badRequest(c, "bookingReference is required")
		}
		if req.ExternalBookingRef == "" {
			return badRequest(c, "externalBookingRef is required")
		}

		if err := svc.Cancel(c.Request().Context(), req.BookingReference, req.ExternalBookingRef, req.ProductID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, dataResponse{Data: map[string]any{}})
	}
}

type redeemTicketRequest struct {
	TicketCode         string `json:"ticketCode"`
	ExternalBookingRef string `json:"externalBookingRef"`
}

// HandleRedeemTicket serves POST /bookings/redeem-ticket.
func HandleRedeemTicket(svc BookingAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req redeemTicketRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.TicketCode == "" {
			return badRequest(c, "ticketCode is required")
		}
		if req.ExternalBookingRef == "" {
			return badRequest(c, "externalBookingRef is required")
		}

		if err := svc.RedeemTicket(c.Request().Context(), req.TicketCode, req.ExternalBookingRef); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

type redeemBookingRequest struct {
	ExternalBookingRef string `json:"externalBookingRef"`
}

// HandleRedeemBooking serves POST /bookings/redeem-booking.
func HandleRedeemBooking(svc BookingAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req redeemBookingRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.ExternalBookingRef == "" {
			return badRequest(c, "externalBookingRef is required")
		}

		if err := svc.RedeemBooking(c.Request().Context(), req.ExternalBookingRef); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func toAddonItems(body []addonItemBody) []domain.AddonItem {
	if len(body) == 0 {
		return nil
	}
	items := make([]domain.AddonItem, 0, len(body))
	for _, b := range body {
		items = append(items, domain.AddonItem{Type: b.Type, Description: b.Description, Count: b.Count})
	}
	return items
}

func toTravelers(body []travelerBody) []domain.Traveler {
	if len(body) == 0 {
		return nil
	}
	out := make([]domain.Traveler, 0, len(body))
	for _, b := range body {
		out = append(out, domain.Traveler{
			FirstName: b.FirstName,
			LastName:  b.LastName,
			Category:  domain.PriceCategory(b.Category),
		})
	}
	return out
}
