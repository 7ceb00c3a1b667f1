package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/soltoura/booking-api/internal/app"
	"github.com/soltoura/booking-api/internal/domain"
)

func TestHandleCreateBooking(t *testing.T) {
	t.Parallel()

	t.Run("returns the booking reference and tickets", func(t *testing.T) {
		svc := &stubBookings{
			confirmFn: func(_ context.Context, in app.ConfirmInput) (domain.Booking, error) {
				if in.ReservationRef != "res-123" || in.ExternalRef != "partner-1" {
					t.Fatalf("unexpected input %+v", in)
				}
				return domain.Booking{
					Reference: "bkg-456",
					Tickets: []domain.Ticket{
						{Code: "A2B3-C4D5-E6F7", Category: domain.CategoryAdult, Status: domain.TicketStatusActive},
						{Code: "G8H9-J2K3-M4N5", Category: domain.CategoryGroup, GroupSize: 6, Status: domain.TicketStatusActive},
					},
				}, nil
			},
		}
		rec := doRequest(t, HandleCreateBooking(svc), http.MethodPost, "/bookings",
			`{"reservationReference":"res-123","externalBookingRef":"partner-1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}

		data := decodeBody(t, rec)["data"].(map[string]any)
		if data["bookingReference"] != "bkg-456" {
			t.Fatalf("unexpected reference %v", data["bookingReference"])
		}
		tickets := data["tickets"].([]any)
		if len(tickets) != 2 {
			t.Fatalf("expected 2 tickets, got %d", len(tickets))
		}
		first := tickets[0].(map[string]any)
		if first["ticketCode"] != "A2B3-C4D5-E6F7" || first["ticketCodeType"] != "TEXT" {
			t.Fatalf("unexpected ticket body %v", first)
		}
		group := tickets[1].(map[string]any)
		if group["category"] != "GROUP" || group["groupSize"] != float64(6) {
			t.Fatalf("unexpected group ticket %v", group)
		}
	})

	t.Run("forwards addons and travelers", func(t *testing.T) {
		svc := &stubBookings{
			confirmFn: func(_ context.Context, in app.ConfirmInput) (domain.Booking, error) {
				if len(in.Addons) != 1 || in.Addons[0].Type != "MEAL" || in.Addons[0].Count != 2 {
					t.Fatalf("unexpected addons %+v", in.Addons)
				}
				if len(in.Travelers) != 1 || in.Travelers[0].LastName != "Riera" {
					t.Fatalf("unexpected travelers %+v", in.Travelers)
				}
				return domain.Booking{Reference: "bkg-456"}, nil
			},
		}
		rec := doRequest(t, HandleCreateBooking(svc), http.MethodPost, "/bookings",
			`{
				"reservationReference": "res-123",
				"externalBookingRef": "partner-1",
				"addonItems": [{"type": "MEAL", "description": "Three course dinner", "count": 2}],
				"travelers": [{"firstName": "Marta", "lastName": "Riera", "category": "ADULT"}]
			}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
	})

	t.Run("maps a lapsed reservation to 404", func(t *testing.T) {
		svc := &stubBookings{
			confirmFn: func(context.Context, app.ConfirmInput) (domain.Booking, error) {
				return domain.Booking{}, domain.ErrInvalidReservation
			},
		}
		rec := doRequest(t, HandleCreateBooking(svc), http.MethodPost, "/bookings",
			`{"reservationReference":"res-123","externalBookingRef":"partner-1"}`)
		assertErrorCode(t, rec, http.StatusNotFound, domain.CodeInvalidReservation)
	})

	t.Run("maps bad addons to 400", func(t *testing.T) {
		svc := &stubBookings{
			confirmFn: func(context.Context, app.ConfirmInput) (domain.Booking, error) {
				return domain.Booking{}, domain.ErrInvalidAddonsConfig
			},
		}
		rec := doRequest(t, HandleCreateBooking(svc), http.MethodPost, "/bookings",
			`{"reservationReference":"res-123","externalBookingRef":"partner-1","addonItems":[{"type":"SPA"}]}`)
		assertErrorCode(t, rec, http.StatusBadRequest, domain.CodeInvalidAddonsConfig)
	})

	t.Run("rejects a missing reservation reference", func(t *testing.T) {
		svc := &stubBookings{}
		rec := doRequest(t, HandleCreateBooking(svc), http.MethodPost, "/bookings",
			`{"externalBookingRef":"partner-1"}`)
		assertErrorCode(t, rec, http.StatusBadRequest, domain.CodeValidationFailure)
	})
}

func TestHandleCancelBooking(t *testing.T) {
	t.Parallel()

	t.Run("cancels and returns an empty data object", func(t *testing.T) {
		svc := &stubBookings{
			cancelFn: func(_ context.Context, reference, externalRef, productID string) error {
				if reference != "bkg-456" || externalRef != "partner-1" || productID != "marina-sunset-cruise" {
					t.Fatalf("unexpected args %s %s %s", reference, externalRef, productID)
				}
				return nil
			},
		}
		rec := doRequest(t, HandleCancelBooking(svc), http.MethodPost, "/bookings/cancel",
			`{"bookingReference":"bkg-456","externalBookingRef":"partner-1","productId":"marina-sunset-cruise"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
	})

	t.Run("maps repeat cancellation to 409", func(t *testing.T) {
		svc := &stubBookings{
			cancelFn: func(context.Context, string, string, string) error {
				return domain.ErrBookingAlreadyCancelled
			},
		}
		rec := doRequest(t, HandleCancelBooking(svc), http.MethodPost, "/bookings/cancel",
			`{"bookingReference":"bkg-456","externalBookingRef":"partner-1"}`)
		assertErrorCode(t, rec, http.StatusConflict, domain.CodeBookingAlreadyCancelled)
	})

	t.Run("maps a past experience to 409", func(t *testing.T) {
		svc := &stubBookings{
			cancelFn: func(context.Context, string, string, string) error {
				return domain.ErrBookingInPast
			},
		}
		rec := doRequest(t, HandleCancelBooking(svc), http.MethodPost, "/bookings/cancel",
			`{"bookingReference":"bkg-456","externalBookingRef":"partner-1"}`)
		assertErrorCode(t, rec, http.StatusConflict, domain.CodeBookingInPast)
	})
}

func TestHandleRedeemTicket(t *testing.T) {
	t.Parallel()

	t.Run("reports success", func(t *testing.T) {
		svc := &stubBookings{
			redeemTicketFn: func(_ context.Context, code, externalRef string) error {
				if code != "A2B3-C4D5-E6F7" || externalRef != "partner-1" {
					t.Fatalf("unexpected args %s %s", code, externalRef)
				}
				return nil
			},
		}
		rec := doRequest(t, HandleRedeemTicket(svc), http.MethodPost, "/bookings/redeem-ticket",
			`{"ticketCode":"A2B3-C4D5-E6F7","externalBookingRef":"partner-1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if body := decodeBody(t, rec); body["success"] != true {
			t.Fatalf("expected success true, got %v", body)
		}
	})

	t.Run("maps a foreign reference to 403", func(t *testing.T) {
		svc := &stubBookings{
			redeemTicketFn: func(context.Context, string, string) error {
				return domain.ErrAuthorizationFailure
			},
		}
		rec := doRequest(t, HandleRedeemTicket(svc), http.MethodPost, "/bookings/redeem-ticket",
			`{"ticketCode":"A2B3-C4D5-E6F7","externalBookingRef":"someone-else"}`)
		assertErrorCode(t, rec, http.StatusForbidden, domain.CodeAuthorizationFailure)
	})

	t.Run("maps an unknown code to 404", func(t *testing.T) {
		svc := &stubBookings{
			redeemTicketFn: func(context.Context, string, string) error {
				return domain.ErrResourceNotFound
			},
		}
		rec := doRequest(t, HandleRedeemTicket(svc), http.MethodPost, "/bookings/redeem-ticket",
			`{"ticketCode":"ZZZZ-ZZZZ-ZZZZ","externalBookingRef":"partner-1"}`)
		assertErrorCode(t, rec, http.StatusNotFound, domain.CodeResourceNotFound)
	})
}

func TestHandleRedeemBooking(t *testing.T) {
	t.Parallel()

	t.Run("reports success", func(t *testing.T) {
		svc := &stubBookings{
			redeemBookingFn: func(_ context.Context, externalRef string) error {
				if externalRef != "partner-1" {
					t.Fatalf("unexpected ref %s", externalRef)
				}
				return nil
			},
		}
		rec := doRequest(t, HandleRedeemBooking(svc), http.MethodPost, "/bookings/redeem-booking",
			`{"externalBookingRef":"partner-1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if body := decodeBody(t, rec); body["success"] != true {
			t.Fatalf("expected success true, got %v", body)
		}
	})

	t.Run("maps fully redeemed to 400", func(t *testing.T) {
		svc := &stubBookings{
			redeemBookingFn: func(context.Context, string) error {
				return domain.ValidationError("all tickets are already redeemed")
			},
		}
		rec := doRequest(t, HandleRedeemBooking(svc), http.MethodPost, "/bookings/redeem-booking",
			`{"externalBookingRef":"partner-1"}`)
		assertErrorCode(t, rec, http.StatusBadRequest, domain.CodeValidationFailure)
	})
}
