package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// NewRouter wires the partner-facing routes onto an echo instance.
func NewRouter(
	availability AvailabilityAPI,
	reservations ReservationAPI,
	bookings BookingAPI,
	logger *zap.Logger,
	corsOrigins []string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())
	if len(corsOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}))
	}

	e.GET("/health", HandleHealth)

	e.GET("/availability", HandleGetAvailability(availability))
	e.POST("/availability/notify", HandleAvailabilityNotify(availability))

	e.POST("/reservations", HandleCreateReservation(reservations))
	e.POST("/reservations/cancel", HandleCancelReservation(reservations))
	e.POST("/reservations/extend", HandleExtendReservation(reservations))

	e.POST("/bookings", HandleCreateBooking(bookings))
	e.POST("/bookings/cancel", HandleCancelBooking(bookings))
	e.POST("/bookings/redeem-ticket", HandleRedeemTicket(bookings))
	e.POST("/bookings/redeem-booking", HandleRedeemBooking(bookings))

	return e
}
