package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soltoura/booking-api/internal/domain"
)

// dataResponse wraps every successful payload per the partner contract.
type dataResponse struct {
	Data any `json:"data"`
}

// successResponse is the body of the redeem endpoints.
type successResponse struct {
	Success bool `json:"success"`
}

// errorResponse is the partner-facing failure body. Participants and Group
// are only present on INVALID_PARTICIPANTS_CONFIGURATION.
type errorResponse struct {
	ErrorCode    domain.Code                       `json:"errorCode"`
	ErrorMessage string                            `json:"errorMessage"`
	Participants *domain.ParticipantsConfiguration `json:"participantsConfiguration,omitempty"`
	Group        *domain.GroupConfiguration        `json:"groupConfiguration,omitempty"`
}

var statusByCode = map[domain.Code]int{
	domain.CodeValidationFailure:         http.StatusBadRequest,
	domain.CodeInvalidParticipantsConfig: http.StatusBadRequest,
	domain.CodeInvalidAddonsConfig:       http.StatusBadRequest,
	domain.CodeNoAvailability:            http.StatusConflict,
	domain.CodeBookingInPast:             http.StatusConflict,
	domain.CodeBookingAlreadyCancelled:   http.StatusConflict,
	domain.CodeBookingRedeemed:           http.StatusConflict,
	domain.CodeInvalidProduct:            http.StatusNotFound,
	domain.CodeInvalidReservation:        http.StatusNotFound,
	domain.CodeInvalidBooking:            http.StatusNotFound,
	domain.CodeResourceNotFound:          http.StatusNotFound,
	domain.CodeAuthorizationFailure:      http.StatusForbidden,
	domain.CodeInternalSystemFailure:     http.StatusInternalServerError,
}

// respondError maps a domain error to its stable code and status. Anything
// outside the closed vocabulary is reported as an internal failure without
// leaking detail.
func respondError(c echo.Context, err error) error {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.ErrInternalSystemFailure
	}

	status, ok := statusByCode[derr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, errorResponse{
		ErrorCode:    derr.Code,
		ErrorMessage: derr.Message,
		Participants: derr.Participants,
		Group:        derr.Group,
	})
}

func badRequest(c echo.Context, msg string) error {
	return respondError(c, domain.ValidationError(msg))
}
