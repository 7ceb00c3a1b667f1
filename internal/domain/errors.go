package domain

import (
	"errors"
	"fmt"
)

// Code identifies one entry of the closed error vocabulary shared with the
// distribution partner. Codes are stable; messages are advisory.
type Code string

const (
	CodeValidationFailure         Code = "VALIDATION_FAILURE"
	CodeInvalidProduct            Code = "INVALID_PRODUCT"
	CodeInvalidReservation        Code = "INVALID_RESERVATION"
	CodeInvalidBooking            Code = "INVALID_BOOKING"
	CodeNoAvailability            Code = "NO_AVAILABILITY"
	CodeInvalidParticipantsConfig Code = "INVALID_PARTICIPANTS_CONFIGURATION"
	CodeInvalidAddonsConfig       Code = "INVALID_ADDONS_CONFIGURATION"
	CodeBookingInPast             Code = "BOOKING_IN_PAST"
	CodeBookingAlreadyCancelled   Code = "BOOKING_ALREADY_CANCELLED"
	CodeBookingRedeemed           Code = "BOOKING_REDEEMED"
	CodeResourceNotFound          Code = "RESOURCE_NOT_FOUND"
	CodeAuthorizationFailure      Code = "AUTHORIZATION_FAILURE"
	CodeInternalSystemFailure     Code = "INTERNAL_SYSTEM_FAILURE"
)

// ParticipantsConfiguration echoes the violated participant bounds so the
// caller can self-correct the request.
type ParticipantsConfiguration struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// GroupConfiguration echoes the violated group limits.
type GroupConfiguration struct {
	Max int `json:"max"`
}

// Error is the single error type crossing the domain boundary. Two errors
// match under errors.Is when their codes are equal, so services can return
// payload-carrying instances while callers compare against the sentinels
// below.
type Error struct {
	Code         Code
	Message      string
	Participants *ParticipantsConfiguration
	Group        *GroupConfiguration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidationFailure       = &Error{Code: CodeValidationFailure, Message: "request validation failed"}
	ErrInvalidProduct          = &Error{Code: CodeInvalidProduct, Message: "product not found"}
	ErrInvalidReservation      = &Error{Code: CodeInvalidReservation, Message: "reservation not found, expired or reference mismatch"}
	ErrInvalidBooking          = &Error{Code: CodeInvalidBooking, Message: "booking not found or reference mismatch"}
	ErrNoAvailability          = &Error{Code: CodeNoAvailability, Message: "not enough vacancies for the requested date"}
	ErrInvalidAddonsConfig     = &Error{Code: CodeInvalidAddonsConfig, Message: "addon items do not match the product addon options"}
	ErrBookingInPast           = &Error{Code: CodeBookingInPast, Message: "experience date is in the past"}
	ErrBookingAlreadyCancelled = &Error{Code: CodeBookingAlreadyCancelled, Message: "booking is already cancelled"}
	ErrBookingRedeemed         = &Error{Code: CodeBookingRedeemed, Message: "booking has redeemed tickets"}
	ErrResourceNotFound        = &Error{Code: CodeResourceNotFound, Message: "resource not found"}
	ErrAuthorizationFailure    = &Error{Code: CodeAuthorizationFailure, Message: "reference does not match"}
	ErrInternalSystemFailure   = &Error{Code: CodeInternalSystemFailure, Message: "internal system failure"}
)

// ErrTicketCodeConflict signals a generated ticket code collided with an
// existing one. It never crosses the partner boundary; callers regenerate
// and retry.
var ErrTicketCodeConflict = errors.New("ticket code already exists")

// ValidationError reports a malformed request with a field-specific message.
func ValidationError(msg string) *Error {
	return &Error{Code: CodeValidationFailure, Message: msg}
}

// ParticipantsError reports a participant-bounds violation, carrying the
// configured limits and, when a group limit was violated, the group maximum.
func ParticipantsError(msg string, min, max int, group *GroupConfiguration) *Error {
	return &Error{
		Code:         CodeInvalidParticipantsConfig,
		Message:      msg,
		Participants: &ParticipantsConfiguration{Min: min, Max: max},
		Group:        group,
	}
}
