// Package apperror is the error taxonomy shared by the engines and the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

type Kind int

const (
	KindServer Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindConflict
	KindValidation
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindUnauthorized:
		return "Unauthorized"
	case KindConflict:
		return "Conflict"
	case KindValidation:
		return "ValidationError"
	case KindInvalidState:
		return "InvalidState"
	default:
		return "ServerError"
	}
}

// Error carries a kind for status mapping, a stable machine code and a user-facing message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Status overrides the kind's default HTTP status when non-zero.
	Status int
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Is matches on Code so that wrapped copies with a different message still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus 与错误分类对应
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WithMessage returns a copy with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: what + " not found"}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message}
}

func InvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Code: "INVALID_STATE", Message: message}
}

var (
	ErrUnauthorized = New(KindUnauthorized, "UNAUTHORIZED", "unauthorized")
	ErrForbidden    = Forbidden("forbidden")
	ErrServer       = New(KindServer, "SERVER_ERROR", "internal server error")

	ErrOutOfStock        = &Error{Kind: KindConflict, Code: "OUT_OF_STOCK", Message: "out of stock", Status: http.StatusBadRequest}
	ErrAssetUnavailable  = New(KindConflict, "ASSET_UNAVAILABLE", "asset is not available for checkout")
	ErrHasActiveRequests = New(KindConflict, "HAS_ACTIVE_REQUESTS", "asset has outstanding access requests")
	ErrInvalidTransition = New(KindInvalidState, "INVALID_TRANSITION", "status transition not allowed")
	ErrInvalidStatus     = New(KindValidation, "INVALID_STATUS", "unknown status")

	ErrAllSlotsConflict       = New(KindConflict, "ALL_SLOTS_CONFLICT", "all requested slots are already booked")
	ErrSlotInUse              = New(KindConflict, "SLOT_IN_USE", "cannot remove a slot that has an active booking")
	ErrHasActiveBookings      = New(KindConflict, "HAS_ACTIVE_BOOKINGS", "date has active bookings")
	ErrSlotUnavailable        = &Error{Kind: KindConflict, Code: "SLOT_UNAVAILABLE", Message: "time slot is not available", Status: http.StatusBadRequest}
	ErrSlotAlreadyBooked      = New(KindConflict, "SLOT_ALREADY_BOOKED", "time slot is already booked")
	ErrDuplicateTenantBooking = New(KindConflict, "DUPLICATE_TENANT_BOOKING", "you already booked this time slot")

	ErrPaymentRejected = New(KindValidation, "PAYMENT_REJECTED", "payment could not be verified")
)

// From normalizes arbitrary errors (gorm, driver) into an *Error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("record")
	}
	if IsUniqueViolation(err) {
		return New(KindConflict, "CONFLICT", "resource already exists")
	}
	return ErrServer
}

// IsUniqueViolation recognizes unique-constraint failures. Sessions opened with
// TranslateError (db.Options) surface them as gorm.ErrDuplicatedKey; the text
// match covers raw driver errors from Exec paths and untranslated sessions.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
