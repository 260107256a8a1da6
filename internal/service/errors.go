package service

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind машинно-читаемый тип ошибки
type ErrorKind string

const (
	KindValidation               ErrorKind = "VALIDATION"
	KindInvalidTimeRange         ErrorKind = "INVALID_TIME_RANGE"
	KindPastStartTime            ErrorKind = "PAST_START_TIME"
	KindExternalAccountNotLinked ErrorKind = "EXTERNAL_ACCOUNT_NOT_LINKED"
	KindSlotConflict             ErrorKind = "SLOT_CONFLICT"
	KindNotAvailable             ErrorKind = "NOT_AVAILABLE"
	KindNotFound                 ErrorKind = "NOT_FOUND"
	KindForbidden                ErrorKind = "FORBIDDEN"
	KindAlreadyCompleted         ErrorKind = "ALREADY_COMPLETED"
	KindExternalServiceFailure   ErrorKind = "EXTERNAL_SERVICE_FAILURE"
	KindDeliveryFailure          ErrorKind = "DELIVERY_FAILURE"
)

// Error ошибка движка уроков с типом и сообщением для пользователя
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает только Kind, чтобы работал errors.Is(err, ErrNotFound)
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// StatusCode HTTP-эквивалент ошибки.
// Сбои внешнего календаря отдаются как 400: аккаунт календаря в зоне ответственности пользователя.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindSlotConflict, KindNotAvailable, KindAlreadyCompleted:
		return http.StatusConflict
	case KindDeliveryFailure:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// Эталонные ошибки для errors.Is
var (
	ErrValidation               = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrInvalidTimeRange         = &Error{Kind: KindInvalidTimeRange, Message: "end time must be after start time"}
	ErrPastStartTime            = &Error{Kind: KindPastStartTime, Message: "lesson cannot start in the past"}
	ErrExternalAccountNotLinked = &Error{Kind: KindExternalAccountNotLinked, Message: "calendar account is not linked"}
	ErrSlotConflict             = &Error{Kind: KindSlotConflict, Message: "another lesson already takes this time"}
	ErrNotAvailable             = &Error{Kind: KindNotAvailable, Message: "lesson is not available for booking"}
	ErrNotFound                 = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden                = &Error{Kind: KindForbidden, Message: "you can only manage your own lessons"}
	ErrAlreadyCompleted         = &Error{Kind: KindAlreadyCompleted, Message: "lesson is already completed"}
	ErrExternalServiceFailure   = &Error{Kind: KindExternalServiceFailure, Message: "calendar request failed"}
	ErrDeliveryFailure          = &Error{Kind: KindDeliveryFailure, Message: "reminder delivery failed"}
)

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает тип ошибки движка или пустую строку
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
