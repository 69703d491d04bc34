package failure

import (
	"errors"
	"net/http"
)

// Failure is an error that knows the HTTP status it maps to. Details, when set, is sent to
// the client next to the message.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

// Unwrap exposes the error a Failure was built from, so errors.Is still sees sentinel
// errors behind a BadRequest.
func (e *Failure) Unwrap() error {
	return e.cause
}

func New(code int, message string) error {
	return &Failure{Code: code, Message: message}
}

func from(code int, err error) error {
	if err == nil {
		return nil
	}

	return &Failure{Code: code, Message: err.Error(), cause: err}
}

// BadRequest keeps err reachable through errors.Is. A nil err stays nil.
func BadRequest(err error) error {
	return from(http.StatusBadRequest, err)
}

func BadRequestFromString(msg string) error {
	return New(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) error {
	return New(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) error {
	return New(http.StatusForbidden, msg)
}

// NotFound takes the full client-facing message, e.g. "Booking not found".
func NotFound(msg string) error {
	return New(http.StatusNotFound, msg)
}

func Conflict(msg string) error {
	return New(http.StatusConflict, msg)
}

// ConflictWithDetails returns a conflict carrying a machine-readable payload, such as the
// bookings a request collided with.
func ConflictWithDetails(msg string, details any) error {
	return &Failure{Code: http.StatusConflict, Message: msg, Details: details}
}

func InternalError(err error) error {
	return from(http.StatusInternalServerError, err)
}

// GetCode returns the status of the first Failure in err's chain, 500 when there is none.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

func GetDetails(err error) any {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Details
	}

	return nil
}

// IsFailure reports whether err carries a Failure, i.e. whether its message was written
// for the client.
func IsFailure(err error) bool {
	var fail *Failure

	return errors.As(err, &fail)
}
