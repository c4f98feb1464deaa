package common

import (
	"errors"
	"net/http"
)

// APIError is a caller-visible failure with a machine-readable code. The
// webhook processor and the JSON handlers translate these to HTTP statuses;
// anything that is not an APIError is an infrastructure failure.
type APIError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

var (
	ErrReservationNotFound = &APIError{Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "reservation not found"}
	ErrForbidden           = &APIError{Code: "FORBIDDEN", Status: http.StatusForbidden, Message: "reservation belongs to another user"}
	ErrInvalidStatus       = &APIError{Code: "INVALID_STATUS", Status: http.StatusBadRequest, Message: "reservation is not in a confirmable status"}
	ErrReservationExpired  = &APIError{Code: "EXPIRED", Status: http.StatusGone, Message: "reservation hold has expired"}
	ErrSlotConflict        = &APIError{Code: "CONFLICT", Status: http.StatusConflict, Message: "the requested slot is no longer available"}
	ErrRefundWindowPassed  = &APIError{Code: "REFUND_WINDOW_PASSED", Status: http.StatusBadRequest, Message: "cancellation window has passed"}
	ErrInvalidIntentToken  = &APIError{Code: "INVALID_TOKEN", Status: http.StatusBadRequest, Message: "intent token is invalid"}
	ErrInvalidTransition   = &APIError{Code: "INVALID_STATUS", Status: http.StatusBadRequest, Message: "status transition is not allowed"}
)

// AsAPIError unwraps err into an APIError when it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
