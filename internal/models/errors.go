package models

import "errors"

var (
	ErrNotFound           = errors.New("resource not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrUnauthenticated    = errors.New("authentication credentials were not provided")
	ErrInvalidCredentials = errors.New("invalid authentication credentials")
	ErrPermissionDenied   = errors.New("you do not have permission to perform this action")
	ErrShiftAlreadyTaken  = errors.New("shift already has a nurse assigned")
	ErrAlreadyCheckedIn   = errors.New("shift already checked in")
	ErrAlreadyCheckedOut  = errors.New("shift already checked out")
	ErrShiftNotCheckedIn  = errors.New("shift has no checkin yet")
)

// APIError is the uniform error envelope returned by every endpoint.
// MessageClient is the localized, user-facing variant; Type is a stable
// machine-readable code clients branch on.
type APIError struct {
	Status        int    `json:"-"`
	Message       string `json:"message"`
	MessageClient string `json:"message_client"`
	Extra         any    `json:"extra"`
	Type          string `json:"type"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewValidationError(message, messageClient, errType string) *APIError {
	return &APIError{Status: 400, Message: message, MessageClient: messageClient, Type: errType}
}

func NewPermissionDenied(message, messageClient, errType string) *APIError {
	return &APIError{Status: 403, Message: message, MessageClient: messageClient, Type: errType}
}

func NewNotFound(message, messageClient string) *APIError {
	return &APIError{Status: 404, Message: message, MessageClient: messageClient, Type: "not_found"}
}

// NewIntegrityError is deliberately vague so schema details never leak to
// clients, at the cost of UX precision.
func NewIntegrityError() *APIError {
	return &APIError{
		Status:        400,
		Message:       "integrity error on write",
		MessageClient: "Algo salió mal, es posible que ya exista un registro con este valor.",
		Type:          "integrity_error",
	}
}
