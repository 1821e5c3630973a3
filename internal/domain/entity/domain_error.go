package entity

import "fmt"

// DomainError is an error carrying a stable machine-readable code alongside
// its message. Codes survive wrapping and are safe to match on in handlers.
type DomainError struct {
	message string
	code    string
}

// NewDomainError creates a domain error with the given message and code.
func NewDomainError(message, code string) *DomainError {
	return &DomainError{
		message: message,
		code:    code,
	}
}

func (e *DomainError) Error() string {
	return e.message
}

// Code returns the stable error code, e.g. "INVALID_STATUS_TRANSITION".
func (e *DomainError) Code() string {
	return e.code
}

// Message returns the human-readable message.
func (e *DomainError) Message() string {
	return e.message
}

// Is matches two domain errors by code, so wrapped instances compare equal
// regardless of message details.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	return ok && e.code == other.code
}

// String implements fmt.Stringer for log fields.
func (e *DomainError) String() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}
