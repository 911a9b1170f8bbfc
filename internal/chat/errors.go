package chat

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation   = "validation"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
)

var (
	ErrEmptyContent         = errors.New("empty content")
	ErrNotParticipant       = errors.New("not a participant")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// Error wraps a code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a domain error with the given code.
func NewError(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}
