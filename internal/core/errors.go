package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotAParticipant   = "not_a_participant"
	ErrCodeInvalidMessage    = "invalid_message"
	ErrCodePersistenceFailed = "persistence_failed"
	ErrCodeSessionNotActive  = "session_not_active"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnauthorized      = "unauthorized"
)

var (
	ErrNotAParticipant   = errors.New("not a participant")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrPersistenceFailed = errors.New("persistence failed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
