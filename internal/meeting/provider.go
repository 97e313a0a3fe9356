package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Details are the access credentials for a hosted meeting.
type Details struct {
	MeetingID string
	JoinURL   string
	Password  string
}

// Provider abstracts the external meeting-hosting backend.
type Provider interface {
	// CreateMeeting schedules a hosted meeting and returns its access
	// details. Implementations must honor ctx cancellation and deadlines.
	CreateMeeting(ctx context.Context, topic string, start time.Time, durationMinutes int, password string) (*Details, error)
}

// ProviderError is a failure reported by the meeting backend. Transient
// failures (timeouts, network errors, 5xx) are safe to retry; terminal ones
// (auth, bad request) are not.
type ProviderError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("meeting provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
