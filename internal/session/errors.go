package session

import "errors"

var (
	// ErrSessionNotActive is returned when an operation requires an ongoing
	// live session and the lesson is scheduled, completed or cancelled.
	ErrSessionNotActive = errors.New("live session is not active")
	// ErrUnauthorized is returned when the caller does not own the course.
	ErrUnauthorized = errors.New("caller does not own this course")
	// ErrNotLiveLesson is returned for lessons without a live session.
	ErrNotLiveLesson = errors.New("lesson is not a live lesson")
)
