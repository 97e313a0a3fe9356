package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// MessageKind distinguishes user-authored messages from system notices.
type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

// Message is a persisted chat message. Messages are immutable once created
// and never reassigned to a different room; ordering is creation order with
// ties broken by append order (the autoincrement id).
type Message struct {
	ID        int64
	RoomID    string
	UserID    string
	UserName  string
	Kind      MessageKind
	Body      string
	CreatedAt time.Time
}

// SessionState is the lifecycle state of a lesson's live session.
type SessionState string

const (
	SessionScheduled SessionState = "scheduled"
	SessionOngoing   SessionState = "ongoing"
	SessionCompleted SessionState = "completed"
	SessionCancelled SessionState = "cancelled"
)

// LiveSession is the scheduling/lifecycle record for a lesson's hosted
// meeting. MeetingID, MeetingURL and MeetingCredential are set when the
// session becomes ongoing and retained after completion for audit.
type LiveSession struct {
	State          SessionState `json:"state"`
	ScheduledStart time.Time    `json:"scheduledStart"`
	ScheduledEnd   time.Time    `json:"scheduledEnd"`
	MeetingID      string       `json:"meetingId,omitempty"`
	MeetingURL     string       `json:"meetingUrl,omitempty"`
	// The credential is handed out via the meeting endpoints only.
	MeetingCredential string `json:"-"`
}

// Course groups lessons under one teacher.
type Course struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lesson belongs to a course. Live lessons carry a LiveSession.
type Lesson struct {
	ID              string      `json:"id"`
	CourseID        string      `json:"courseId"`
	Title           string      `json:"title"`
	DurationMinutes int         `json:"durationMinutes"`
	IsLive          bool        `json:"isLive"`
	LiveSession     LiveSession `json:"liveSession"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// MessageStore is the durable append-only chat log keyed by room.
// It is safe for concurrent writers across rooms; within one room, writes
// are already serialized by the room's hub.
type MessageStore interface {
	// AppendMessage persists a message, filling in its server-assigned ID
	// and creation time.
	AppendMessage(ctx context.Context, msg *Message) error

	// RecentMessages returns the most recent limit messages for a room,
	// ordered oldest-first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)
}

// LessonStore persists courses, lessons and their live-session state.
type LessonStore interface {
	// CreateCourse persists a new course.
	CreateCourse(ctx context.Context, course *Course) error

	// CreateLesson persists a new lesson under a course.
	CreateLesson(ctx context.Context, lesson *Lesson) error

	// GetCourse retrieves a course by ID.
	GetCourse(ctx context.Context, id string) (*Course, error)

	// GetLesson retrieves a lesson by course and lesson ID.
	GetLesson(ctx context.Context, courseID, lessonID string) (*Lesson, error)

	// GetLessonByMeetingID retrieves the lesson whose live session owns the
	// given meeting ID.
	GetLessonByMeetingID(ctx context.Context, meetingID string) (*Lesson, error)

	// UpdateLiveSession replaces a lesson's live-session record.
	UpdateLiveSession(ctx context.Context, lessonID string, session LiveSession) error

	// ListOverdueLiveLessons returns live lessons still scheduled or ongoing
	// whose scheduled end has passed.
	ListOverdueLiveLessons(ctx context.Context, now time.Time) ([]*Lesson, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore
	LessonStore

	// Close closes the underlying database connection.
	Close() error
}
