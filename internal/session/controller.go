package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liveclass/liveclass-server/internal/auth"
	"github.com/liveclass/liveclass-server/internal/meeting"
	"github.com/liveclass/liveclass-server/internal/store"
)

// Controller runs the live-session state machine for lessons:
// scheduled -> ongoing -> completed, with cancelled reachable only from
// scheduled. Guard checks and commits are atomic per lesson, so concurrent
// teacher actions and reconciliation sweeps cannot race a lesson into an
// invalid combination. Meeting fields are retained after completion for
// audit.
type Controller struct {
	lessons         store.LessonStore
	provider        meeting.Provider
	log             *zerolog.Logger
	providerTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex // lessonID -> lock
}

// NewController creates a session controller. providerTimeout bounds every
// MeetingProvider round trip.
func NewController(lessons store.LessonStore, provider meeting.Provider, logger *zerolog.Logger, providerTimeout time.Duration) *Controller {
	return &Controller{
		lessons:         lessons,
		provider:        provider,
		log:             logger,
		providerTimeout: providerTimeout,
	}
}

// lockLesson returns the mutex serializing transitions for one lesson.
func (c *Controller) lockLesson(lessonID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks == nil {
		c.locks = make(map[string]*sync.Mutex)
	}
	l := c.locks[lessonID]
	if l == nil {
		l = &sync.Mutex{}
		c.locks[lessonID] = l
	}
	return l
}

// Start transitions a scheduled live session to ongoing: it creates the
// hosted meeting and persists the meeting details. Starting an already
// ongoing session is idempotent and returns the existing details without a
// second provider call. A provider failure leaves the lesson scheduled, so
// callers may safely retry.
func (c *Controller) Start(ctx context.Context, actor *auth.Identity, courseID, lessonID string) (*meeting.Details, error) {
	lock := c.lockLesson(lessonID)
	lock.Lock()
	defer lock.Unlock()

	course, lesson, err := c.loadOwned(ctx, actor, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	switch lesson.LiveSession.State {
	case store.SessionOngoing:
		return accessOf(lesson), nil
	case store.SessionCompleted, store.SessionCancelled:
		return nil, ErrSessionNotActive
	}

	topic := fmt.Sprintf("%s - %s", course.Title, lesson.Title)
	start := lesson.LiveSession.ScheduledStart
	if start.IsZero() {
		start = time.Now()
	}
	password := uuid.NewString()[:8]

	callCtx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()

	details, err := c.provider.CreateMeeting(callCtx, topic, start, lesson.DurationMinutes, password)
	if err != nil {
		c.log.Warn().Err(err).Str("lesson_id", lessonID).Bool("transient", meeting.IsTransient(err)).
			Msg("meeting creation failed, session stays scheduled")
		return nil, err
	}

	session := lesson.LiveSession
	session.State = store.SessionOngoing
	session.MeetingID = details.MeetingID
	session.MeetingURL = details.JoinURL
	session.MeetingCredential = details.Password
	if err := c.lessons.UpdateLiveSession(ctx, lessonID, session); err != nil {
		return nil, fmt.Errorf("persist session start: %w", err)
	}

	c.log.Info().Str("lesson_id", lessonID).Str("meeting_id", details.MeetingID).Msg("live session started")
	return details, nil
}

// End transitions an ongoing live session to completed. The meeting record
// is kept, not deleted. Ending an already completed session is a no-op.
func (c *Controller) End(ctx context.Context, actor *auth.Identity, courseID, lessonID string) error {
	lock := c.lockLesson(lessonID)
	lock.Lock()
	defer lock.Unlock()

	_, lesson, err := c.loadOwned(ctx, actor, courseID, lessonID)
	if err != nil {
		return err
	}

	switch lesson.LiveSession.State {
	case store.SessionCompleted:
		return nil
	case store.SessionOngoing:
		session := lesson.LiveSession
		session.State = store.SessionCompleted
		if err := c.lessons.UpdateLiveSession(ctx, lessonID, session); err != nil {
			return fmt.Errorf("persist session end: %w", err)
		}
		c.log.Info().Str("lesson_id", lessonID).Str("meeting_id", session.MeetingID).Msg("live session ended")
		return nil
	default:
		return ErrSessionNotActive
	}
}

// Cancel marks a still-scheduled live session as cancelled (terminal).
// Cancelling twice is a no-op.
func (c *Controller) Cancel(ctx context.Context, actor *auth.Identity, courseID, lessonID string) error {
	lock := c.lockLesson(lessonID)
	lock.Lock()
	defer lock.Unlock()

	_, lesson, err := c.loadOwned(ctx, actor, courseID, lessonID)
	if err != nil {
		return err
	}

	switch lesson.LiveSession.State {
	case store.SessionCancelled:
		return nil
	case store.SessionScheduled:
		session := lesson.LiveSession
		session.State = store.SessionCancelled
		if err := c.lessons.UpdateLiveSession(ctx, lessonID, session); err != nil {
			return fmt.Errorf("persist session cancel: %w", err)
		}
		c.log.Info().Str("lesson_id", lessonID).Msg("live session cancelled")
		return nil
	default:
		return ErrSessionNotActive
	}
}

// Meeting is the student-facing read: it returns the meeting access details
// of an ongoing session and fails with ErrSessionNotActive otherwise. It is
// not a state transition.
func (c *Controller) Meeting(ctx context.Context, courseID, lessonID string) (*meeting.Details, error) {
	lesson, err := c.lessons.GetLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.IsLive {
		return nil, ErrNotLiveLesson
	}
	if lesson.LiveSession.State != store.SessionOngoing {
		return nil, ErrSessionNotActive
	}
	return accessOf(lesson), nil
}

// ResolveOngoing admits realtime connections: it finds the lesson owning a
// meeting ID and requires its session to be ongoing. Unknown meeting IDs
// are reported as ErrSessionNotActive, indistinguishable from an ended one.
func (c *Controller) ResolveOngoing(ctx context.Context, meetingID string) (*store.Lesson, error) {
	lesson, err := c.lessons.GetLessonByMeetingID(ctx, meetingID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrSessionNotActive
		}
		return nil, err
	}
	if lesson.LiveSession.State != store.SessionOngoing {
		return nil, ErrSessionNotActive
	}
	return lesson, nil
}

// ExpireOverdue completes live sessions whose scheduled end has passed
// without an explicit end request. Each lesson is re-checked under its own
// lock, so the sweep is idempotent and safe against concurrent teacher
// actions. Returns how many sessions were expired.
func (c *Controller) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := c.lessons.ListOverdueLiveLessons(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue lessons: %w", err)
	}

	expired := 0
	for _, stale := range overdue {
		if err := c.expireLesson(ctx, stale.ID, stale.CourseID, now); err != nil {
			c.log.Warn().Err(err).Str("lesson_id", stale.ID).Msg("failed to expire live session")
			continue
		}
		expired++
	}
	return expired, nil
}

func (c *Controller) expireLesson(ctx context.Context, lessonID, courseID string, now time.Time) error {
	lock := c.lockLesson(lessonID)
	lock.Lock()
	defer lock.Unlock()

	lesson, err := c.lessons.GetLesson(ctx, courseID, lessonID)
	if err != nil {
		return err
	}

	session := lesson.LiveSession
	stillStale := (session.State == store.SessionScheduled || session.State == store.SessionOngoing) &&
		!session.ScheduledEnd.IsZero() && session.ScheduledEnd.Before(now)
	if !stillStale {
		return nil
	}

	session.State = store.SessionCompleted
	if err := c.lessons.UpdateLiveSession(ctx, lessonID, session); err != nil {
		return fmt.Errorf("persist session expiry: %w", err)
	}
	c.log.Info().Str("lesson_id", lessonID).Time("scheduled_end", session.ScheduledEnd).Msg("live session auto-expired")
	return nil
}

// loadOwned loads a course and lesson and verifies the actor owns the
// course and that the lesson is live.
func (c *Controller) loadOwned(ctx context.Context, actor *auth.Identity, courseID, lessonID string) (*store.Course, *store.Lesson, error) {
	course, err := c.lessons.GetCourse(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	lesson, err := c.lessons.GetLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, nil, err
	}
	if course.TeacherID != actor.UserID {
		return nil, nil, ErrUnauthorized
	}
	if !lesson.IsLive {
		return nil, nil, ErrNotLiveLesson
	}
	return course, lesson, nil
}

func accessOf(lesson *store.Lesson) *meeting.Details {
	return &meeting.Details{
		MeetingID: lesson.LiveSession.MeetingID,
		JoinURL:   lesson.LiveSession.MeetingURL,
		Password:  lesson.LiveSession.MeetingCredential,
	}
}
