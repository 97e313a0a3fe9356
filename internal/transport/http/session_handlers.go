package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liveclass/liveclass-server/internal/auth"
	"github.com/liveclass/liveclass-server/internal/meeting"
	"github.com/liveclass/liveclass-server/internal/session"
	"github.com/liveclass/liveclass-server/internal/store"
)

// SessionHandlers provides the HTTP session-control surface: course/lesson
// authoring plus start/end/cancel/get-meeting for live sessions.
type SessionHandlers struct {
	sessions *session.Controller
	lessons  store.LessonStore
	log      *zerolog.Logger
}

// NewSessionHandlers creates the session-control handlers.
func NewSessionHandlers(sessions *session.Controller, lessons store.LessonStore, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		sessions: sessions,
		lessons:  lessons,
		log:      logger,
	}
}

// CreateCourseRequest is the create course request body.
type CreateCourseRequest struct {
	Title string `json:"title" binding:"required,min=1,max=200"`
}

// CreateLessonRequest is the create lesson request body. Live lessons carry
// a schedule; ScheduledStart/End are RFC3339.
type CreateLessonRequest struct {
	Title           string    `json:"title" binding:"required,min=1,max=200"`
	DurationMinutes int       `json:"durationMinutes" binding:"required,min=1"`
	IsLive          bool      `json:"isLive"`
	ScheduledStart  time.Time `json:"scheduledStart"`
	ScheduledEnd    time.Time `json:"scheduledEnd"`
}

// MeetingResponse carries live meeting access details.
type MeetingResponse struct {
	MeetingURL string `json:"meetingUrl"`
	MeetingID  string `json:"meetingId"`
	Password   string `json:"password"`
}

// CreateCourse handles course creation.
// POST /api/courses
func (h *SessionHandlers) CreateCourse(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if actor.Role != auth.RoleTeacher {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only teachers can create courses"})
		return
	}

	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create course request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	course := &store.Course{
		ID:        uuid.NewString(),
		Title:     req.Title,
		TeacherID: actor.UserID,
	}
	if err := h.lessons.CreateCourse(c.Request.Context(), course); err != nil {
		h.log.Error().Err(err).Str("title", req.Title).Msg("failed to create course")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("course_id", course.ID).Str("teacher_id", actor.UserID).Msg("course created")
	c.JSON(http.StatusCreated, course)
}

// CreateLesson handles lesson creation under a course.
// POST /api/courses/:courseID/lessons
func (h *SessionHandlers) CreateLesson(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	course, err := h.lessons.GetCourse(c.Request.Context(), c.Param("courseID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if course.TeacherID != actor.UserID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not your course"})
		return
	}

	var req CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create lesson request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	lesson := &store.Lesson{
		ID:              uuid.NewString(),
		CourseID:        course.ID,
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		IsLive:          req.IsLive,
	}
	if req.IsLive {
		lesson.LiveSession = store.LiveSession{
			State:          store.SessionScheduled,
			ScheduledStart: req.ScheduledStart,
			ScheduledEnd:   req.ScheduledEnd,
		}
	}
	if err := h.lessons.CreateLesson(c.Request.Context(), lesson); err != nil {
		h.log.Error().Err(err).Str("course_id", course.ID).Msg("failed to create lesson")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("lesson_id", lesson.ID).Str("course_id", course.ID).Bool("is_live", lesson.IsLive).Msg("lesson created")
	c.JSON(http.StatusCreated, lesson)
}

// StartSession starts a live session and returns the meeting access details.
// POST /api/courses/:courseID/lessons/:lessonID/start
func (h *SessionHandlers) StartSession(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	details, err := h.sessions.Start(c.Request.Context(), actor, c.Param("courseID"), c.Param("lessonID"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MeetingResponse{
		MeetingURL: details.JoinURL,
		MeetingID:  details.MeetingID,
		Password:   details.Password,
	})
}

// EndSession ends a live session.
// POST /api/courses/:courseID/lessons/:lessonID/end
func (h *SessionHandlers) EndSession(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.sessions.End(c.Request.Context(), actor, c.Param("courseID"), c.Param("lessonID")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "live session ended successfully"})
}

// CancelSession cancels a still-scheduled live session.
// POST /api/courses/:courseID/lessons/:lessonID/cancel
func (h *SessionHandlers) CancelSession(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.sessions.Cancel(c.Request.Context(), actor, c.Param("courseID"), c.Param("lessonID")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "live session cancelled"})
}

// GetMeeting returns meeting access details for an ongoing session.
// GET /api/courses/:courseID/lessons/:lessonID/meeting
func (h *SessionHandlers) GetMeeting(c *gin.Context) {
	if _, ok := identityFromContext(c); !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	details, err := h.sessions.Meeting(c.Request.Context(), c.Param("courseID"), c.Param("lessonID"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MeetingResponse{
		MeetingURL: details.JoinURL,
		MeetingID:  details.MeetingID,
		Password:   details.Password,
	})
}

// writeError maps domain errors to HTTP responses. Clients must be able to
// tell "session not started" (conflict) apart from "provider failed, retry"
// (bad gateway with a transient flag).
func (h *SessionHandlers) writeError(c *gin.Context, err error) {
	var pe *meeting.ProviderError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: "not_found"})
	case errors.Is(err, session.ErrUnauthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not authorized", Code: "unauthorized"})
	case errors.Is(err, session.ErrNotLiveLesson):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "this is not a live lesson", Code: "not_live_lesson"})
	case errors.Is(err, session.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "live session is not active", Code: "session_not_active"})
	case errors.As(err, &pe):
		h.log.Warn().Err(err).Bool("transient", pe.Transient).Msg("meeting provider error")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:     "meeting provider error",
			Code:      "meeting_provider_error",
			Transient: pe.Transient,
		})
	default:
		h.log.Error().Err(err).Msg("session operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
