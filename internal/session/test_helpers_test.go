package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/liveclass/liveclass-server/internal/auth"
	"github.com/liveclass/liveclass-server/internal/meeting"
	"github.com/liveclass/liveclass-server/internal/store"
)

// lessonStore is an in-memory store.LessonStore for controller tests.
type lessonStore struct {
	mu      sync.Mutex
	courses map[string]*store.Course
	lessons map[string]*store.Lesson
}

func newLessonStore() *lessonStore {
	return &lessonStore{
		courses: make(map[string]*store.Course),
		lessons: make(map[string]*store.Lesson),
	}
}

func (s *lessonStore) CreateCourse(_ context.Context, course *store.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *course
	s.courses[course.ID] = &cp
	return nil
}

func (s *lessonStore) CreateLesson(_ context.Context, lesson *store.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *lesson
	s.lessons[lesson.ID] = &cp
	return nil
}

func (s *lessonStore) GetCourse(_ context.Context, id string) (*store.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *lessonStore) GetLesson(_ context.Context, courseID, lessonID string) (*store.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[lessonID]
	if !ok || l.CourseID != courseID {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *lessonStore) GetLessonByMeetingID(_ context.Context, meetingID string) (*store.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lessons {
		if l.LiveSession.MeetingID == meetingID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *lessonStore) UpdateLiveSession(_ context.Context, lessonID string, session store.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[lessonID]
	if !ok {
		return store.ErrNotFound
	}
	l.LiveSession = session
	return nil
}

func (s *lessonStore) ListOverdueLiveLessons(_ context.Context, now time.Time) ([]*store.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var overdue []*store.Lesson
	for _, l := range s.lessons {
		ls := l.LiveSession
		if !l.IsLive {
			continue
		}
		if ls.State != store.SessionScheduled && ls.State != store.SessionOngoing {
			continue
		}
		if ls.ScheduledEnd.IsZero() || !ls.ScheduledEnd.Before(now) {
			continue
		}
		cp := *l
		overdue = append(overdue, &cp)
	}
	return overdue, nil
}

var _ store.LessonStore = (*lessonStore)(nil)

// fakeProvider counts CreateMeeting calls and can fail on demand.
type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	failWith error
}

func (p *fakeProvider) CreateMeeting(_ context.Context, _ string, _ time.Time, _ int, password string) (*meeting.Details, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failWith != nil {
		err := p.failWith
		p.failWith = nil // fail once, then recover
		return nil, err
	}
	return &meeting.Details{
		MeetingID: "meeting-1",
		JoinURL:   "https://example.com/j/meeting-1",
		Password:  password,
	}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var _ meeting.Provider = (*fakeProvider)(nil)

func transientErr() error {
	return &meeting.ProviderError{Op: "create meeting", Transient: true, Err: errors.New("timeout")}
}

var (
	teacher = &auth.Identity{UserID: "t-1", DisplayName: "Ms. Gopher", Role: auth.RoleTeacher}
	rando   = &auth.Identity{UserID: "t-2", DisplayName: "Impostor", Role: auth.RoleTeacher}
)

// seed creates a course owned by teacher and one live lesson, returning ids.
func seed(s *lessonStore, end time.Time) (courseID, lessonID string) {
	ctx := context.Background()
	_ = s.CreateCourse(ctx, &store.Course{ID: "c-1", Title: "Distributed Systems", TeacherID: teacher.UserID})
	_ = s.CreateLesson(ctx, &store.Lesson{
		ID:              "l-1",
		CourseID:        "c-1",
		Title:           "Consensus",
		DurationMinutes: 90,
		IsLive:          true,
		LiveSession: store.LiveSession{
			State:          store.SessionScheduled,
			ScheduledStart: end.Add(-time.Hour),
			ScheduledEnd:   end,
		},
	})
	return "c-1", "l-1"
}
