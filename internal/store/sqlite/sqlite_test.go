package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/liveclass/liveclass-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecentMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		msg := &store.Message{
			RoomID:   "room-1",
			UserID:   "u-1",
			UserName: "alice",
			Kind:     store.MessageKindUser,
			Body:     fmt.Sprintf("msg-%d", i),
		}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if msg.ID == 0 {
			t.Fatal("append must assign an id")
		}
		if msg.CreatedAt.IsZero() {
			t.Fatal("append must assign a timestamp")
		}
	}

	// Another room's traffic must not leak in.
	other := &store.Message{RoomID: "room-2", UserID: "u-2", UserName: "bob", Body: "elsewhere"}
	if err := s.AppendMessage(ctx, other); err != nil {
		t.Fatalf("append other room: %v", err)
	}

	got, err := s.RecentMessages(ctx, "room-1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	// Most recent 3, returned oldest-first.
	for i, want := range []string{"msg-3", "msg-4", "msg-5"} {
		if got[i].Body != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].Body)
		}
	}
}

func TestRecentMessagesSkipsSystemNotices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	notice := &store.Message{RoomID: "room-1", UserID: "u-1", UserName: "alice", Kind: store.MessageKindSystem, Body: "alice joined"}
	if err := s.AppendMessage(ctx, notice); err != nil {
		t.Fatalf("append notice: %v", err)
	}
	chat := &store.Message{RoomID: "room-1", UserID: "u-1", UserName: "alice", Body: "hello"}
	if err := s.AppendMessage(ctx, chat); err != nil {
		t.Fatalf("append chat: %v", err)
	}

	got, err := s.RecentMessages(ctx, "room-1", 50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Body != "hello" {
		t.Fatalf("expected only the chat message, got %+v", got)
	}
}

func TestCourseAndLessonRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	course := &store.Course{ID: "c-1", Title: "Go Basics", TeacherID: "t-1"}
	if err := s.CreateCourse(ctx, course); err != nil {
		t.Fatalf("create course: %v", err)
	}

	start := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	lesson := &store.Lesson{
		ID:              "l-1",
		CourseID:        "c-1",
		Title:           "Channels",
		DurationMinutes: 60,
		IsLive:          true,
		LiveSession: store.LiveSession{
			State:          store.SessionScheduled,
			ScheduledStart: start,
			ScheduledEnd:   start.Add(time.Hour),
		},
	}
	if err := s.CreateLesson(ctx, lesson); err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	gotCourse, err := s.GetCourse(ctx, "c-1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if gotCourse.TeacherID != "t-1" {
		t.Fatalf("unexpected course: %+v", gotCourse)
	}

	gotLesson, err := s.GetLesson(ctx, "c-1", "l-1")
	if err != nil {
		t.Fatalf("get lesson: %v", err)
	}
	if gotLesson.LiveSession.State != store.SessionScheduled {
		t.Fatalf("unexpected session state: %s", gotLesson.LiveSession.State)
	}
	if !gotLesson.LiveSession.ScheduledStart.Equal(start) {
		t.Fatalf("scheduled start mismatch: want %v got %v", start, gotLesson.LiveSession.ScheduledStart)
	}

	if _, err := s.GetCourse(ctx, "nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetLesson(ctx, "c-1", "nope"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateLiveSessionAndLookupByMeeting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedLiveLesson(t, s, "c-1", "l-1", time.Now().Add(time.Hour))

	session := store.LiveSession{
		State:             store.SessionOngoing,
		ScheduledStart:    time.Now().UTC(),
		ScheduledEnd:      time.Now().Add(time.Hour).UTC(),
		MeetingID:         "m-42",
		MeetingURL:        "https://example.com/j/42",
		MeetingCredential: "secret",
	}
	if err := s.UpdateLiveSession(ctx, "l-1", session); err != nil {
		t.Fatalf("update session: %v", err)
	}

	got, err := s.GetLessonByMeetingID(ctx, "m-42")
	if err != nil {
		t.Fatalf("get by meeting: %v", err)
	}
	if got.ID != "l-1" || got.LiveSession.State != store.SessionOngoing {
		t.Fatalf("unexpected lesson: %+v", got)
	}
	if got.LiveSession.MeetingCredential != "secret" {
		t.Fatalf("credential not persisted: %+v", got.LiveSession)
	}

	if _, err := s.GetLessonByMeetingID(ctx, "m-unknown"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateLiveSession(ctx, "l-unknown", session); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOverdueLiveLessons(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedLiveLesson(t, s, "c-1", "l-overdue", now.Add(-time.Hour))
	seedLiveLesson(t, s, "c-1", "l-future", now.Add(time.Hour))

	// Completed lessons never show up, however old.
	seedLiveLesson(t, s, "c-1", "l-done", now.Add(-2*time.Hour))
	if err := s.UpdateLiveSession(ctx, "l-done", store.LiveSession{
		State:        store.SessionCompleted,
		ScheduledEnd: now.Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("complete lesson: %v", err)
	}

	overdue, err := s.ListOverdueLiveLessons(ctx, now)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != "l-overdue" {
		t.Fatalf("expected only l-overdue, got %+v", overdue)
	}
}

func seedLiveLesson(t *testing.T, s *SQLiteStore, courseID, lessonID string, end time.Time) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.GetCourse(ctx, courseID); err == store.ErrNotFound {
		if err := s.CreateCourse(ctx, &store.Course{ID: courseID, Title: "Course", TeacherID: "t-1"}); err != nil {
			t.Fatalf("create course: %v", err)
		}
	}
	lesson := &store.Lesson{
		ID:              lessonID,
		CourseID:        courseID,
		Title:           "Lesson",
		DurationMinutes: 60,
		IsLive:          true,
		LiveSession: store.LiveSession{
			State:          store.SessionScheduled,
			ScheduledStart: end.Add(-time.Hour),
			ScheduledEnd:   end,
		},
	}
	if err := s.CreateLesson(ctx, lesson); err != nil {
		t.Fatalf("create lesson: %v", err)
	}
}
