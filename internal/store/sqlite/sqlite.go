package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/liveclass/liveclass-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT 'user',
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);

CREATE TABLE IF NOT EXISTS courses (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	teacher_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lessons (
	id                 TEXT PRIMARY KEY,
	course_id          TEXT NOT NULL REFERENCES courses(id),
	title              TEXT NOT NULL,
	duration_minutes   INTEGER NOT NULL DEFAULT 0,
	is_live            BOOLEAN NOT NULL DEFAULT 0,
	session_state      TEXT NOT NULL DEFAULT 'scheduled',
	scheduled_start    DATETIME,
	scheduled_end      DATETIME,
	meeting_id         TEXT,
	meeting_url        TEXT,
	meeting_credential TEXT,
	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_lessons_meeting ON lessons(meeting_id);
CREATE INDEX IF NOT EXISTS idx_lessons_state ON lessons(session_state, scheduled_end);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and ensures the schema exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply an alternate schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== MessageStore implementation ====

// AppendMessage persists a message and fills in its ID and creation time.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Kind == "" {
		msg.Kind = store.MessageKindUser
	}

	query := `
		INSERT INTO messages (room_id, user_id, user_name, kind, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.RoomID, msg.UserID, msg.UserName, string(msg.Kind), msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// RecentMessages returns the latest limit user-authored messages for a
// room, oldest-first. System notices are kept in the log for audit but are
// not replayed to joiners.
func (s *SQLiteStore) RecentMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, user_id, user_name, kind, body, created_at
		FROM messages
		WHERE room_id = ? AND kind = 'user'
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var m store.Message
		var kind string
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.UserName, &kind, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Kind = store.MessageKind(kind)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Query is newest-first for the LIMIT; callers want oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ==== LessonStore implementation ====

// CreateCourse persists a new course.
func (s *SQLiteStore) CreateCourse(ctx context.Context, course *store.Course) error {
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO courses (id, title, teacher_id, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, course.ID, course.Title, course.TeacherID, course.CreatedAt); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// CreateLesson persists a new lesson under a course.
func (s *SQLiteStore) CreateLesson(ctx context.Context, lesson *store.Lesson) error {
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}
	if lesson.LiveSession.State == "" {
		lesson.LiveSession.State = store.SessionScheduled
	}
	query := `
		INSERT INTO lessons (
			id, course_id, title, duration_minutes, is_live,
			session_state, scheduled_start, scheduled_end,
			meeting_id, meeting_url, meeting_credential, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	ls := lesson.LiveSession
	_, err := s.db.ExecContext(ctx, query,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.DurationMinutes, lesson.IsLive,
		string(ls.State), nullTime(ls.ScheduledStart), nullTime(ls.ScheduledEnd),
		nullString(ls.MeetingID), nullString(ls.MeetingURL), nullString(ls.MeetingCredential),
		lesson.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

// GetCourse retrieves a course by ID.
func (s *SQLiteStore) GetCourse(ctx context.Context, id string) (*store.Course, error) {
	query := `
		SELECT id, title, teacher_id, created_at
		FROM courses
		WHERE id = ?
	`
	var c store.Course
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Title, &c.TeacherID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select course: %w", err)
	}
	return &c, nil
}

// GetLesson retrieves a lesson by course and lesson ID.
func (s *SQLiteStore) GetLesson(ctx context.Context, courseID, lessonID string) (*store.Lesson, error) {
	return s.getLesson(ctx, `course_id = ? AND id = ?`, courseID, lessonID)
}

// GetLessonByMeetingID retrieves the lesson owning the given meeting ID.
func (s *SQLiteStore) GetLessonByMeetingID(ctx context.Context, meetingID string) (*store.Lesson, error) {
	return s.getLesson(ctx, `meeting_id = ?`, meetingID)
}

func (s *SQLiteStore) getLesson(ctx context.Context, where string, args ...any) (*store.Lesson, error) {
	query := `
		SELECT id, course_id, title, duration_minutes, is_live,
			session_state, scheduled_start, scheduled_end,
			meeting_id, meeting_url, meeting_credential, created_at
		FROM lessons
		WHERE ` + where
	row := s.db.QueryRowContext(ctx, query, args...)

	lesson, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select lesson: %w", err)
	}
	return lesson, nil
}

// UpdateLiveSession replaces a lesson's live-session record.
func (s *SQLiteStore) UpdateLiveSession(ctx context.Context, lessonID string, session store.LiveSession) error {
	query := `
		UPDATE lessons
		SET session_state = ?, scheduled_start = ?, scheduled_end = ?,
			meeting_id = ?, meeting_url = ?, meeting_credential = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		string(session.State), nullTime(session.ScheduledStart), nullTime(session.ScheduledEnd),
		nullString(session.MeetingID), nullString(session.MeetingURL), nullString(session.MeetingCredential),
		lessonID)
	if err != nil {
		return fmt.Errorf("update live session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListOverdueLiveLessons returns live lessons still scheduled or ongoing
// whose scheduled end has passed.
func (s *SQLiteStore) ListOverdueLiveLessons(ctx context.Context, now time.Time) ([]*store.Lesson, error) {
	query := `
		SELECT id, course_id, title, duration_minutes, is_live,
			session_state, scheduled_start, scheduled_end,
			meeting_id, meeting_url, meeting_credential, created_at
		FROM lessons
		WHERE is_live = 1
			AND session_state IN ('scheduled', 'ongoing')
			AND scheduled_end IS NOT NULL
			AND scheduled_end < ?
	`
	rows, err := s.db.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query overdue lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*store.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return lessons, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*store.Lesson, error) {
	var l store.Lesson
	var state string
	var start, end sql.NullTime
	var meetingID, meetingURL, meetingCredential sql.NullString

	err := row.Scan(&l.ID, &l.CourseID, &l.Title, &l.DurationMinutes, &l.IsLive,
		&state, &start, &end, &meetingID, &meetingURL, &meetingCredential, &l.CreatedAt)
	if err != nil {
		return nil, err
	}

	l.LiveSession = store.LiveSession{
		State:             store.SessionState(state),
		ScheduledStart:    start.Time,
		ScheduledEnd:      end.Time,
		MeetingID:         meetingID.String,
		MeetingURL:        meetingURL.String,
		MeetingCredential: meetingCredential.String,
	}
	return &l, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
