// Package database implements the SessionStore/TranslationStore/
// ClassroomCodeStore trio (C3, C9 persistence target) on SQLite.
// Grounded on the teacher's internal/database/manager.go single-writer
// goroutine pattern: all mutating statements are funneled through one
// goroutine that owns the *sql.DB write handle, since SQLite allows
// only one writer at a time even under WAL mode.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/classbridge/broker/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// writeRequest is a unit of work submitted to the single writer
// goroutine; result is delivered back on done.
type writeRequest struct {
	fn   func(*sql.DB) error
	done chan error
}

// Manager is a SQLite-backed store implementing
// pkg/interfaces.SessionStore, TranslationStore, and
// ClassroomCodeStore.
type Manager struct {
	db      *sql.DB
	writes  chan writeRequest
	closing chan struct{}
}

// Open connects to the SQLite file at path, enables WAL mode, runs
// migrations, and starts the write-serialization goroutine.
func Open(ctx context.Context, path string) (*Manager, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	m := &Manager{
		db:      db,
		writes:  make(chan writeRequest),
		closing: make(chan struct{}),
	}

	if err := m.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	go m.writeLoop()
	return m, nil
}

func (m *Manager) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := m.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (m *Manager) writeLoop() {
	for {
		select {
		case req := <-m.writes:
			req.done <- req.fn(m.db)
		case <-m.closing:
			return
		}
	}
}

// withWrite serializes a mutating operation through the single writer
// goroutine.
func (m *Manager) withWrite(fn func(*sql.DB) error) error {
	req := writeRequest{fn: fn, done: make(chan error, 1)}
	select {
	case m.writes <- req:
		return <-req.done
	case <-m.closing:
		return fmt.Errorf("database closed")
	}
}

// Close stops the write goroutine and closes the underlying handle.
func (m *Manager) Close() error {
	close(m.closing)
	return m.db.Close()
}

// HealthCheck verifies the database is reachable.
func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// --- SessionStore ---

func (m *Manager) CreateSession(ctx context.Context, s *types.Session) error {
	return m.withWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO sessions (id, class_code, teacher_id, teacher_language, student_language,
				students_count, total_translations, transcript_count, start_time, end_time,
				last_activity_at, is_active, quality, quality_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.ClassCode, s.TeacherID, s.TeacherLanguage, s.StudentLanguage,
			s.StudentsCount, s.TotalTranslations, s.TranscriptCount, s.StartTime, s.EndTime,
			s.LastActivityAt, s.IsActive, string(s.Quality), s.QualityReason)
		return err
	})
}

func scanSession(row interface{ Scan(...any) error }) (*types.Session, error) {
	var s types.Session
	var quality string
	if err := row.Scan(&s.ID, &s.ClassCode, &s.TeacherID, &s.TeacherLanguage, &s.StudentLanguage,
		&s.StudentsCount, &s.TotalTranslations, &s.TranscriptCount, &s.StartTime, &s.EndTime,
		&s.LastActivityAt, &s.IsActive, &quality, &s.QualityReason); err != nil {
		return nil, err
	}
	s.Quality = types.SessionQuality(quality)
	return &s, nil
}

const sessionColumns = `id, class_code, teacher_id, teacher_language, student_language,
	students_count, total_translations, transcript_count, start_time, end_time,
	last_activity_at, is_active, quality, quality_reason`

func (m *Manager) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (m *Manager) GetSessionByTeacherID(ctx context.Context, teacherID string) (*types.Session, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE teacher_id = ? ORDER BY start_time DESC LIMIT 1`, teacherID)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (m *Manager) UpdateSession(ctx context.Context, s *types.Session) error {
	return m.withWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			UPDATE sessions SET class_code=?, teacher_language=?, student_language=?,
				students_count=?, total_translations=?, transcript_count=?, end_time=?,
				last_activity_at=?, is_active=?, quality=?, quality_reason=?
			WHERE id=?`,
			s.ClassCode, s.TeacherLanguage, s.StudentLanguage,
			s.StudentsCount, s.TotalTranslations, s.TranscriptCount, s.EndTime,
			s.LastActivityAt, s.IsActive, string(s.Quality), s.QualityReason, s.ID)
		return err
	})
}

func (m *Manager) ListActiveSessions(ctx context.Context) ([]*types.Session, error) {
	return m.queryCandidates(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE is_active = 1`)
}

func (m *Manager) queryCandidates(ctx context.Context, query string, args ...any) ([]*types.Session, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*types.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (m *Manager) SelectEmptyTeacherCandidates(ctx context.Context, olderThanSeconds int64) ([]*types.Session, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	return m.queryCandidates(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE is_active = 1 AND students_count = 0 AND quality_reason IS NULL AND start_time < ?`, cutoff)
}

func (m *Manager) SelectAbandonedCandidates(ctx context.Context, inactiveForSeconds int64) ([]*types.Session, error) {
	cutoff := time.Now().Add(-time.Duration(inactiveForSeconds) * time.Second)
	return m.queryCandidates(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE is_active = 1 AND students_count = 0 AND quality_reason IS NOT NULL AND last_activity_at < ?`, cutoff)
}

func (m *Manager) SelectInactiveCandidates(ctx context.Context, inactiveForSeconds int64) ([]*types.Session, error) {
	cutoff := time.Now().Add(-time.Duration(inactiveForSeconds) * time.Second)
	return m.queryCandidates(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE is_active = 1 AND ((last_activity_at < ?) OR (last_activity_at IS NULL AND start_time < ?))`, cutoff, cutoff)
}

// --- TranslationStore ---

func (m *Manager) StoreTranslation(ctx context.Context, t *types.Translation) error {
	return m.withWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO translations (id, session_id, original_text, translated_text,
				source_language, target_language, student_conn_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.SessionID, t.OriginalText, t.TranslatedText,
			t.SourceLanguage, t.TargetLanguage, t.StudentConnID, t.CreatedAt)
		return err
	})
}

func (m *Manager) GetSessionTranslations(ctx context.Context, sessionID string) ([]*types.Translation, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, session_id, original_text, translated_text, source_language, target_language, student_conn_id, created_at
		FROM translations WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*types.Translation
	for rows.Next() {
		var t types.Translation
		if err := rows.Scan(&t.ID, &t.SessionID, &t.OriginalText, &t.TranslatedText,
			&t.SourceLanguage, &t.TargetLanguage, &t.StudentConnID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// --- ClassroomCodeStore ---

func (m *Manager) SaveClassroomCode(ctx context.Context, c *types.ClassroomCode) error {
	return m.withWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO classroom_codes (code, session_id, created_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(code) DO UPDATE SET session_id=excluded.session_id, expires_at=excluded.expires_at`,
			c.Code, c.SessionID, c.CreatedAt, c.ExpiresAt)
		return err
	})
}

func (m *Manager) GetClassroomCodeForSession(ctx context.Context, sessionID string) (*types.ClassroomCode, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT code, session_id, created_at, expires_at FROM classroom_codes WHERE session_id = ?`, sessionID)
	var c types.ClassroomCode
	if err := row.Scan(&c.Code, &c.SessionID, &c.CreatedAt, &c.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (m *Manager) DeleteClassroomCode(ctx context.Context, sessionID string) error {
	return m.withWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `DELETE FROM classroom_codes WHERE session_id = ?`, sessionID)
		return err
	})
}
