// Package store provides SQLite-backed persistence for Recall.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/recall/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound indicates the requested session does not exist.
var ErrSessionNotFound = fmt.Errorf("session not found")

// Store provides access to the Recall SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS task_sessions (
		id TEXT PRIMARY KEY,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		primary_window TEXT NOT NULL,
		total_duration REAL NOT NULL,
		confidence REAL NOT NULL,
		task_signature TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		window_title TEXT NOT NULL,
		app_name TEXT NOT NULL,
		duration_to_next REAL NOT NULL,
		FOREIGN KEY (session_id) REFERENCES task_sessions(id)
	);

	CREATE TABLE IF NOT EXISTS ingest_state (
		stream TEXT PRIMARY KEY,
		watermark DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_sessions_start ON task_sessions(start_time);
	CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Session Operations ---

// SaveSession persists a finalized session and its events in one
// transaction. Saving the same session id again replaces it.
func (s *Store) SaveSession(sess *models.TaskSession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO task_sessions (id, start_time, end_time, primary_window, total_duration, confidence, task_signature, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.StartTime.UTC(), sess.EndTime.UTC(), sess.PrimaryWindow,
		sess.TotalDuration, sess.Confidence, sess.TaskSignature, now,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM session_events WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear session events: %w", err)
	}

	for i, ev := range sess.Events {
		_, err = tx.Exec(
			`INSERT INTO session_events (id, session_id, seq, timestamp, window_title, app_name, duration_to_next)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), sess.ID, i, ev.Timestamp.UTC(), ev.WindowTitle, ev.AppName, ev.DurationToNext,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, including its events.
func (s *Store) GetSession(id string) (*models.TaskSession, error) {
	sess := &models.TaskSession{}
	var signature sql.NullString

	err := s.db.QueryRow(
		`SELECT id, start_time, end_time, primary_window, total_duration, confidence, task_signature
		 FROM task_sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.StartTime, &sess.EndTime, &sess.PrimaryWindow,
		&sess.TotalDuration, &sess.Confidence, &signature)

	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if signature.Valid {
		sess.TaskSignature = signature.String
	}

	events, err := s.SessionEvents(id)
	if err != nil {
		return nil, err
	}
	sess.Events = events
	return sess, nil
}

// SessionEvents returns the ordered events of a session.
func (s *Store) SessionEvents(sessionID string) ([]models.WindowEvent, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, window_title, app_name, duration_to_next
		 FROM session_events WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.WindowEvent
	for rows.Next() {
		var ev models.WindowEvent
		if err := rows.Scan(&ev.Timestamp, &ev.WindowTitle, &ev.AppName, &ev.DurationToNext); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListSessions returns sessions ordered newest first, optionally restricted
// to a start-time range. Events are not loaded; use GetSession for those.
func (s *Store) ListSessions(since, until time.Time, limit int) ([]models.TaskSession, error) {
	query := `SELECT id, start_time, end_time, primary_window, total_duration, confidence, task_signature FROM task_sessions`
	var conds []string
	var args []interface{}

	if !since.IsZero() {
		conds = append(conds, `start_time >= ?`)
		args = append(args, since.UTC())
	}
	if !until.IsZero() {
		conds = append(conds, `start_time <= ?`)
		args = append(args, until.UTC())
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY start_time DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.TaskSession
	for rows.Next() {
		var sess models.TaskSession
		var signature sql.NullString
		if err := rows.Scan(&sess.ID, &sess.StartTime, &sess.EndTime, &sess.PrimaryWindow,
			&sess.TotalDuration, &sess.Confidence, &signature); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if signature.Valid {
			sess.TaskSignature = signature.String
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionStats aggregates stored sessions starting at or after since. A zero
// since covers everything.
func (s *Store) SessionStats(since time.Time) (models.SessionStats, error) {
	var stats models.SessionStats

	query := `SELECT COUNT(*), COALESCE(SUM(total_duration), 0),
	                 COALESCE(AVG(total_duration), 0),
	                 COALESCE(AVG((SELECT COUNT(*) FROM session_events e WHERE e.session_id = task_sessions.id)), 0)
	          FROM task_sessions`
	args := []interface{}{}
	if !since.IsZero() {
		query += ` WHERE start_time >= ?`
		args = append(args, since.UTC())
	}

	var avgDurSec float64
	err := s.db.QueryRow(query, args...).Scan(&stats.SessionCount, &stats.TotalDurationSec, &avgDurSec, &stats.AvgEventsPerTask)
	if err != nil {
		return stats, fmt.Errorf("query stats: %w", err)
	}
	stats.AvgDurationMin = avgDurSec / 60

	topQuery := `SELECT primary_window FROM task_sessions`
	topArgs := []interface{}{}
	if !since.IsZero() {
		topQuery += ` WHERE start_time >= ?`
		topArgs = append(topArgs, since.UTC())
	}
	topQuery += ` GROUP BY primary_window ORDER BY COUNT(*) DESC, MIN(start_time) LIMIT 5`

	rows, err := s.db.Query(topQuery, topArgs...)
	if err != nil {
		return stats, fmt.Errorf("query top windows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return stats, fmt.Errorf("scan top window: %w", err)
		}
		stats.TopPrimaryWindows = append(stats.TopPrimaryWindows, w)
	}
	return stats, rows.Err()
}

// --- Ingest Watermark ---

// Watermark returns the last processed capture timestamp for a stream. The
// second return is false when the stream has no watermark yet.
func (s *Store) Watermark(stream string) (time.Time, bool, error) {
	var t time.Time
	err := s.db.QueryRow(`SELECT watermark FROM ingest_state WHERE stream = ?`, stream).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query watermark: %w", err)
	}
	return t, true, nil
}

// SetWatermark records the last processed capture timestamp for a stream.
func (s *Store) SetWatermark(stream string, t time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO ingest_state (stream, watermark, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(stream) DO UPDATE SET watermark = excluded.watermark, updated_at = excluded.updated_at`,
		stream, t.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}
