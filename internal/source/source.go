// Package source reads window-focus samples from an external capture
// daemon's SQLite database. The capture tool owns that database; Recall
// only ever opens it read-only.
package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ActiveWindowKey is the metadata key the capture daemon uses for the
// focused-window sample attached to each screenshot.
const ActiveWindowKey = "active_window"

// Event is one raw (timestamp, title) sample from the capture database.
type Event struct {
	Timestamp time.Time
	Title     string
}

// Reader provides read-only access to a capture database.
type Reader struct {
	db *sql.DB
}

// Open opens the capture database read-only.
func Open(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open capture db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Reader{db: db}, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Ping checks the capture database is reachable.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EventsSince returns active-window samples recorded strictly after the
// given time, oldest first. Malformed rows degrade to an empty title rather
// than failing the batch.
func (r *Reader) EventsSince(ctx context.Context, since time.Time, limit int) ([]Event, error) {
	query := `SELECT created_at, value FROM metadata_entries WHERE key = ? AND created_at > ? ORDER BY created_at`
	args := []interface{}{ActiveWindowKey, since.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query capture events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ts time.Time
		var raw sql.NullString
		if err := rows.Scan(&ts, &raw); err != nil {
			return nil, fmt.Errorf("scan capture event: %w", err)
		}
		events = append(events, Event{Timestamp: ts, Title: ParseTitle(raw.String)})
	}
	return events, rows.Err()
}

// ParseTitle extracts the window title from a stored value: either a JSON
// blob with a "title" field or a bare string.
func ParseTitle(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "{") {
		var blob struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal([]byte(raw), &blob); err == nil {
			return strings.TrimSpace(blob.Title)
		}
		return ""
	}
	// Some capture versions store the title as a JSON string.
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return raw
}
