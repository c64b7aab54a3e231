package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newCaptureDB(t *testing.T) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open capture db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		value TEXT,
		created_at DATETIME NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return path, db
}

func insertSample(t *testing.T, db *sql.DB, key, value string, ts time.Time) {
	t.Helper()
	if _, err := db.Exec(
		`INSERT INTO metadata_entries (key, value, created_at) VALUES (?, ?, ?)`,
		key, value, ts.UTC(),
	); err != nil {
		t.Fatalf("insert sample: %v", err)
	}
}

func TestEventsSince(t *testing.T) {
	path, db := newCaptureDB(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	insertSample(t, db, ActiveWindowKey, `{"title": "main.go - Editor"}`, base)
	insertSample(t, db, ActiveWindowKey, `Inbox - Mail`, base.Add(time.Minute))
	insertSample(t, db, "ocr_result", `ignored`, base.Add(2*time.Minute))
	insertSample(t, db, ActiveWindowKey, `{broken json`, base.Add(3*time.Minute))

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	events, err := r.EventsSince(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatalf("EventsSince failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 active-window events, got %d", len(events))
	}
	if events[0].Title != "main.go - Editor" {
		t.Errorf("first title = %q", events[0].Title)
	}
	if events[1].Title != "Inbox - Mail" {
		t.Errorf("second title = %q", events[1].Title)
	}
	// Malformed JSON degrades to empty title, not an error.
	if events[2].Title != "" {
		t.Errorf("malformed row title = %q, want empty", events[2].Title)
	}
	if !events[0].Timestamp.Equal(base) {
		t.Errorf("first timestamp = %v, want %v", events[0].Timestamp, base)
	}

	// The since filter is strict.
	later, err := r.EventsSince(context.Background(), base, 0)
	if err != nil {
		t.Fatalf("EventsSince failed: %v", err)
	}
	if len(later) != 2 {
		t.Errorf("expected 2 events after base, got %d", len(later))
	}

	limited, err := r.EventsSince(context.Background(), time.Time{}, 1)
	if err != nil {
		t.Fatalf("EventsSince failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 event with limit, got %d", len(limited))
	}
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"title": "Notes - App"}`, "Notes - App"},
		{`{"title": ""}`, ""},
		{`"Quoted Title"`, "Quoted Title"},
		{`Bare Title`, "Bare Title"},
		{`{oops`, ""},
		{``, ""},
		{`   `, ""},
	}

	for _, tt := range tests {
		if got := ParseTitle(tt.raw); got != tt.want {
			t.Errorf("ParseTitle(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
