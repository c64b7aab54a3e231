// Package capture provides discovery of the external screenshot capture
// daemon and its database.
package capture

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Tool describes a detected capture daemon installation.
type Tool struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"` // online, offline, unknown
	Path         string    `json:"path,omitempty"`
	DatabasePath string    `json:"database_path,omitempty"`
	Version      string    `json:"version,omitempty"`
	LastCapture  time.Time `json:"last_capture,omitempty"`
	AutoDetected bool      `json:"auto_detected"`
}

// Detector scans for installed capture tools.
type Detector struct {
	tools []Tool
}

// NewDetector creates a new capture-tool detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Scan detects installed capture tools.
func (d *Detector) Scan() []Tool {
	d.tools = []Tool{}

	if tool := d.detectMemos(); tool != nil {
		d.tools = append(d.tools, *tool)
	}
	if tool := d.detectPensieve(); tool != nil {
		d.tools = append(d.tools, *tool)
	}

	return d.tools
}

// GetTools returns the detected tools.
func (d *Detector) GetTools() []Tool {
	return d.tools
}

// DefaultDatabasePath returns the most plausible capture database path from
// the detected tools, if any.
func (d *Detector) DefaultDatabasePath() (string, bool) {
	for _, tool := range d.tools {
		if tool.DatabasePath != "" {
			return tool.DatabasePath, true
		}
	}
	return "", false
}

func (d *Detector) detectMemos() *Tool {
	home := os.Getenv("HOME")
	dbPaths := []string{
		filepath.Join(home, ".memos", "database.db"),
		filepath.Join(home, ".memos", "memos.db"),
	}

	var dbPath string
	var lastCapture time.Time
	for _, p := range dbPaths {
		if info, err := os.Stat(p); err == nil {
			dbPath = p
			lastCapture = info.ModTime()
			break
		}
	}

	path, err := exec.LookPath("memos")
	if err != nil && dbPath == "" {
		return nil
	}

	status := "unknown"
	if dbPath != "" {
		// A database touched in the last few minutes means the daemon is
		// actively capturing.
		if time.Since(lastCapture) < 5*time.Minute {
			status = "online"
		} else {
			status = "offline"
		}
	}

	return &Tool{
		ID:           "memos",
		Name:         "Memos Capture",
		Status:       status,
		Path:         path,
		DatabasePath: dbPath,
		Version:      getCommandVersion(path, "--version"),
		LastCapture:  lastCapture,
		AutoDetected: true,
	}
}

func (d *Detector) detectPensieve() *Tool {
	home := os.Getenv("HOME")
	dbPaths := []string{
		filepath.Join(home, ".pensieve", "pensieve.db"),
		filepath.Join(home, ".pensieve", "database.db"),
	}

	var dbPath string
	var lastCapture time.Time
	for _, p := range dbPaths {
		if info, err := os.Stat(p); err == nil {
			dbPath = p
			lastCapture = info.ModTime()
			break
		}
	}

	path, err := exec.LookPath("pensieve")
	if err != nil && dbPath == "" {
		return nil
	}

	status := "unknown"
	if dbPath != "" {
		if time.Since(lastCapture) < 5*time.Minute {
			status = "online"
		} else {
			status = "offline"
		}
	}

	return &Tool{
		ID:           "pensieve",
		Name:         "Pensieve",
		Status:       status,
		Path:         path,
		DatabasePath: dbPath,
		Version:      getCommandVersion(path, "--version"),
		LastCapture:  lastCapture,
		AutoDetected: true,
	}
}

func getCommandVersion(cmd string, flag string) string {
	if cmd == "" {
		return ""
	}
	out, err := exec.Command(cmd, flag).Output()
	if err != nil {
		return ""
	}
	version := strings.TrimSpace(string(out))
	// Take first line only
	if idx := strings.Index(version, "\n"); idx > 0 {
		version = version[:idx]
	}
	// Limit length
	if len(version) > 30 {
		version = version[:30]
	}
	return version
}
