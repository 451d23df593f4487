// pkg/session/session.go - per-run session recording.
//
// Each batch run gets a timestamped directory holding session.json (summary)
// and events.jsonl (the event stream, one JSON object per line) so external
// tools can inspect what a run did after the fact.

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/exileshud/toolbelt/pkg/events"
)

// Summary mirrors the batch outcome into the session file.
type Summary struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type sessionDoc struct {
	SessionID string     `json:"session_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    string     `json:"status"`
	Summary   *Summary   `json:"summary,omitempty"`
	Hostname  string     `json:"hostname,omitempty"`
}

// Session is one active recording.
type Session struct {
	dir        string
	id         string
	start      time.Time
	eventsFile *os.File
}

// Start creates a timestamped session directory under baseDir and begins
// recording.
func Start(baseDir string) (*Session, error) {
	now := time.Now()
	id := now.Format("20060102-150405")
	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	s := &Session{dir: dir, id: id, start: now}

	f, err := os.Create(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to create events file: %w", err)
	}
	s.eventsFile = f

	if err := s.writeSession(sessionDoc{
		SessionID: id,
		StartTime: now,
		Status:    "running",
		Hostname:  hostname(),
	}); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Dir returns the session directory path.
func (s *Session) Dir() string { return s.dir }

// Record appends one event to events.jsonl.
func (s *Session) Record(e events.Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := s.eventsFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Close finalizes the session with its summary and closes the files.
func (s *Session) Close(summary Summary) error {
	now := time.Now()
	status := "completed"
	if summary.Completed < summary.Total {
		status = "completed_with_failures"
	}
	err := s.writeSession(sessionDoc{
		SessionID: s.id,
		StartTime: s.start,
		EndTime:   &now,
		Status:    status,
		Summary:   &summary,
		Hostname:  hostname(),
	})
	if cerr := s.eventsFile.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Session) writeSession(doc sessionDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, "session.json"), data, 0644)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
