// Package syncq keeps roster rows the server rejected so they can be fixed
// and resent with `ctadm guests retry`.
package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"classtrade/internal/admin"
	"classtrade/internal/cli"
)

type Entry struct {
	ClassID  int64            `json:"class_id"`
	Row      admin.GuestInput `json:"row"`
	Message  string           `json:"message"`
	QueuedAt time.Time        `json:"queued_at"`
}

func queuePath() (string, error) {
	dir, err := cli.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Entry, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Entry{}, nil
	}
	var out []Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(entries []Entry) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	current, err := Load()
	if err != nil {
		return err
	}
	return Save(append(current, entries...))
}

// Take removes and returns the entries queued for classID.
func Take(classID int64) ([]Entry, error) {
	current, err := Load()
	if err != nil {
		return nil, err
	}
	var taken, kept []Entry
	for _, e := range current {
		if e.ClassID == classID {
			taken = append(taken, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(taken) == 0 {
		return nil, nil
	}
	if kept == nil {
		kept = []Entry{}
	}
	return taken, Save(kept)
}

// Rejected pairs each failed row of a bulk result with the input that produced it.
func Rejected(classID int64, rows []admin.GuestInput, res admin.BulkResult, now time.Time) []Entry {
	byRow := make(map[int]admin.GuestInput, len(rows))
	for i, r := range rows {
		key := r.Row
		if key == 0 {
			key = i + 1
		}
		byRow[key] = r
	}
	out := make([]Entry, 0, len(res.Errors))
	for _, e := range res.Errors {
		row, ok := byRow[e.Row]
		if !ok {
			row = admin.GuestInput{Row: e.Row}
		}
		out = append(out, Entry{ClassID: classID, Row: row, Message: e.Message, QueuedAt: now})
	}
	return out
}
