package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal is an append-only JSON-lines event log, one object per line.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

func NewJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{f: f, now: time.Now}, nil
}

// Append writes one event. A nil Journal discards events.
func (j *Journal) Append(event string, data map[string]any) error {
	if j == nil {
		return nil
	}
	line, err := json.Marshal(map[string]any{
		"timestamp": j.now().UTC().Format(time.RFC3339),
		"event":     event,
		"data":      data,
	})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.f.Write(line)
	return err
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.f.Close()
}
