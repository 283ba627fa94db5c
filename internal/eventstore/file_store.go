package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/prbridge/internal/event"
)

// FileStore persists the event log as a JSON array file, most-recent-last.
// Writes go through a temp file and rename so a partial write never corrupts
// the log. A corrupt or missing file reads as an empty log.
type FileStore struct {
	path     string
	capacity int
	mu       sync.RWMutex
}

// NewFileStore creates a file-backed store at path. capacity <= 0 selects
// DefaultCapacity.
func NewFileStore(path string, capacity int) (*FileStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	return &FileStore{path: path, capacity: capacity}, nil
}

// Append loads the current log, appends the event, truncates to capacity and
// persists atomically. The read-modify-write sequence is a critical section:
// two concurrent appends must not lose an update.
func (fs *FileStore) Append(ctx context.Context, ev *event.Event) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	events := fs.readUnlocked()
	events = append(events, *ev)
	if len(events) > fs.capacity {
		events = events[len(events)-fs.capacity:]
	}
	return fs.writeUnlocked(events)
}

// List returns the full retained log in arrival order, oldest first.
func (fs *FileStore) List(ctx context.Context) ([]event.Event, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.readUnlocked(), nil
}

// Latest returns the last appended event, or nil when the log is empty.
func (fs *FileStore) Latest(ctx context.Context) (*event.Event, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	events := fs.readUnlocked()
	if len(events) == 0 {
		return nil, nil
	}
	latest := events[len(events)-1]
	return &latest, nil
}

// Close releases resources. The file store holds none between operations.
func (fs *FileStore) Close() error {
	return nil
}

// readUnlocked loads the log, failing soft to an empty log on any read or
// parse error. Corruption self-heals on the next append.
func (fs *FileStore) readUnlocked() []event.Event {
	// #nosec G304 - path is operator-configured, not request-derived
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil
	}
	return events
}

func (fs *FileStore) writeUnlocked(events []event.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".events-*.json")
	if err != nil {
		return fmt.Errorf("create temp log file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp log file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp log file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace log file: %w", err)
	}
	return nil
}
