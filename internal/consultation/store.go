package consultation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the append-only consultation log, persisted as a single JSON
// array file. Access within this process is serialized by a mutex.
// Concurrent writers in other processes are last-write-wins: there is no
// merge and no version vector. That limitation is accepted, not fixed;
// cross-process changes surface eventually via the reload-on-read check
// and the change notifications.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	records []Record
	mtime   time.Time
	loaded  bool
	subs    []chan struct{}
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Append re-reads the file, adds the record and writes the whole array
// back. Records are never diffed or rewritten individually.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	if err := s.flush(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// List returns the current log, picking up external file changes first.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.reloadChanged()
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify()
	}
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

var ErrRecordNotFound = errors.New("consultation record not found")

func (s *Store) Get(id int64) (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, ErrRecordNotFound
}

// Subscribe returns a channel signalled after each append and whenever an
// external modification is noticed. Notifications are dropped if the
// subscriber is slow; consistency is eventual, not immediate.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Store) notify() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// reload unconditionally refreshes the in-memory list from disk.
func (s *Store) reload() error {
	_, err := s.readFile()
	return err
}

// reloadChanged refreshes only when the file changed underneath us and
// reports whether it did.
func (s *Store) reloadChanged() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if s.loaded && info.ModTime().Equal(s.mtime) {
		return false, nil
	}
	external := s.loaded
	if _, err := s.readFile(); err != nil {
		return false, err
	}
	if external {
		s.logger.Info("consultation log changed externally, reloaded",
			zap.Int("records", len(s.records)))
	}
	return external, nil
}

func (s *Store) readFile() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = nil
			s.loaded = true
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read consultation log: %w", err)
	}
	var records []Record
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse consultation log: %w", err)
		}
	}
	s.records = records
	if info, err := os.Stat(s.path); err == nil {
		s.mtime = info.ModTime()
	}
	s.loaded = true
	return records, nil
}

func (s *Store) flush() error {
	data, err := json.Marshal(s.records)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write consultation log: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.mtime = info.ModTime()
	}
	return nil
}
