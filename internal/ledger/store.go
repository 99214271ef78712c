package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps publish records in a single JSON file keyed by date string.
// Writes are atomic (temp file + rename) so a crash mid-write cannot leave a
// truncated ledger behind.
type FileStore struct {
	mu      sync.Mutex
	path    string
	records map[string]Record
	now     func() time.Time
}

// NewFileStore loads the ledger at path, creating parent directories as
// needed. A missing file yields an empty ledger; a corrupt file is an error
// so a damaged ledger is never silently overwritten.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		records: make(map[string]Record),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}
	return s, nil
}

// HasPublishedToday implements Store.HasPublishedToday.
func (s *FileStore) HasPublishedToday(day time.Weekday) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Weekday() != day {
		return false
	}
	rec, ok := s.records[now.Format(dateLayout)]
	return ok && rec.Published
}

// MarkPublished implements Store.MarkPublished. The record is on disk before
// MarkPublished returns.
func (s *FileStore) MarkPublished(videoID, videoTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	date := now.Format(dateLayout)
	s.records[date] = Record{
		Date:       date,
		Published:  true,
		VideoID:    videoID,
		VideoTitle: videoTitle,
		Weekday:    now.Weekday().String(),
		Timestamp:  now,
	}
	return s.persistLocked()
}

// History implements Store.History.
func (s *FileStore) History(limit int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRecords(s.records, limit)
}

// persistLocked writes the ledger atomically. Caller must hold s.mu.
func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace ledger %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and diskless operation.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// HasPublishedToday implements Store.HasPublishedToday.
func (s *MemoryStore) HasPublishedToday(day time.Weekday) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Weekday() != day {
		return false
	}
	rec, ok := s.records[now.Format(dateLayout)]
	return ok && rec.Published
}

// MarkPublished implements Store.MarkPublished.
func (s *MemoryStore) MarkPublished(videoID, videoTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	date := now.Format(dateLayout)
	s.records[date] = Record{
		Date:       date,
		Published:  true,
		VideoID:    videoID,
		VideoTitle: videoTitle,
		Weekday:    now.Weekday().String(),
		Timestamp:  now,
	}
	return nil
}

// History implements Store.History.
func (s *MemoryStore) History(limit int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRecords(s.records, limit)
}
