// Package history persists finished analysis sessions on local disk so later
// runs can feed prior reports back in for progression analysis.
//
// Records are stored as one gzip-compressed JSON document, newest first,
// trimmed to a fixed retention limit on every write. Attachment payloads are
// stripped before saving; they dominate record size and are never needed
// again.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/openpheno/phenograph/internal/analysis"
)

// DefaultLimit is the retention cap applied when none is configured.
const DefaultLimit = 20

const storeFile = "history.json.gz"

// Record is one saved session.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Input     analysis.Input  `json:"input"`
	Output    analysis.Report `json:"output"`
}

// Store is a bounded, newest-first session archive. All methods are safe for
// concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	limit int
}

// NewStore opens (or creates) the archive under dir with the given retention
// limit. A limit of zero or less selects DefaultLimit.
func NewStore(dir string, limit int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{path: filepath.Join(dir, storeFile), limit: limit}, nil
}

// Save archives one session at the front of the list and trims to the
// retention limit. Attachment data is stripped from the stored input.
func (s *Store) Save(input analysis.Input, output analysis.Report) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Record{}, err
	}

	input.Attachments = nil
	input.VoiceNote = nil

	rec := Record{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Input:     input,
		Output:    output,
	}

	records = append([]Record{rec}, records...)
	if len(records) > s.limit {
		records = records[:s.limit]
	}

	if err := s.write(records); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns all records, newest first.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Delete removes the record with the given id. Deleting an unknown id is a
// no-op.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return s.write(kept)
}

// Clear removes the whole archive.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

// Context converts up to n newest records into the progression context
// passed to the analyzer.
func (s *Store) Context(n int) ([]analysis.HistoryContext, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(records) > n {
		records = records[:n]
	}

	out := make([]analysis.HistoryContext, len(records))
	for i, r := range records {
		out[i] = analysis.HistoryContext{
			Date:   r.Timestamp.Format("2006-01-02"),
			Output: r.Output,
		}
	}
	return out, nil
}

// load must be called with s.mu held.
func (s *Store) load() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("history: gzip: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("history: read: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("history: decode: %w", err)
	}
	return records, nil
}

// write replaces the archive atomically. Must be called with s.mu held.
func (s *Store) write(records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("history: create: %w", err)
	}

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("history: write: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("history: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("history: close: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("history: replace: %w", err)
	}
	return nil
}
