// Package catalog persists normalized anime documents as an append-only JSONL file.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/anime"
)

const maxLineBytes = 16 << 20

// Store is a JSONL catalog file. Safe for concurrent use within one process.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// New returns a store writing to path. The file and its directory are created on first append.
func New(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the catalog file location.
func (s *Store) Path() string { return s.path }

// Append writes docs, one JSON object per line.
func (s *Store) Append(docs []anime.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range docs {
		if err := enc.Encode(&docs[i]); err != nil {
			return s.fail("encode anime document", err, "anime_id", docs[i].ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return s.fail("create catalog directory", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return s.fail("open catalog", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return s.fail("append anime documents", err, "count", len(docs))
	}
	if err := f.Close(); err != nil {
		return s.fail("close catalog", err)
	}

	s.logger.Debug("Appended anime documents", zap.Int("count", len(docs)), zap.String("path", s.path))
	return nil
}

// Load reads every document. A missing file yields an empty catalog.
// Blank lines are skipped. When an id appears more than once the last record wins,
// keeping the position of its first appearance.
func (s *Store) Load() ([]anime.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Catalog file does not exist", zap.String("path", s.path))
		return []anime.Document{}, nil
	}
	if err != nil {
		return nil, s.fail("open catalog", err)
	}
	defer func() { _ = f.Close() }()

	docs := make([]anime.Document, 0, 256)
	pos := make(map[int]int)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc anime.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, s.fail("decode catalog line", err, "line", line)
		}
		if i, ok := pos[doc.ID]; ok {
			docs[i] = doc
			continue
		}
		pos[doc.ID] = len(docs)
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, s.fail("read catalog", err, "line", line)
	}

	s.logger.Info("Loaded anime catalog", zap.Int("count", len(docs)), zap.String("path", s.path))
	return docs, nil
}

func (s *Store) fail(msg string, err error, kv ...any) error {
	kv = append(kv, "path", s.path)
	return domain.NewError(domain.KindPersistence, msg, fmt.Errorf("catalog: %w", err), kv...)
}
