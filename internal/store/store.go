// File: internal/store/store.go

// Package store persists the captured value history as a single JSON
// document keyed by site URL.
package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const timestampLayout = "2006-01-02 15:04:05"

// Entry records the last value captured for one site.
type Entry struct {
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

// document is the on-disk layout: a global last-update marker plus the
// per-site entries.
type document struct {
	LastUpdate string           `json:"last_update"`
	Sites      map[string]Entry `json:"sites"`
}

// Store is a file-backed value history. It is not safe for concurrent use;
// the workflow drives it from a single goroutine.
type Store struct {
	path string
	log  *zap.Logger
	now  func() time.Time
}

// New creates a store writing to the given path.
func New(path string, logger *zap.Logger) *Store {
	return &Store{
		path: path,
		log:  logger.Named("store"),
		now:  time.Now,
	}
}

// Save records the captured value for a site and reports whether it differs
// from the previously stored one. The whole document is rewritten on every
// save; the history file is tiny and this keeps it crash-consistent.
func (s *Store) Save(siteURL, value string) (changed bool, previous string, err error) {
	doc, err := s.load()
	if err != nil {
		return false, "", err
	}

	if prev, ok := doc.Sites[siteURL]; ok {
		previous = prev.Value
	}
	changed = previous != value

	now := s.now().Format(timestampLayout)
	doc.LastUpdate = now
	doc.Sites[siteURL] = Entry{Value: value, Timestamp: now}

	if err := s.write(doc); err != nil {
		return false, "", err
	}
	return changed, previous, nil
}

// Previous returns the stored value for a site, if any.
func (s *Store) Previous(siteURL string) (string, bool, error) {
	doc, err := s.load()
	if err != nil {
		return "", false, err
	}
	entry, ok := doc.Sites[siteURL]
	return entry.Value, ok, nil
}

func (s *Store) load() (*document, error) {
	doc := &document{Sites: map[string]Entry{}}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// First run: start from an empty history.
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file %s: %w", s.path, err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		// A corrupt history is not worth aborting a run over; start over
		// but keep the broken file contents in the log for forensics.
		s.log.Warn("History file is corrupt; starting a fresh history.",
			zap.String("path", s.path), zap.Error(err))
		return &document{Sites: map[string]Entry{}}, nil
	}
	if doc.Sites == nil {
		doc.Sites = map[string]Entry{}
	}
	return doc, nil
}

func (s *Store) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", s.path, err)
	}
	return nil
}
