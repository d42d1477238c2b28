package entry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nlowe/airqtt/log"
)

type document struct {
	Entries []Entry `yaml:"entries"`
}

// Store is a YAML file of entries. It is safe for concurrent use within a process. Other processes are picked up by
// Reload or Watch.
type Store struct {
	path string

	mu      sync.RWMutex
	entries []Entry

	now func() time.Time
	log *slog.Logger
}

// Open loads the store at path. A missing file is an empty store and is created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{
		path: filepath.Clean(path),
		now:  time.Now,
		log:  log.ForComponent("entry").With(slog.String("path", path)),
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the file backing this store.
func (s *Store) Path() string {
	return s.path
}

// Reload replaces the in-memory entries with the contents of the file.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.entries = nil
		s.mu.Unlock()
		return nil
	}

	if err != nil {
		return fmt.Errorf("entry: read %s: %w", s.path, err)
	}

	var doc document
	if err = yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("entry: parse %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.entries = doc.Entries
	s.mu.Unlock()

	s.log.With(slog.Int("entries", len(doc.Entries))).Debug("Loaded entries")
	return nil
}

// All returns a copy of every entry in creation order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.entries)
}

// Get returns the entry with the specified entry id.
func (s *Store) Get(id string) (Entry, error) {
	return s.find(func(e Entry) bool { return e.EntryID == id })
}

// ByUniqueID returns the entry for the specified device.
func (s *Store) ByUniqueID(uid string) (Entry, error) {
	return s.find(func(e Entry) bool { return e.UniqueID == uid })
}

func (s *Store) find(match func(Entry) bool) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := slices.IndexFunc(s.entries, match); i >= 0 {
		return s.entries[i], nil
	}

	return Entry{}, ErrNotFound
}

// Add stores e and returns it with EntryID, Domain, Version and CreatedAt filled in.
func (s *Store) Add(e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.UniqueID != "" && slices.ContainsFunc(s.entries, func(existing Entry) bool { return existing.UniqueID == e.UniqueID }) {
		return Entry{}, fmt.Errorf("entry: %s: %w", e.UniqueID, ErrAlreadyConfigured)
	}

	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
	}
	if e.Domain == "" {
		e.Domain = Domain
	}
	if e.Version == 0 {
		e.Version = Version
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	next := append(slices.Clone(s.entries), e)
	if err := s.write(next); err != nil {
		return Entry{}, err
	}

	s.entries = next
	s.log.With(slog.Any("entry", e)).Info("Added entry")
	return e, nil
}

// Remove deletes the entry with the specified entry id.
func (s *Store) Remove(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.entries, func(e Entry) bool { return e.EntryID == id })
	if i < 0 {
		return Entry{}, fmt.Errorf("entry: %s: %w", id, ErrNotFound)
	}

	removed := s.entries[i]
	next := slices.Delete(slices.Clone(s.entries), i, i+1)
	if err := s.write(next); err != nil {
		return Entry{}, err
	}

	s.entries = next
	s.log.With(slog.Any("entry", removed)).Info("Removed entry")
	return removed, nil
}

// write replaces the file atomically. Entries hold device passwords so the file is only readable by its owner.
func (s *Store) write(entries []Entry) error {
	raw, err := yaml.Marshal(document{Entries: entries})
	if err != nil {
		return fmt.Errorf("entry: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("entry: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("entry: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err = tmp.Chmod(0o600); err == nil {
		_, err = tmp.Write(raw)
	}

	if err = errors.Join(err, tmp.Close()); err != nil {
		return fmt.Errorf("entry: write %s: %w", tmp.Name(), err)
	}

	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("entry: replace %s: %w", s.path, err)
	}

	return nil
}

// Watch reloads the store whenever its file changes and then calls fn. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, fn func()) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("entry: create %s: %w", dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("entry: watch: %w", err)
	}
	defer w.Close()

	// The file is replaced by rename, so watch the directory rather than the file.
	if err = w.Add(dir); err != nil {
		return fmt.Errorf("entry: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			s.log.With(log.Error(err)).Warn("Entry watcher error")
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != s.path || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
				continue
			}

			if err = s.Reload(); err != nil {
				s.log.With(log.Error(err)).Warn("Failed to reload entries")
				continue
			}

			fn()
		}
	}
}
