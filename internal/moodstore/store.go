package moodstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/moodcast/internal/catalog"
)

// File permission constants.
const (
	dirPermissions  = 0750
	filePermissions = 0640
)

// Logger is the logging interface used for skipped lines.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Store maps cities to moods.
type Store struct {
	path string

	mu    sync.RWMutex
	moods map[catalog.City]catalog.Mood

	logger Logger
}

// New returns a store seeded with DefaultMood for every catalog city.
// Nothing is read from or written to path until Load or Save is called.
func New(path string) *Store {
	s := &Store{
		path:   path,
		moods:  make(map[catalog.City]catalog.Mood, catalog.CityCount),
		logger: noopLogger{},
	}
	for _, c := range catalog.Cities() {
		s.moods[c] = catalog.DefaultMood
	}
	return s
}

// SetLogger sets the logger used to report skipped lines.
func (s *Store) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the backing file, overlaying its entries on the current
// contents. A missing file is created from the current contents.
//
// Lines that are blank are ignored. Lines that are not exactly two fields
// or that name an unknown mood are skipped and logged.
//
// Returns:
//   - error: wrapped ErrPersist if the file cannot be read or created
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrPersist, s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			s.logger.Warn("skipping malformed mood line", "path", s.path, "line", lineNo)
			continue
		}
		mood, err := catalog.ParseMood(fields[1])
		if err != nil {
			s.logger.Warn("skipping unknown mood", "path", s.path, "line", lineNo, "mood", fields[1])
			continue
		}
		s.moods[catalog.City(fields[0])] = mood
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: scanning %s: %w", ErrPersist, s.path, err)
	}

	return nil
}

// Get returns the city's mood. A city seen for the first time is recorded
// with DefaultMood.
func (s *Store) Get(city catalog.City) catalog.Mood {
	s.mu.RLock()
	mood, ok := s.moods[city]
	s.mu.RUnlock()
	if ok {
		return mood
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mood, ok := s.moods[city]; ok {
		return mood
	}
	s.moods[city] = catalog.DefaultMood
	return catalog.DefaultMood
}

// Set records a mood in memory without persisting it.
func (s *Store) Set(city catalog.City, mood catalog.Mood) {
	s.mu.Lock()
	s.moods[city] = mood
	s.mu.Unlock()
}

// SetAndSave records a mood and writes the whole mapping to disk while
// holding the write lock, so concurrent updates cannot overwrite each other
// on disk. The in-memory value is kept even when the write fails.
func (s *Store) SetAndSave(city catalog.City, mood catalog.Mood) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods[city] = mood
	return s.saveLocked()
}

// Save writes the mapping to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

// Snapshot returns a copy of the mapping.
func (s *Store) Snapshot() map[catalog.City]catalog.Mood {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[catalog.City]catalog.Mood, len(s.moods))
	for c, m := range s.moods {
		out[c] = m
	}
	return out
}

// Len returns the number of cities with a mood.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.moods)
}

// saveLocked writes the mapping via a temp file and rename. The caller
// holds s.mu (read or write).
func (s *Store) saveLocked() error {
	if s.path == "" {
		return fmt.Errorf("%w: no file path configured", ErrPersist)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrPersist, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrPersist, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // No-op after a successful rename

	w := bufio.NewWriter(tmp)
	for _, city := range s.sortedCitiesLocked() {
		fmt.Fprintf(w, "%s %s\n", city, s.moods[city])
	}
	if err := w.Flush(); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("%w: writing %s: %w", ErrPersist, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("%w: syncing %s: %w", ErrPersist, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrPersist, tmpName, err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrPersist, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %w", ErrPersist, s.path, err)
	}

	return nil
}

func (s *Store) sortedCitiesLocked() []catalog.City {
	cities := make([]catalog.City, 0, len(s.moods))
	for c := range s.moods {
		cities = append(cities, c)
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i] < cities[j] })
	return cities
}
