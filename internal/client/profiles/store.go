// Package profiles persists the display names a user has logged in with, as a
// newline-delimited file in the user's config directory. It lives entirely on
// the client side; the server never reads or writes this file.
package profiles

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// DefaultFileName is the profiles file created under the user config dir.
const DefaultFileName = "profiles.txt"

// Store reads and writes the remembered display names. The whole file is read
// on load and rewritten on every add; names are deduplicated by exact string
// match.
type Store struct {
	fs   afero.Fs
	path string

	mu    sync.Mutex
	names []string
	seen  map[string]struct{}
}

// NewStore opens (or prepares to create) the profiles file at path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{
		fs:   fs,
		path: path,
		seen: make(map[string]struct{}),
	}
}

// DefaultPath places the profiles file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "parley", DefaultFileName), nil
}

// Load reads the full file. A missing file is an empty list, not an error.
func (s *Store) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

// Names returns the currently loaded names.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Add remembers a display name and rewrites the file. Adding a name already
// present is a no-op.
func (s *Store) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[name]; ok {
		return nil
	}
	s.names = append(s.names, name)
	s.seen[name] = struct{}{}
	return s.rewrite()
}

// Remove forgets a display name and rewrites the file.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[name]; !ok {
		return nil
	}
	delete(s.seen, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return s.rewrite()
}

// Watch reloads the store whenever the file changes on disk and reports the
// fresh name list to onChange. It only works for stores backed by the real
// filesystem; fsnotify cannot observe in-memory filesystems. Watch returns
// once done closes or the watcher fails.
func (s *Store) Watch(done <-chan struct{}, onChange func(names []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			s.mu.Lock()
			err := s.reload()
			names := s.snapshot()
			s.mu.Unlock()
			if err != nil {
				slog.Warn("failed to reload profiles", "path", s.path, "error", err)
				continue
			}
			onChange(names)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("profiles watcher error", "error", err)
		}
	}
}

// reload replaces the in-memory list with the file's contents. Callers hold
// s.mu.
func (s *Store) reload() error {
	s.names = nil
	s.seen = make(map[string]struct{})

	f, err := s.fs.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open profiles: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if _, ok := s.seen[name]; ok {
			continue
		}
		s.names = append(s.names, name)
		s.seen[name] = struct{}{}
	}
	return scanner.Err()
}

// rewrite persists the in-memory list. Callers hold s.mu.
func (s *Store) rewrite() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create profiles dir: %w", err)
		}
	}
	var b strings.Builder
	for _, name := range s.names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

// snapshot copies the current list. Callers hold s.mu.
func (s *Store) snapshot() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
