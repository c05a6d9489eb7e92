package source

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/manifest"
)

const watchDebounce = 250 * time.Millisecond

// FileSource is a ManifestSource backed by a manifest file on disk.
type FileSource struct {
	*ManifestSource
	path string
}

// NewFileSource creates a source for the manifest at path. The file is read
// by Initialize.
func NewFileSource(path string, opts Options) *FileSource {
	return &FileSource{
		ManifestSource: NewManifestSource(nil, opts),
		path:           path,
	}
}

// Path returns the manifest path.
func (s *FileSource) Path() string {
	return s.path
}

// Initialize loads the manifest.
func (s *FileSource) Initialize(ctx context.Context) error {
	return s.Reload()
}

// Reload re-reads the manifest. On failure the previous manifest is kept.
func (s *FileSource) Reload() error {
	m, err := manifest.Load(s.path)
	if err != nil {
		return err
	}
	s.SetManifest(m)
	logging.Debug("manifest loaded", "path", s.path, "platforms", len(m.Platforms))
	return nil
}

// Watch reloads the manifest whenever the file changes and then calls
// onChange with the reload result. It blocks until ctx is done.
func (s *FileSource) Watch(ctx context.Context, onChange func(error)) error {
	return WatchFile(ctx, s.path, func() {
		err := s.Reload()
		if err != nil {
			logging.Warn("manifest reload failed", "path", s.path, "error", err)
		}
		if onChange != nil {
			onChange(err)
		}
	})
}

// WatchFile calls onChange after path is written, created or renamed into
// place, debouncing bursts of events. The parent directory is watched so
// that editors replacing the file are seen. It blocks until ctx is done.
func WatchFile(ctx context.Context, path string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", "path", path, "error", err)
		case <-debounce:
			debounce = nil
			onChange()
		}
	}
}
