// Package filesystem reads pages from a local directory tree and watches it
// for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/normalisers/html"
)

// DefaultExtensions are the file types read by default.
var DefaultExtensions = []string{".html", ".htm", ".txt", ".md"}

// ChangeType classifies a watched change.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one file event. Page is zero except for URL on deletions.
type Change struct {
	Type ChangeType
	Page domain.Page
}

// Source walks root, which may be a directory or a single file.
type Source struct {
	root       string
	extensions map[string]bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a source for root. With no extensions, DefaultExtensions apply.
func New(root string, extensions ...string) *Source {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Source{root: root, extensions: exts}
}

// Pages streams every readable page under root. Both channels are closed
// when the walk ends.
func (s *Source) Pages(ctx context.Context) (<-chan domain.Page, <-chan error) {
	pages := make(chan domain.Page)
	errs := make(chan error, 1)

	go func() {
		defer close(pages)
		defer close(errs)

		if _, err := os.Stat(s.root); err != nil {
			errs <- fmt.Errorf("root path error: %w", err)
			return
		}

		err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isHidden(d.Name()) && path != s.root {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !s.accepts(path) {
				return nil
			}

			page, err := PageFromFile(path)
			if err != nil {
				return err
			}
			select {
			case pages <- page:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			errs <- err
		}
	}()

	return pages, errs
}

// Watch reports file changes under root until ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan Change, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := s.addWatches(watcher, s.root, info.IsDir()); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	changes := make(chan Change)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				change, ok := s.handleFsEvent(watcher, event)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return changes, nil
}

// Close stops any active watch.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Source) addWatches(w *fsnotify.Watcher, root string, isDir bool) error {
	if !isDir {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(d.Name()) && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// handleFsEvent maps an fsnotify event to a change. New directories are
// added to the watch and produce no change.
func (s *Source) handleFsEvent(w *fsnotify.Watcher, event fsnotify.Event) (Change, bool) {
	if isHidden(filepath.Base(event.Name)) {
		return Change{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !s.accepts(event.Name) {
			return Change{}, false
		}
		return Change{Type: ChangeDeleted, Page: domain.Page{URL: FileURL(event.Name)}}, true

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return Change{}, false
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				s.addWatches(w, event.Name, true) //nolint:errcheck
			}
			return Change{}, false
		}
		if !s.accepts(event.Name) {
			return Change{}, false
		}
		page, err := PageFromFile(event.Name)
		if err != nil {
			return Change{}, false
		}
		t := ChangeUpdated
		if event.Has(fsnotify.Create) {
			t = ChangeCreated
		}
		return Change{Type: t, Page: page}, true
	}
	return Change{}, false
}

func (s *Source) accepts(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// PageFromFile reads path into a page. HTML files fill Page.HTML; anything
// else is treated as plain text.
func PageFromFile(path string) (domain.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Page{}, fmt.Errorf("reading %s: %w", path, err)
	}

	page := domain.Page{URL: FileURL(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		page.HTML = string(content)
		page.Title = html.Title(page.HTML, path)
	default:
		page.Text = string(content)
		page.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return page, nil
}

// FileURL returns the file:// URL used as a page's canonical URL.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
