package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

func collect(t *testing.T, s *Source) ([]domain.Page, []error) {
	t.Helper()
	pagesCh, errsCh := s.Pages(context.Background())
	var pages []domain.Page
	for p := range pagesCh {
		pages = append(pages, p)
	}
	var errs []error
	for err := range errsCh {
		errs = append(errs, err)
	}
	return pages, errs
}

func TestSource_Pages(t *testing.T) {
	t.Run("reads supported files and skips hidden ones", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.html"),
			[]byte("<html><head><title>FAQ</title></head><body><h1>Hours</h1><p>Nine to five.</p></body></html>"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain notes"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".secret.txt"), []byte("hidden"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD.txt"), []byte("ref"), 0o644))

		pages, errs := collect(t, New(dir))

		assert.Empty(t, errs)
		require.Len(t, pages, 2)
		byName := map[string]domain.Page{}
		for _, p := range pages {
			byName[filepath.Base(p.URL)] = p
		}
		assert.Equal(t, "FAQ", byName["faq.html"].Title)
		assert.Contains(t, byName["faq.html"].HTML, "<h1>Hours</h1>")
		assert.Empty(t, byName["faq.html"].Text)
		assert.Equal(t, "plain notes", byName["notes.txt"].Text)
		assert.Equal(t, "notes", byName["notes.txt"].Title)
		assert.True(t, strings.HasPrefix(byName["notes.txt"].URL, "file://"))
	})

	t.Run("single file root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "one.md")
		require.NoError(t, os.WriteFile(path, []byte("# One"), 0o644))

		pages, errs := collect(t, New(path))

		assert.Empty(t, errs)
		require.Len(t, pages, 1)
		assert.Equal(t, FileURL(path), pages[0].URL)
	})

	t.Run("custom extensions", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.rst"), []byte("b"), 0o644))

		pages, _ := collect(t, New(dir, ".RST"))

		require.Len(t, pages, 1)
		assert.Equal(t, "b", pages[0].Text)
	})

	t.Run("missing root", func(t *testing.T) {
		pages, errs := collect(t, New("/non/existent/path"))

		assert.Empty(t, pages)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "root path error")
	})

	t.Run("cancelled context closes channels", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		pagesCh, errsCh := New(dir).Pages(ctx)
		for range pagesCh {
		}
		for range errsCh {
		}
	})
}

func TestSource_handleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "page.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	hidden := filepath.Join(dir, ".hidden.txt")
	require.NoError(t, os.WriteFile(hidden, []byte("x"), 0o644))

	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	s := New(dir)
	tests := []struct {
		name   string
		event  fsnotify.Event
		want   bool
		typeOf ChangeType
	}{
		{"create file", fsnotify.Event{Name: file, Op: fsnotify.Create}, true, ChangeCreated},
		{"write file", fsnotify.Event{Name: file, Op: fsnotify.Write}, true, ChangeUpdated},
		{"remove file", fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Remove}, true, ChangeDeleted},
		{"rename file", fsnotify.Event{Name: filepath.Join(dir, "old.txt"), Op: fsnotify.Rename}, true, ChangeDeleted},
		{"chmod ignored", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false, ""},
		{"directory ignored", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false, ""},
		{"hidden ignored", fsnotify.Event{Name: hidden, Op: fsnotify.Write}, false, ""},
		{"unsupported extension", fsnotify.Event{Name: filepath.Join(dir, "x.bin"), Op: fsnotify.Remove}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, ok := s.handleFsEvent(w, tt.event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.typeOf, change.Type)
				assert.Equal(t, FileURL(tt.event.Name), change.Page.URL)
			}
		})
	}
}

func TestSource_Watch(t *testing.T) {
	t.Run("reports new files", func(t *testing.T) {
		dir := t.TempDir()
		s := New(dir)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		defer s.Close()

		changes, err := s.Watch(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			os.WriteFile(filepath.Join(dir, "new.txt"), []byte("content"), 0o644) //nolint:errcheck
		}()

		select {
		case change := <-changes:
			assert.Contains(t, change.Page.URL, "new.txt")
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for file change event")
		}
	})

	t.Run("missing root", func(t *testing.T) {
		changes, err := New("/non/existent/path").Watch(context.Background())
		assert.Error(t, err)
		assert.Nil(t, changes)
	})

	t.Run("closes channel on cancel", func(t *testing.T) {
		s := New(t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())
		changes, err := s.Watch(ctx)
		require.NoError(t, err)

		cancel()
		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel not closed")
		}
		assert.NoError(t, s.Close())
		assert.NoError(t, s.Close())
	})
}
