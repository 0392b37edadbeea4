// Package watch turns filesystem activity under the data directory into
// change events for connected clients.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/berkana/internal/debounce"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/sse"
)

// Subdirectories of the data root.
const (
	NotesDir = "notes"
	DietDir  = "diet"
)

// DefaultSettle is how long a path must be quiet before it is reported.
const DefaultSettle = 150 * time.Millisecond

// Emitter receives classified changes.
type Emitter func(sse.Change)

// Watcher reports note, folder, and diet day changes. Bursts of events on
// one path collapse into a single change, classified by comparing what is
// on disk with what the watcher has seen before.
type Watcher struct {
	root   string
	emit   Emitter
	logger *slog.Logger
	settle time.Duration
	group  *debounce.Group

	mu    sync.Mutex
	known map[string]bool // data-root-relative path -> is dir
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher over dataRoot. It does nothing until Run.
func New(dataRoot string, emit Emitter, opts ...Option) *Watcher {
	w := &Watcher{
		root:   dataRoot,
		emit:   emit,
		logger: slog.Default(),
		settle: DefaultSettle,
		group:  debounce.New(),
		known:  make(map[string]bool),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	defer w.group.Stop()

	for _, dir := range []string{NotesDir, DietDir} {
		abs := filepath.Join(w.root, dir)
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return err
		}
		if err := w.addTree(fw, abs); err != nil {
			return err
		}
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, ok := w.relevant(ev.Name)
			if !ok {
				continue
			}
			if ev.Op&fsnotify.Create != 0 && isFolderPath(rel) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := fw.Add(ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					}
				}
			}
			w.group.Schedule(rel, w.settle, func() { w.resolve(rel) })

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addTree watches dir and its immediate subdirectories and records what
// already exists so later events can be classified.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, ok := w.relevant(p)
		if d.IsDir() {
			if p == dir {
				return fw.Add(p)
			}
			if !ok || !strings.HasPrefix(rel, NotesDir+"/") {
				return filepath.SkipDir
			}
			w.remember(rel, true)
			return fw.Add(p)
		}
		if ok {
			w.remember(rel, false)
		}
		return nil
	})
}

// relevant maps an absolute path to a slash-separated data-root-relative
// one and reports whether it names a folder, note, or diet day.
func (w *Watcher) relevant(abs string) (string, bool) {
	r, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	rel := filepath.ToSlash(r)
	parts := strings.Split(rel, "/")
	for _, p := range parts {
		if strings.HasPrefix(p, ".") {
			return "", false
		}
	}
	switch {
	case parts[0] == NotesDir && len(parts) == 2:
		return rel, true
	case parts[0] == NotesDir && len(parts) == 3:
		return rel, strings.HasSuffix(rel, ".json")
	case parts[0] == DietDir && len(parts) == 2:
		date := strings.TrimSuffix(parts[1], ".json")
		if date == parts[1] {
			return "", false
		}
		_, perr := time.Parse(models.DateLayout, date)
		return rel, perr == nil
	}
	return "", false
}

func isFolderPath(rel string) bool {
	return strings.HasPrefix(rel, NotesDir+"/") && strings.Count(rel, "/") == 1
}

func (w *Watcher) remember(rel string, isDir bool) {
	w.mu.Lock()
	w.known[rel] = isDir
	w.mu.Unlock()
}

// resolve compares disk state for rel with what was known and emits the
// resulting change, if any.
func (w *Watcher) resolve(rel string) {
	info, statErr := os.Stat(filepath.Join(w.root, filepath.FromSlash(rel)))
	exists := statErr == nil

	w.mu.Lock()
	wasDir, seen := w.known[rel]
	if exists {
		w.known[rel] = info.IsDir()
	} else {
		delete(w.known, rel)
		if seen && wasDir {
			for k := range w.known {
				if strings.HasPrefix(k, rel+"/") {
					delete(w.known, k)
				}
			}
		}
	}
	w.mu.Unlock()

	parts := strings.SplitN(rel, "/", 2)
	sub := parts[1]

	if parts[0] == DietDir {
		w.emit(sse.Change{Kind: sse.DietUpdated, Date: strings.TrimSuffix(sub, ".json")})
		return
	}

	isDir := (exists && info.IsDir()) || (!exists && seen && wasDir)
	switch {
	case isDir && exists && !seen:
		w.emit(sse.Change{Kind: sse.FolderCreated, Folder: sub})
		w.scanFolder(rel)
	case isDir && !exists:
		w.emit(sse.Change{Kind: sse.FolderDeleted, Folder: sub})
	case isDir:
		// Folder metadata changes are not interesting.
	case exists && seen:
		w.emit(sse.Change{Kind: sse.NoteUpdated, Path: sub, Folder: path.Dir(sub)})
	case exists:
		w.emit(sse.Change{Kind: sse.NoteCreated, Path: sub, Folder: path.Dir(sub)})
	case seen:
		w.emit(sse.Change{Kind: sse.NoteDeleted, Path: sub, Folder: path.Dir(sub)})
	}
}

// scanFolder reports notes already present in a folder that appeared
// between its creation and the watch being added.
func (w *Watcher) scanFolder(rel string) {
	entries, err := os.ReadDir(filepath.Join(w.root, filepath.FromSlash(rel)))
	if err != nil {
		w.logger.Warn("watcher: scan new folder failed",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		child := rel + "/" + e.Name()
		if _, ok := w.relevant(filepath.Join(w.root, filepath.FromSlash(child))); !ok || e.IsDir() {
			continue
		}
		w.group.Schedule(child, w.settle, func() { w.resolve(child) })
	}
}
