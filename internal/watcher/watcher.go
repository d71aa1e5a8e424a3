// Package watcher feeds filesystem changes in the configured ingest
// directories into the document pipeline.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches directories and reports settled file changes. Create and
// write events are debounced per path before onIngest fires; remove and
// rename events fire onRemove immediately.
type Watcher struct {
	dirs      []string
	exts      []string
	recursive bool
	debounce  time.Duration
	onIngest  func(path string)
	onRemove  func(path string)
	logger    *zap.Logger

	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a path must stay quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive controls whether subdirectories are watched too.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// NewWatcher creates a watcher over dirs. exts filters which files are
// reported; empty means every file. Either callback may be nil.
func NewWatcher(dirs, exts []string, onIngest, onRemove func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		dirs:      dirs,
		exts:      exts,
		recursive: true,
		debounce:  defaultDebounce,
		onIngest:  onIngest,
		onRemove:  onRemove,
		logger:    zap.NewNop(),
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing directories are created. The watcher runs
// until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.dirs {
		if err := w.watchTree(fsw, dir); err != nil {
			fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.started = true
	w.logger.Info("watching directories",
		zap.Strings("dirs", w.dirs),
		zap.Strings("extensions", w.exts),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fsw)
	return nil
}

// watchTree registers dir, creating it when absent, and its subdirectories
// when the watcher is recursive.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, dir string) error {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if !w.recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(fsw, path)
			return
		}
		if w.matches(path) {
			w.schedule(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancel(path)
		if w.matches(path) && w.onRemove != nil {
			w.logger.Debug("watched file removed", zap.String("path", path))
			w.onRemove(path)
		}
	}
}

// handleNewDirectory registers a directory that appeared inside a watched
// tree and ingests the files it already carries, covering directories moved
// in whole.
func (w *Watcher) handleNewDirectory(fsw *fsnotify.Watcher, dir string) {
	if !w.recursive {
		return
	}
	if err := w.watchTree(fsw, dir); err != nil {
		w.logger.Warn("watching new directory failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	w.logger.Debug("watching new directory", zap.String("dir", dir))
	w.syncDir(dir)
}

// schedule arms (or re-arms) the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.logger.Debug("file settled", zap.String("path", path))
		if w.onIngest != nil {
			w.onIngest(path)
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) matches(path string) bool {
	return matchExtension(path, w.exts)
}

func matchExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range exts {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// SyncExisting reports every matching file already present under the watched
// directories. Call it after Start to pick up files that predate the watch.
func (w *Watcher) SyncExisting() {
	for _, dir := range w.dirs {
		w.syncDir(dir)
	}
}

func (w *Watcher) syncDir(dir string) {
	if w.onIngest == nil {
		return
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if !w.recursive && filepath.Clean(path) != filepath.Clean(dir) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.matches(path) {
			w.onIngest(path)
		}
		return nil
	})
}

// Stop halts watching and drops any pending debounce timers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()
	if fsw != nil {
		fsw.Close()
	}
	w.stopOnce.Do(func() { close(w.done) })
}
