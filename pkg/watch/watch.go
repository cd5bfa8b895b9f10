// Package watch re-analyzes python files as they change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// DefaultExcludeDirs are directory names never descended into.
var DefaultExcludeDirs = []string{".git", "__pycache__", ".venv", "venv", "node_modules", ".*_cache"}

type Options struct {
	// Include is a doublestar pattern relative to the root. Defaults to **/*.py.
	Include string
	// ExcludeDirs are glob patterns matched against directory base names.
	ExcludeDirs []string
	// Debounce is how long the watcher waits for more events before
	// reporting a batch.
	Debounce time.Duration
}

// ChangeFunc receives the sorted set of paths that changed since the last call.
type ChangeFunc func(ctx context.Context, paths []string) error

type Watcher struct {
	root        string
	include     string
	excludeDirs []glob.Glob
	debounce    time.Duration
	onChange    ChangeFunc

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	ready   chan struct{}
}

// New watches every directory below root. Events are queued from the moment
// New returns; they are delivered once Run is called.
func New(root string, opts Options, onChange ChangeFunc) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: nil change func")
	}

	include := opts.Include
	if include == "" {
		include = "**/*.py"
	}
	if !doublestar.ValidatePattern(include) {
		return nil, errors.Errorf("invalid include pattern %q", include)
	}

	excludes := opts.ExcludeDirs
	if excludes == nil {
		excludes = DefaultExcludeDirs
	}
	compiled := make([]glob.Glob, 0, len(excludes))
	for _, pattern := range excludes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Errorf("compiling exclude pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		root:        abs,
		include:     include,
		excludeDirs: compiled,
		debounce:    debounce,
		onChange:    onChange,
		fsw:         fsw,
		pending:     map[string]struct{}{},
		ready:       make(chan struct{}, 1),
	}

	if err := w.addRecursive(abs); err != nil {
		return nil, multierr.Append(err, fsw.Close())
	}

	return w, nil
}

// Root is the absolute directory being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Matches reports whether path, absolute or relative to the root, is a file
// the watcher reports.
func (w *Watcher) Matches(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(w.root, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)

	segments := strings.Split(rel, "/")
	for _, dir := range segments[:len(segments)-1] {
		if w.excluded(dir) {
			return false
		}
	}

	ok, err := doublestar.Match(w.include, rel)
	return err == nil && ok
}

func (w *Watcher) excluded(dir string) bool {
	for _, g := range w.excludeDirs {
		if g.Match(dir) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers debounced batches to the change func until ctx is done. A
// failing change func is logged and does not stop the watcher; the errors of
// every failed batch are returned together when Run exits.
func (w *Watcher) Run(ctx context.Context) (err error) {
	logger := zerolog.Ctx(ctx)

	defer func() {
		multierr.AppendInto(&err, w.Close())
	}()

	for {
		select {
		case <-ctx.Done():
			return err

		case event, ok := <-w.fsw.Events:
			if !ok {
				return err
			}
			w.handle(ctx, event)

		case werr, ok := <-w.fsw.Errors:
			if !ok {
				return err
			}
			logger.Warn().Err(werr).Msg("watcher error")

		case <-w.ready:
			paths := w.drain()
			if len(paths) == 0 {
				continue
			}
			logger.Debug().Strs("paths", paths).Msg("files changed")
			if cerr := w.onChange(ctx, paths); cerr != nil {
				logger.Error().Err(cerr).Msg("handling file changes")
				multierr.AppendInto(&err, cerr)
			}
		}
	}
}

// Close stops the watcher without delivering pending changes. Run closes the
// watcher on return.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		return errors.Errorf("closing watcher: %w", err)
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.excluded(filepath.Base(event.Name)) {
				return
			}
			if err := w.addRecursive(event.Name); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("path", event.Name).Msg("watching new directory")
				return
			}
			w.enqueueExisting(event.Name)
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if w.Matches(event.Name) {
		w.schedule(event.Name)
	}
}

// enqueueExisting reports files that were written into a new directory
// before its watch was registered.
func (w *Watcher) enqueueExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && w.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.Matches(path) {
			w.schedule(path)
		}
		return nil
	})
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.ready <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = map[string]struct{}{}

	sort.Strings(paths)
	return paths
}
