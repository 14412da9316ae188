// Package watcher reloads graph data when its files change on disk. It uses
// fsnotify on the containing directories and falls back to stat polling on
// network filesystems or when G3D_FORCE_POLL is set.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/debug"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// EnvForcePoll forces polling mode when truthy.
const EnvForcePoll = "G3D_FORCE_POLL"

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrNoPaths        = errors.New("no paths to watch")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounceDuration = d }
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithOnChange sets the callback invoked after a debounced change. It gets
// the paths that changed during the quiet period, sorted.
func WithOnChange(fn func(paths []string)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the callback invoked on errors. ErrFileRemoved is wrapped
// with the path.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

type fileState struct {
	mtime time.Time
	size  int64
}

// Watcher monitors a set of files. Node and edge documents usually live
// side by side, so one change notification covers a pair of writes.
type Watcher struct {
	paths            []string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func([]string)
	onError          func(error)
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	state       map[string]fileState
	pending     map[string]struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan []string
}

// New creates a watcher for paths. Remote URLs and duplicates are dropped.
func New(paths []string, opts ...Option) (*Watcher, error) {
	seen := make(map[string]bool)
	var abs []string
	for _, p := range paths {
		if p == "" || strings.Contains(p, "://") {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if !seen[a] {
			seen[a] = true
			abs = append(abs, a)
		}
	}
	if len(abs) == 0 {
		return nil, ErrNoPaths
	}
	sort.Strings(abs)

	w := &Watcher{
		paths:            abs,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func([]string) {},
		onError:          func(error) {},
		state:            make(map[string]fileState, len(abs)),
		pending:          make(map[string]struct{}),
		changeCh:         make(chan []string, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.useFallback = false
	w.fsType = FSTypeUnknown

	for _, p := range w.paths {
		ft := DetectFilesystemType(p)
		if w.fsType == FSTypeUnknown || isRemoteFilesystem(ft) {
			w.fsType = ft
		}
		info, err := os.Stat(p)
		switch {
		case err == nil:
			w.state[p] = fileState{mtime: info.ModTime(), size: info.Size()}
		case os.IsPermission(err):
			w.cancel()
			return ErrPermission
		default:
			// Not created yet; the first write is reported as a change.
			w.state[p] = fileState{}
		}
	}

	forcePoll := w.forcePoll || envBool(EnvForcePoll)
	w.useFallback = forcePoll || isRemoteFilesystem(w.fsType)

	if !w.useFallback {
		if fsw, err := fsnotify.NewWatcher(); err == nil {
			ok := true
			for _, dir := range w.dirs() {
				if err := fsw.Add(dir); err != nil {
					ok = false
					break
				}
			}
			if ok {
				w.fsWatcher = fsw
				go w.watchFsnotify(fsw.Events, fsw.Errors)
			} else {
				fsw.Close()
				w.useFallback = true
			}
		} else {
			w.useFallback = true
		}
	}
	if w.useFallback {
		go w.watchPolling()
	}

	debug.Log("watcher: %d files, fs=%s, polling=%v", len(w.paths), w.fsType, w.useFallback)
	w.started = true
	return nil
}

func (w *Watcher) dirs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range w.paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// Stop stops watching. The Changed channel is left open so a receiver
// blocked on it is not woken with a spurious value.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed delivers the changed paths after each debounced change. Values are
// dropped while a previous one is still unread.
func (w *Watcher) Changed() <-chan []string {
	return w.changeCh
}

// Paths returns the watched absolute paths.
func (w *Watcher) Paths() []string {
	return append([]string(nil), w.paths...)
}

// FilesystemType returns the classification that decided the watch mode.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used in polling mode.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) watched(name string) (string, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}
	i := sort.SearchStrings(w.paths, abs)
	if i < len(w.paths) && w.paths[i] == abs {
		return abs, true
	}
	return "", false
}

func (w *Watcher) watchFsnotify(events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			path, ok := w.watched(event.Name)
			if !ok {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(&RemovedError{Path: path})
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.markChanged(path)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			for _, p := range w.paths {
				w.poll(p)
			}
		}
	}
}

func (w *Watcher) poll(path string) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			w.mu.Lock()
			had := !w.state[path].mtime.IsZero()
			w.state[path] = fileState{}
			w.mu.Unlock()
			if had {
				w.onError(&RemovedError{Path: path})
			}
		case os.IsPermission(err):
			w.onError(ErrPermission)
		default:
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	prev := w.state[path]
	changed := info.ModTime().After(prev.mtime) || info.Size() != prev.size
	if changed {
		w.state[path] = fileState{mtime: info.ModTime(), size: info.Size()}
	}
	w.mu.Unlock()
	if changed {
		w.markChanged(path)
	}
}

func (w *Watcher) markChanged(path string) {
	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()
	w.debouncer.Trigger(w.notifyChange)
}

func (w *Watcher) notifyChange() {
	w.mu.Lock()
	started := w.started
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if !started || len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	w.onChange(changed)

	select {
	case w.changeCh <- changed:
	default:
	}
}

// RemovedError reports which watched file disappeared.
type RemovedError struct {
	Path string
}

func (e *RemovedError) Error() string { return ErrFileRemoved.Error() + ": " + e.Path }

// Is makes errors.Is(err, ErrFileRemoved) work.
func (e *RemovedError) Is(target error) bool { return target == ErrFileRemoved }
