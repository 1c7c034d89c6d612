// Package watch re-validates a record file whenever it changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/NuHepMC/ReferenceImplementation/internal/logger"
)

// Func is called with the watched path each time the file has changed.
// Calls never overlap.
type Func func(ctx context.Context, path string)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the file must stay quiet after a write before
	// it is validated again. Generators write in many small chunks.
	Debounce time.Duration
	// Interval, when set, also polls the file. fsnotify misses changes on
	// some network filesystems.
	Interval time.Duration
	Logger   *zap.Logger
}

// Watcher monitors one file for changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	opts    Options
	log     *zap.Logger

	// last is the state the previous validation saw.
	last fileState
	// trigger is fed by debounce timers and drained by Run.
	trigger chan struct{}
	timer   *time.Timer
}

type fileState struct {
	modTime time.Time
	size    int64
	exists  bool
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), exists: true}
}

// New creates a watcher for path. The file must exist.
func New(path string, opts Options) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory so the file may be replaced by rename.
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		watcher: fsWatcher,
		path:    absPath,
		opts:    opts,
		log:     logger.OrNop(opts.Logger).Named("watch"),
		trigger: make(chan struct{}, 1),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run validates the file once, then again after every change, until ctx
// is canceled. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	defer w.watcher.Close()

	w.last = stat(w.path)
	fn(ctx, w.path)

	var poll <-chan time.Time
	if w.opts.Interval > 0 {
		ticker := time.NewTicker(w.opts.Interval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if w.timer != nil {
				w.timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-poll:
			w.check(ctx, fn)

		case <-w.trigger:
			w.check(ctx, fn)
		}
	}
}

func (w *Watcher) debounce() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

// check calls fn when the file differs from what the last call saw.
func (w *Watcher) check(ctx context.Context, fn Func) {
	now := stat(w.path)
	if !now.exists {
		if w.last.exists {
			w.log.Info("watched file removed", zap.String("path", w.path))
		}
		w.last = now
		return
	}
	if now.exists == w.last.exists && now.size == w.last.size && now.modTime.Equal(w.last.modTime) {
		return
	}
	w.last = now
	w.log.Debug("file changed", zap.String("path", w.path), zap.Int64("size", now.size))
	fn(ctx, w.path)
}

// Close stops the watcher without running it.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
