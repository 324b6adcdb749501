// Package watch reports changes to a set of files.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op indicates a change operation on a watched file.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event is one debounced change. Op accumulates every operation seen
// during the quiet period.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches files through their parent directories so that
// editors which replace a file on save are still seen.
type Watcher struct {
	w        *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	logger   *slog.Logger

	evC chan Event
	erC chan error
}

// New watches paths. A debounce of zero uses DefaultDebounce.
func New(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	fw := &Watcher{
		w:        w,
		files:    make(map[string]struct{}),
		debounce: debounce,
		logger:   logger,
		evC:      make(chan Event, 16),
		erC:      make(chan error, 1),
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		fw.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

// Run delivers debounced events until ctx is done or the watcher is
// closed. It closes the event channel on return.
func (fw *Watcher) Run(ctx context.Context) {
	defer close(fw.evC)

	pending := make(map[string]Op)
	timer := time.NewTimer(fw.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			if _, watched := fw.files[abs]; !watched {
				continue
			}
			pending[abs] |= convertOp(ev.Op)
			timer.Reset(fw.debounce)

		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			select {
			case fw.erC <- err:
			default:
				fw.logger.Warn("dropping watcher error", slog.Any("error", err))
			}

		case now := <-timer.C:
			for path, op := range pending {
				fw.logger.Debug("file changed", slog.String("path", path))
				select {
				case fw.evC <- Event{Path: path, Op: op, Time: now}:
				case <-ctx.Done():
					return
				}
			}
			clear(pending)
		}
	}
}

func convertOp(o fsnotify.Op) Op {
	var op Op
	if o&fsnotify.Create != 0 {
		op |= OpCreate
	}
	if o&fsnotify.Write != 0 {
		op |= OpWrite
	}
	if o&fsnotify.Remove != 0 {
		op |= OpRemove
	}
	if o&fsnotify.Rename != 0 {
		op |= OpRename
	}
	if o&fsnotify.Chmod != 0 {
		op |= OpChmod
	}
	return op
}

func (fw *Watcher) Events() <-chan Event { return fw.evC }
func (fw *Watcher) Errors() <-chan error { return fw.erC }
func (fw *Watcher) Close() error         { return fw.w.Close() }
