// Package watch triggers re-analysis when fixture files change on disk.
// It wraps fsnotify with a short debounce so an editor's save sequence
// (write, chmod, rename) produces one trigger instead of several.
package watch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the settle time between a change and its trigger.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changed files, debounced per path.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	changed  chan string
	errs     chan error
}

// New creates a watcher over the given files. A zero debounce selects
// DefaultDebounce.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			fw.Close()

			return nil, err
		}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fw:       fw,
		debounce: debounce,
		changed:  make(chan string, 16),
		errs:     make(chan error, 1),
	}, nil
}

// Changed delivers the path of each changed file after its debounce
// window. The channel closes when Run returns.
func (w *Watcher) Changed() <-chan string { return w.changed }

// Errors delivers watcher failures. Delivery is best effort; an unread
// error is dropped rather than blocking the event loop.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Run pumps events until ctx is cancelled, then releases the underlying
// watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changed)
	defer w.fw.Close()

	// One pending timer per path; refreshed on every new event so rapid
	// event bursts collapse into a single trigger. done releases timer
	// callbacks that fire after the pump has stopped draining.
	pending := make(map[string]*time.Timer)
	fired := make(chan string, 16)
	done := make(chan struct{})

	defer func() {
		close(done)

		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			path := ev.Name
			if t, ok := pending[path]; ok {
				t.Reset(w.debounce)
				continue
			}

			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fired <- path:
				case <-done:
				}
			})

		case path := <-fired:
			delete(pending, path)

			select {
			case w.changed <- path:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			select {
			case w.errs <- err:
			default:
			}
		}
	}
}
