package template

import (
	"context"
	"time"

	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the directory must stay quiet before a reload.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the freshly loaded catalog. err carries the files that
// failed to build; docs holds the rest.
type ReloadFunc func(ctx context.Context, docs []*domain.Document, err error)

// Watcher reloads the template directory whenever a template file changes.
// Bursts of events (editors often write, chmod and rename in quick
// succession) collapse into a single reload.
type Watcher struct {
	Dir string

	debounce time.Duration
	onReload ReloadFunc
	done     chan struct{}
	watcher  *fsnotify.Watcher
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for dir that calls onReload after changes.
func NewWatcher(dir string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		Dir:      dir,
		debounce: DefaultDebounce,
		onReload: onReload,
		done:     make(chan struct{}),
		watcher:  fw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. The loop ends when ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.Dir); err != nil {
		w.watcher.Close()
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop closes the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	logger := ctxlog.FromContext(ctx).With("dir", w.Dir)

	var pending time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !IsTemplateFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			docs, err := LoadDir(ctx, w.Dir)
			logger.Info("template catalog reloaded", "count", len(docs))
			w.onReload(ctx, docs, err)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("template watch error", "error", err)
		}
	}
}
