package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	debounceDelay   = 50 * time.Millisecond
	eventBufferSize = 16
)

// Watcher reports changes to a history file made by other processes. The
// parent directory is watched rather than the file itself because atomic
// saves replace the file, which drops a direct watch.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	log     zerolog.Logger

	mu       sync.Mutex
	subs     []chan time.Time
	debounce *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher starts watching path. The parent directory is created if it
// doesn't exist.
func NewWatcher(path string, log zerolog.Logger) (*Watcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:    filepath.Clean(path),
		watcher: fw,
		log:     log.With().Str("component", "history-watcher").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Changes returns a channel that receives the time of each (debounced)
// change. The channel is closed when ctx is done or the watcher closes.
func (w *Watcher) Changes(ctx context.Context) <-chan time.Time {
	ch := make(chan time.Time, eventBufferSize)

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		close(ch)
		return ch
	}
	w.subs = append(w.subs, ch)
	w.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			w.unsubscribe(ch)
		case <-w.ctx.Done():
		}
	}()

	return ch
}

// Close stops watching and closes all subscriber channels.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	for _, ch := range w.subs {
		close(ch)
	}
	w.subs = nil
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) unsubscribe(ch chan time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, sub := range w.subs {
		if sub == ch {
			w.subs = append(w.subs[:i], w.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Debug().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	// Temp files from atomic saves show up as their own events; only the
	// final rename onto the history path counts.
	if filepath.Clean(event.Name) != w.path {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, w.notify)
}

func (w *Watcher) notify() {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ch := range w.subs {
		select {
		case ch <- now:
		default:
			// subscriber is behind; it will reload on the next pending event
		}
	}
	w.debounce = nil
}
