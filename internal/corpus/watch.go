package corpus

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reports changes to a corpus file or directory
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	isDir    bool
	debounce time.Duration
}

// NewWatcher creates a watcher for path; a file is watched through its directory
// so editors that replace the file by rename are still seen
func NewWatcher(path string) (*Watcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		path:     filepath.Clean(path),
		isDir:    info.IsDir(),
		debounce: defaultDebounce,
	}, nil
}

// Watch emits once per burst of changes, after the corpus has been quiet for the debounce interval
func (w *Watcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	dir := w.path
	if !w.isDir {
		dir = filepath.Dir(w.path)
	}
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)

		timer := time.NewTimer(w.debounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.relevant(event) {
					continue
				}
				timer.Reset(w.debounce)
			case <-timer.C:
				select {
				case changes <- struct{}{}:
				default:
					// A rebuild is already pending
				}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return changes, nil
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.isDir {
		ext := filepath.Ext(event.Name)
		return ext == ".html" || ext == ".htm"
	}
	return filepath.Clean(event.Name) == w.path
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
