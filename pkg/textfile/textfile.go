// Package textfile loads small operator-edited text files, such as the
// greeting shown to new connections, and reloads them when they change on
// disk.
package textfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Load reads path and strips trailing line endings.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("textfile: read %s: %w", path, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Watcher reloads one file whenever it is written or replaced. The watch is
// placed on the parent directory so editors that save through a rename are
// still seen.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	changes chan string
	done    chan struct{}
	log     zerolog.Logger
}

// Watch starts watching path. The file need not exist yet.
func Watch(path string, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("textfile: new watcher: %w", err)
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("textfile: watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:    path,
		fsw:     fsw,
		changes: make(chan string, 1),
		done:    make(chan struct{}),
		log:     logger.With().Str("file", path).Logger(),
	}
	go w.run()
	w.log.Info().Msg("watching text file")
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			text, err := Load(w.path)
			if err != nil {
				w.log.Warn().Err(err).Msg("reload failed")
				continue
			}
			w.log.Info().Msg("text file changed")
			w.publish(text)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("text file watcher error")
		}
	}
}

// publish replaces any unread value with text. run is the only sender, so
// the second send cannot block.
func (w *Watcher) publish(text string) {
	select {
	case w.changes <- text:
		return
	default:
	}
	select {
	case <-w.changes:
	default:
	}
	w.changes <- text
}

// Changes delivers the file's new contents after each change. Only the
// latest unread value is kept.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Latest returns the newest unread contents without blocking.
func (w *Watcher) Latest() (string, bool) {
	select {
	case text := <-w.changes:
		return text, true
	default:
		return "", false
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
