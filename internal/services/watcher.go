package services

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"presentat/internal/eventloop"
	"presentat/internal/logger"
)

// FileWatcher reports external modifications of the open file. It watches
// the parent directory so files replaced by rename keep being tracked.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	poster   eventloop.Poster
	logger   logger.Logger
	onChange func(path string)
	settle   func(f func())

	mu        sync.Mutex
	target    string
	watched   string
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewFileWatcher starts the watch loop. onChange runs on the UI loop.
func NewFileWatcher(poster eventloop.Poster, log logger.Logger, onChange func(path string)) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:  w,
		poster:   poster,
		logger:   log,
		onChange: onChange,
		// editors often emit several events per save
		settle: debounce.New(100 * time.Millisecond),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go fw.watchLoop()
	return fw, nil
}

// Watch switches the watched file to path; an empty path stops watching
func (fw *FileWatcher) Watch(path string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	dir := ""
	if path != "" {
		path = filepath.Clean(path)
		dir = filepath.Dir(path)
	}

	if fw.watched != "" && fw.watched != dir {
		if err := fw.watcher.Remove(fw.watched); err != nil {
			fw.logger.Debug("FileWatcher", "remove watch failed", map[string]interface{}{
				"dir":   fw.watched,
				"error": err.Error(),
			})
		}
		fw.watched = ""
	}

	fw.target = path
	if dir == "" || fw.watched == dir {
		return nil
	}
	if err := fw.watcher.Add(dir); err != nil {
		fw.target = ""
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	fw.watched = dir
	return nil
}

func (fw *FileWatcher) currentTarget() string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.target
}

func (fw *FileWatcher) watchLoop() {
	defer close(fw.done)
	for {
		select {
		case <-fw.closed:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			target := fw.currentTarget()
			if target == "" || filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			fw.settle(func() {
				fw.poster.Post(func() {
					fw.onChange(target)
				})
			})
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warning("FileWatcher", "watcher error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// Shutdown stops the watch loop and releases the watcher
func (fw *FileWatcher) Shutdown() {
	fw.closeOnce.Do(func() {
		close(fw.closed)
		fw.watcher.Close()
	})
	<-fw.done
}
