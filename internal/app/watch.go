package app

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	dsimage "defect-synth/internal/image"
)

// FileWatcher polls the files behind the loaded panes and reports when one
// of them changes on disk, so the UI can offer to reload it.
type FileWatcher struct {
	mu            sync.Mutex
	checkInterval time.Duration
	files         map[Pane]watchedFile
	stopCh        chan struct{}
	onChange      func(p Pane, path string) // called from the watcher goroutine
}

type watchedFile struct {
	path    string
	modTime time.Time
}

// NewFileWatcher creates a watcher that checks every interval.
func NewFileWatcher(checkInterval time.Duration) *FileWatcher {
	return &FileWatcher{
		checkInterval: checkInterval,
		files:         make(map[Pane]watchedFile),
	}
}

// OnChange sets the callback invoked when a watched file is modified.
func (w *FileWatcher) OnChange(callback func(p Pane, path string)) {
	w.mu.Lock()
	w.onChange = callback
	w.mu.Unlock()
}

// Watch starts tracking path for a pane, replacing whatever was watched
// there before. An empty path stops watching the pane.
func (w *FileWatcher) Watch(p Pane, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if path == "" {
		delete(w.files, p)
		return
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	f := watchedFile{path: path}
	if info, err := os.Stat(path); err == nil {
		f.modTime = info.ModTime()
	}
	w.files[p] = f
}

// Bind keeps the watcher in step with the document: every file loaded into
// a pane becomes the watched file for that pane.
func (w *FileWatcher) Bind(s *State) {
	s.On(EventSourceLoaded, func(data interface{}) {
		if layer, ok := data.(*dsimage.Layer); ok {
			w.Watch(PaneSource, layer.Path)
		}
	})
	s.On(EventTargetLoaded, func(data interface{}) {
		if layer, ok := data.(*dsimage.Layer); ok {
			w.Watch(PaneTarget, layer.Path)
		}
	})
}

// Start begins polling in a background goroutine.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	w.stopCh = make(chan struct{})
	stop := w.stopCh
	w.mu.Unlock()
	go w.watchLoop(stop)
}

// Stop stops the polling goroutine.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *FileWatcher) watchLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check compares every watched file against its recorded modification time
// and reports the changed ones. The new time becomes the baseline, so each
// change is reported once.
func (w *FileWatcher) Check() {
	type change struct {
		pane Pane
		path string
	}
	var changed []change

	w.mu.Lock()
	for p, f := range w.files {
		info, err := os.Stat(f.path)
		if err != nil {
			continue
		}
		if info.ModTime().After(f.modTime) {
			f.modTime = info.ModTime()
			w.files[p] = f
			changed = append(changed, change{p, f.path})
		}
	}
	cb := w.onChange
	w.mu.Unlock()

	if cb == nil {
		return
	}
	for _, c := range changed {
		cb(c.pane, c.path)
	}
}
