package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pixelbox/internal/batch"
	"pixelbox/internal/logging"
	"pixelbox/internal/media"
	"pixelbox/internal/metrics"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Options configures a Watcher.
type Options struct {
	Recursive      bool
	Debounce       time.Duration
	RescanInterval time.Duration // 0 disables periodic runs
	// Ignore lists directories whose events never trigger a run, such as an
	// output directory nested inside the input directory.
	Ignore []string
}

// Watcher calls trigger when the watched directory changes.
type Watcher struct {
	root    string
	opts    Options
	trigger func(batch.Trigger)

	fsw      *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup

	timerMu sync.Mutex
	timer   *time.Timer
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, opts Options, trigger func(batch.Trigger)) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ignore := make([]string, 0, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			ignore = append(ignore, abs)
		}
	}
	opts.Ignore = ignore

	return &Watcher{
		root:     root,
		opts:     opts,
		trigger:  trigger,
		stopChan: make(chan struct{}),
	}
}

// Start begins watching. It fails only if the notifier cannot be created
// or the root cannot be watched.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return err
	}
	if err := fsw.Add(w.root); err != nil {
		metrics.WatcherErrors.Inc()
		if closeErr := fsw.Close(); closeErr != nil {
			logging.Error("failed to close file watcher: %v", closeErr)
		}
		return err
	}
	w.fsw = fsw

	watchCount := 1
	if w.opts.Recursive {
		watchCount += w.addSubdirectories(w.root)
	}
	metrics.WatchedDirectories.Set(float64(watchCount))
	logging.Info("Watching %s (%d directories, debounce %v)", w.root, watchCount, w.opts.Debounce)

	w.wg.Add(1)
	go w.processEvents()

	if w.opts.RescanInterval > 0 {
		logging.Info("Periodic rescan every %v", w.opts.RescanInterval)
		w.wg.Add(1)
		go w.periodicRescan()
	}
	return nil
}

// Stop stops watching and waits for the event loop to exit. A pending
// debounced trigger is dropped.
func (w *Watcher) Stop() {
	close(w.stopChan)

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	if w.fsw != nil {
		if err := w.fsw.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}
	w.wg.Wait()
	metrics.WatchedDirectories.Set(0)
}

// addSubdirectories adds every non-hidden directory below dir.
func (w *Watcher) addSubdirectories(dir string) int {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() || path == dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || w.ignored(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Error("failed to walk directory for watcher: %v", err)
		metrics.WatcherErrors.Inc()
	}
	return count
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.Warn("Watcher event queue overflowed, scheduling a run")
				w.schedule()
			} else {
				logging.Error("Watcher error: %v", err)
			}
			metrics.WatcherErrors.Inc()

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || w.ignored(event.Name) {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	if event.Has(fsnotify.Create) && w.opts.Recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if addErr := w.fsw.Add(event.Name); addErr != nil {
				logging.Warn("failed to add new directory to watcher %s: %v", event.Name, addErr)
				metrics.WatcherErrors.Inc()
			} else {
				logging.Debug("Added new directory to watcher: %s", event.Name)
				metrics.WatchedDirectories.Inc()
				// Files may have landed before the watch was added.
				metrics.WatchedDirectories.Add(float64(w.addSubdirectories(event.Name)))
				w.schedule()
			}
			return
		}
	}

	if !relevant(event) {
		return
	}
	logging.Debug("Change detected: %s %s", eventType(event.Op), event.Name)
	w.schedule()
}

// relevant reports whether event may change the output of a run.
func relevant(event fsnotify.Event) bool {
	if !media.IsImageFile(event.Name) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case <-w.stopChan:
			return
		default:
		}
		logging.Info("Input changes settled, triggering run")
		w.trigger(batch.TriggerWatch)
	})
}

func (w *Watcher) periodicRescan() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic rescan triggered")
			w.trigger(batch.TriggerInterval)
		case <-w.stopChan:
			return
		}
	}
}

// ignored reports whether path lies in an ignored directory.
func (w *Watcher) ignored(path string) bool {
	if len(w.opts.Ignore) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.opts.Ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
