package fs

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// NotifySubscriber reports changes using native filesystem notifications.
// It watches the parent directory of every subscribed file rather than the
// file itself, so subscriptions survive editors that save by replacing the
// file.
type NotifySubscriber struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*notifyEntry
	dirs    map[string]int
	lost    map[string]struct{}
	nextID  uint64
	closed  bool
	done    chan struct{}
}

type notifyEntry struct {
	last      FileInfo
	callbacks map[uint64]ChangeFunc
}

// NewNotifySubscriber creates an fsnotify-backed subscriber. A nil logger
// uses slog.Default().
func NewNotifySubscriber(logger *slog.Logger) (*NotifySubscriber, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create fsnotify watcher")
	}
	if logger == nil {
		logger = slog.Default()
	}

	n := &NotifySubscriber{
		watcher: w,
		logger:  logger,
		entries: make(map[string]*notifyEntry),
		dirs:    make(map[string]int),
		lost:    make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	go n.eventLoop()
	return n, nil
}

// Subscribe registers fn for changes to path.
func (n *NotifySubscriber) Subscribe(path string, fn ChangeFunc) (Subscription, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if fn == nil {
		return nil, errors.New("callback is required")
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil, errors.New("notify subscriber is closed")
	}
	// A lost directory keeps its count until every old subscription is
	// closed, but its kernel watch is gone and must be added again.
	_, lost := n.lost[dir]
	if n.dirs[dir] == 0 || lost {
		if err := n.watcher.Add(dir); err != nil {
			n.mu.Unlock()
			return nil, errors.Wrapf(err, "unable to watch %s", dir)
		}
		delete(n.lost, dir)
	}
	n.dirs[dir]++

	entry, ok := n.entries[path]
	if !ok {
		entry = &notifyEntry{
			last:      statOrZero(path),
			callbacks: make(map[uint64]ChangeFunc),
		}
		n.entries[path] = entry
	}
	n.nextID++
	id := n.nextID
	entry.callbacks[id] = fn
	n.mu.Unlock()

	return &notifySubscription{owner: n, path: path, id: id}, nil
}

// Close stops event delivery and releases the fsnotify watcher.
func (n *NotifySubscriber) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.entries = make(map[string]*notifyEntry)
	n.dirs = make(map[string]int)
	n.lost = make(map[string]struct{})
	n.mu.Unlock()

	close(n.done)
	return n.watcher.Close()
}

func (n *NotifySubscriber) remove(path string, id uint64) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	entry, ok := n.entries[path]
	if !ok {
		n.mu.Unlock()
		return nil
	}
	if _, ok := entry.callbacks[id]; !ok {
		n.mu.Unlock()
		return nil
	}
	delete(entry.callbacks, id)
	if len(entry.callbacks) == 0 {
		delete(n.entries, path)
	}

	dir := filepath.Dir(path)
	n.dirs[dir]--
	release := n.dirs[dir] <= 0
	if release {
		delete(n.dirs, dir)
		delete(n.lost, dir)
	}
	n.mu.Unlock()

	if release {
		// The directory may already be gone, which drops the watch anyway.
		if err := n.watcher.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			n.logger.Debug("watch remove failed", "path", dir, "error", err)
		}
	}
	return nil
}

func (n *NotifySubscriber) eventLoop() {
	for {
		select {
		case <-n.done:
			return
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handleEvent(event)
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.logger.Warn("fsnotify error", "error", err)
		}
	}
}

type notifyDelivery struct {
	change    Change
	callbacks []ChangeFunc
}

func (n *NotifySubscriber) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	n.mu.Lock()
	var deliveries []notifyDelivery
	if entry, ok := n.entries[path]; ok {
		if d, ok := entry.update(path, statOrZero(path)); ok {
			deliveries = append(deliveries, d)
		}
	}
	if _, watched := n.dirs[path]; watched && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		deliveries = append(deliveries, n.dirLost(path)...)
	}
	n.mu.Unlock()

	for _, d := range deliveries {
		for _, cb := range d.callbacks {
			cb(d.change)
		}
	}
}

// dirLost handles removal or rename of a watched directory. The kernel
// watch dies with it, so every file below is reported as gone and the next
// Subscribe for that directory adds the watch again. Callers hold n.mu.
func (n *NotifySubscriber) dirLost(dir string) []notifyDelivery {
	n.lost[dir] = struct{}{}
	n.logger.Debug("watched directory lost", "path", dir)

	var deliveries []notifyDelivery
	for path, entry := range n.entries {
		if filepath.Dir(path) != dir {
			continue
		}
		if d, ok := entry.update(path, FileInfo{}); ok {
			deliveries = append(deliveries, d)
		}
	}
	return deliveries
}

// update records current and returns the delivery for it, if it differs
// from the last observed state.
func (e *notifyEntry) update(path string, current FileInfo) (notifyDelivery, bool) {
	if !changed(e.last, current) {
		return notifyDelivery{}, false
	}
	previous := e.last
	e.last = current
	callbacks := make([]ChangeFunc, 0, len(e.callbacks))
	for _, cb := range e.callbacks {
		callbacks = append(callbacks, cb)
	}
	return notifyDelivery{
		change:    Change{Path: path, Current: current, Previous: previous},
		callbacks: callbacks,
	}, true
}

type notifySubscription struct {
	owner *NotifySubscriber
	path  string
	id    uint64
	once  sync.Once
}

func (s *notifySubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.owner.remove(s.path, s.id)
	})
	return err
}
