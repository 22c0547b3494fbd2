// Package watcher reports changes to level files on disk.
//
// A Watcher wraps fsnotify, keeps only events for level files and coalesces
// bursts of changes to the same path into one Event delivered after the
// debounce delay. Verifier sits on top and re-checks every changed level.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op is a set of file operations.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// Has reports whether op includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

func (op Op) String() string {
	var names []string
	for _, n := range []struct {
		op   Op
		name string
	}{{OpCreate, "CREATE"}, {OpWrite, "WRITE"}, {OpRemove, "REMOVE"}, {OpRename, "RENAME"}} {
		if op.Has(n.op) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// Event is a debounced change to one file.
type Event struct {
	Path      string
	Op        Op
	Timestamp time.Time
}

// Config holds watcher options.
type Config struct {
	// Debounce is how long a path must stay quiet before its event is
	// delivered.
	Debounce time.Duration
	// Extensions lists the file extensions reported. Empty reports all.
	Extensions []string
	// BufferSize is the capacity of the event and error channels.
	BufferSize int
}

// DefaultConfig watches level files with a short debounce.
func DefaultConfig() Config {
	return Config{
		Debounce:   250 * time.Millisecond,
		Extensions: []string{".json", ".yaml", ".yml"},
		BufferSize: 64,
	}
}

// Option configures a Watcher.
type Option func(*Config)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Debounce = d
		}
	}
}

// WithExtensions replaces the reported extensions.
func WithExtensions(exts ...string) Option {
	return func(c *Config) { c.Extensions = exts }
}

// Watcher delivers debounced file events.
type Watcher struct {
	fsw    *fsnotify.Watcher
	config Config

	mu      sync.Mutex
	pending map[string]*pendingEvent
	closed  bool

	events  chan Event
	errors  chan error
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// New starts a watcher with nothing watched yet.
func New(opts ...Option) (*Watcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		config:  config,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, config.BufferSize),
		errors:  make(chan error, config.BufferSize),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch adds a file or directory. A directory reports changes to its
// immediate children.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	return w.fsw.Add(abs)
}

// Events returns the debounced event channel. It is closed by Close.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns watcher errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops the watcher and drops pending events.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return err
}

// Pending returns the number of events waiting out their debounce delay.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			op := convertOp(ev.Op)
			if op == 0 || !w.wanted(ev.Name) {
				continue
			}
			w.add(Event{Path: ev.Name, Op: op, Timestamp: time.Now()})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) wanted(path string) bool {
	if len(w.config.Extensions) == 0 {
		return true
	}
	return slices.Contains(w.config.Extensions, strings.ToLower(filepath.Ext(path)))
}

// add records ev, merging it with a pending event for the same path and
// restarting that path's timer.
func (w *Watcher) add(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if p, ok := w.pending[ev.Path]; ok {
		p.event.Op |= ev.Op
		p.event.Timestamp = ev.Timestamp
		p.timer.Reset(w.config.Debounce)
		return
	}
	p := &pendingEvent{event: ev}
	p.timer = time.AfterFunc(w.config.Debounce, func() { w.fire(ev.Path) })
	w.pending[ev.Path] = p
}

// fire delivers the pending event for path. The send happens under the
// lock so Close cannot close the channel underneath it.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[path]
	if !ok || w.closed {
		return
	}
	delete(w.pending, path)
	select {
	case w.events <- p.event:
	default:
		// Channel full, drop event
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}
