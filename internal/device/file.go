package device

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/attendance-tui/internal/logger"
	"github.com/j-veylop/attendance-tui/internal/models"
	"github.com/j-veylop/attendance-tui/internal/services/location"
)

// EventType defines the type of device event.
type EventType int

const (
	EventLoaded EventType = iota
	EventChanged
	EventError
)

// Event represents a device file event.
type Event struct {
	Error error
	Type  EventType
}

type watch struct {
	onFix   func(models.LocationSample)
	onErr   func(error)
	last    *models.Coordinates
	opts    location.FixOptions
	stopped bool
}

// File is a location provider and permission source backed by a JSON file.
type File struct {
	now           func() time.Time
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	lastFix       *models.LocationSample
	watches       map[int]*watch
	filePath      string
	state         State
	nextWatch     int
	mu            sync.Mutex
	closeOnce     sync.Once
}

// New loads the device file at path, creating it with defaults when
// missing, and starts watching it for edits.
func New(path string) (*File, error) {
	f := &File{
		filePath:  path,
		now:       time.Now,
		eventChan: make(chan Event, 16),
		stopChan:  make(chan struct{}),
		watches:   make(map[int]*watch),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create device directory: %w", err)
	}

	if err := f.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load device file: %w", err)
		}
		f.state = DefaultState()
		if err := f.save(f.state); err != nil {
			return nil, fmt.Errorf("failed to create device file: %w", err)
		}
	}

	if err := f.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start device watcher: %w", err)
	}

	f.sendEvent(Event{Type: EventLoaded})
	return f, nil
}

// Path returns the device file path.
func (f *File) Path() string {
	return f.filePath
}

// Events returns the channel of device file events.
func (f *File) Events() <-chan Event {
	return f.eventChan
}

// State returns a copy of the current device state.
func (f *File) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// Update replaces the device state and persists it. Watches are notified
// through the file watcher like any external edit.
func (f *File) Update(fn func(*State)) error {
	f.mu.Lock()
	next := f.state.clone()
	fn(&next)
	f.state = next
	f.mu.Unlock()
	return f.save(next)
}

// PermissionStatus returns the status of a named permission.
func (f *File) PermissionStatus(_ context.Context, permission string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Status(permission), nil
}

// CurrentPosition produces one fix after the configured delay. A previous
// fix no older than opts.MaximumAge is returned straight away.
func (f *File) CurrentPosition(ctx context.Context, opts location.FixOptions) (models.LocationSample, error) {
	f.mu.Lock()
	state := f.state.clone()
	last := f.lastFix
	f.mu.Unlock()

	if err := checkFix(state, opts); err != nil {
		return models.LocationSample{}, err
	}

	if last != nil && opts.MaximumAge > 0 && f.now().Sub(last.Timestamp) <= opts.MaximumAge &&
		last.Coordinates == (models.Coordinates{Latitude: state.Latitude, Longitude: state.Longitude}) {
		return *last, nil
	}

	if delay := time.Duration(state.FixDelay); delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return models.LocationSample{}, ctx.Err()
		case <-t.C:
		}
	}

	sample := sampleFrom(state, f.now())
	f.mu.Lock()
	f.lastFix = &sample
	f.mu.Unlock()
	return sample, nil
}

// checkFix returns the provider error a real device would report.
func checkFix(state State, opts location.FixOptions) error {
	if !state.locationPermitted() {
		return &location.PositionError{Code: location.PermissionDenied, Message: "location permission not granted"}
	}
	if !state.LocationEnabled {
		return &location.PositionError{Code: location.PositionUnavailable, Message: "location services disabled"}
	}
	if state.HighAccuracyOnly && !opts.HighAccuracy {
		return &location.PositionError{Code: location.PositionUnavailable, Message: "no network location provider"}
	}
	return nil
}

// sampleFrom expects state to be a private copy.
func sampleFrom(state State, now time.Time) models.LocationSample {
	return models.LocationSample{
		Coordinates: models.Coordinates{Latitude: state.Latitude, Longitude: state.Longitude},
		Accuracy:    state.Accuracy,
		Timestamp:   now,
	}
}

// Watch reports the current position now and again whenever the device file
// moves it by at least opts.DistanceFilter meters.
func (f *File) Watch(opts location.FixOptions, onFix func(models.LocationSample), onErr func(error)) (func(), error) {
	f.mu.Lock()
	select {
	case <-f.stopChan:
		f.mu.Unlock()
		return nil, fmt.Errorf("device closed")
	default:
	}
	id := f.nextWatch
	f.nextWatch++
	w := &watch{opts: opts, onFix: onFix, onErr: onErr}
	f.watches[id] = w
	f.mu.Unlock()

	go f.deliver(w)

	return func() {
		f.mu.Lock()
		w.stopped = true
		delete(f.watches, id)
		f.mu.Unlock()
	}, nil
}

// deliver pushes the current state to one watch, honouring its distance
// filter. Callbacks run without holding the lock.
func (f *File) deliver(w *watch) {
	f.mu.Lock()
	if w.stopped {
		f.mu.Unlock()
		return
	}
	state := f.state.clone()
	now := f.now()

	if err := checkFix(state, w.opts); err != nil {
		f.mu.Unlock()
		if w.onErr != nil {
			w.onErr(err)
		}
		return
	}

	coords := models.Coordinates{Latitude: state.Latitude, Longitude: state.Longitude}
	if w.last != nil && models.DistanceMeters(*w.last, coords) < w.opts.DistanceFilter {
		f.mu.Unlock()
		return
	}
	w.last = &coords
	sample := sampleFrom(state, now)
	f.lastFix = &sample
	f.mu.Unlock()

	if w.onFix != nil {
		w.onFix(sample)
	}
}

func (f *File) load() error {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse device file: %w", err)
	}

	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
	return nil
}

// save writes state atomically through a temp file.
func (f *File) save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal device state: %w", err)
	}

	tmpFile := f.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, f.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// startWatcher watches the directory so editor save-by-rename is seen.
func (f *File) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	f.watcher = watcher

	if err := watcher.Add(filepath.Dir(f.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go f.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (f *File) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(f.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				f.mu.Lock()
				if f.debounceTimer != nil {
					f.debounceTimer.Stop()
				}
				f.debounceTimer = time.AfterFunc(debounceInterval, f.handleFileChange)
				f.mu.Unlock()
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.sendEvent(Event{Type: EventError, Error: err})

		case <-f.stopChan:
			return
		}
	}
}

// handleFileChange reloads the file and informs watches and subscribers.
func (f *File) handleFileChange() {
	if err := f.load(); err != nil {
		if os.IsNotExist(err) {
			return
		}
		logger.Warn("device file reload failed", "error", err)
		f.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	f.mu.Lock()
	watches := make([]*watch, 0, len(f.watches))
	for _, w := range f.watches {
		watches = append(watches, w)
	}
	f.mu.Unlock()

	for _, w := range watches {
		f.deliver(w)
	}

	f.sendEvent(Event{Type: EventChanged})
}

// sendEvent sends an event to the event channel non-blocking.
func (f *File) sendEvent(event Event) {
	select {
	case f.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-f.eventChan:
		default:
		}
		select {
		case f.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and every watch.
func (f *File) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.mu.Lock()
		close(f.stopChan)
		if f.debounceTimer != nil {
			f.debounceTimer.Stop()
		}
		for id, w := range f.watches {
			w.stopped = true
			delete(f.watches, id)
		}
		f.mu.Unlock()

		if f.watcher != nil {
			err = f.watcher.Close()
		}
	})
	return err
}
