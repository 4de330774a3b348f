// Package observer watches a directory and keeps a live sorted item list in
// sync with it. It owns the pieces the list core delegates to collaborators:
// locator resolution, stable id assignment, and the event source feeding
// Add/Remove/Refresh/Resync.
package observer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/lookout/errors"
	"github.com/grovetools/lookout/itemlist"
	"github.com/grovetools/lookout/logging"
	"github.com/grovetools/lookout/util/pathutil"
)

// Config defines the structure of the "observer" section in lookout.yml.
type Config struct {
	// DebounceMs is how long to wait before processing rapid writes to the
	// same file. Defaults to 100.
	DebounceMs int `yaml:"debounce_ms"`
	// Ignore lists .dockerignore-style patterns for entries to skip.
	Ignore []string `yaml:"ignore"`
	// Sort is the initial sort key: "size" (default), "name" or "modtime".
	Sort string `yaml:"sort"`
	// Descending reverses the sort direction.
	Descending bool `yaml:"descending"`
}

// Observer watches one base directory. It resolves the directory's entries
// into items with stable ids and drives the list through a full Resync on
// startup followed by incremental events.
type Observer struct {
	base       string
	list       *itemlist.List
	membership *itemlist.Membership
	watcher    *fsnotify.Watcher
	matcher    *patternmatcher.PatternMatcher
	debounce   time.Duration
	logger     *logrus.Entry

	listOpts []itemlist.Option

	mu        sync.Mutex
	ids       map[string]uuid.UUID // locator -> stable id
	lastWrite map[string]time.Time // per-path write debounce
}

// Option configures an Observer at construction time.
type Option func(*Observer) error

// WithIgnore skips directory entries matching any of the given
// .dockerignore-style patterns.
func WithIgnore(patterns []string) Option {
	return func(o *Observer) error {
		if len(patterns) == 0 {
			return nil
		}
		pm, err := patternmatcher.New(patterns)
		if err != nil {
			return errors.BadPattern(patterns[0], err)
		}
		o.matcher = pm
		return nil
	}
}

// WithDebounce overrides the per-path write debounce window.
func WithDebounce(d time.Duration) Option {
	return func(o *Observer) error {
		o.debounce = d
		return nil
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(o *Observer) error {
		o.logger = logger
		return nil
	}
}

// WithListOptions forwards options to the underlying list, e.g. a poster
// for deferred resync dispatch.
func WithListOptions(listOpts ...itemlist.Option) Option {
	return func(o *Observer) error {
		o.listOpts = append(o.listOpts, listOpts...)
		return nil
	}
}

// New creates an observer over base whose list is ordered by spec.
func New(base string, spec itemlist.SortSpec, opts ...Option) (*Observer, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.BadLocator(base, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, errors.WatchFailed(abs, err)
	}

	o := &Observer{
		base:       abs,
		membership: itemlist.NewMembership(),
		debounce:   100 * time.Millisecond,
		ids:        make(map[string]uuid.UUID),
		lastWrite:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.logger == nil {
		o.logger = logging.NewLogger("observer")
	}

	listOpts := append(o.listOpts, itemlist.WithMembership(o.membership))
	o.list = itemlist.New(o, spec, listOpts...)
	return o, nil
}

// List returns the live sorted list the observer maintains.
func (o *Observer) List() *itemlist.List {
	return o.list
}

// Membership returns the back-reference index routing per-item events.
func (o *Observer) Membership() *itemlist.Membership {
	return o.membership
}

// key normalizes a locator for the id map so the same file reached through
// symlinks or case-insensitive paths keeps one identity.
func (o *Observer) key(path string) string {
	norm, err := pathutil.NormalizeForLookup(path)
	if err != nil {
		return path
	}
	return norm
}

// ItemFor resolves a locator into its item, minting a stable id the first
// time the locator is seen and reusing it afterwards. It implements
// itemlist.Factory.
func (o *Observer) ItemFor(locator string) (*itemlist.Item, error) {
	info, err := os.Stat(locator)
	if err != nil {
		return nil, errors.BadLocator(locator, err)
	}

	key := o.key(locator)
	o.mu.Lock()
	id, ok := o.ids[key]
	if !ok {
		id = uuid.New()
		o.ids[key] = id
	}
	o.mu.Unlock()

	return &itemlist.Item{
		ID:      id,
		Path:    locator,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// Rescan enumerates the base directory and reconciles the list against it
// in one combined batch.
func (o *Observer) Rescan() error {
	entries, err := os.ReadDir(o.base)
	if err != nil {
		return errors.ScanFailed(o.base, err)
	}

	present := make(map[string]struct{}, len(entries))
	locators := make([]string, 0, len(entries))
	for _, entry := range entries {
		if o.ignored(entry.Name()) {
			continue
		}
		path := filepath.Join(o.base, entry.Name())
		present[o.key(path)] = struct{}{}
		locators = append(locators, path)
	}

	o.list.Resync(locators)

	// Ids of vanished locators are dropped so a later file at the same path
	// gets a fresh identity. Item identity is never reused.
	o.mu.Lock()
	for path := range o.ids {
		if _, ok := present[path]; !ok {
			delete(o.ids, path)
		}
	}
	o.mu.Unlock()
	return nil
}

// Start watches the base directory, performs an initial rescan, then feeds
// incremental events into the list. The watch begins before the scan so no
// event between the two is lost; the worst case is an event for a state the
// scan already saw, which the list absorbs as a no-op. Start blocks until
// the context is cancelled.
func (o *Observer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WatchFailed(o.base, err)
	}
	if err := watcher.Add(o.base); err != nil {
		watcher.Close()
		return errors.WatchFailed(o.base, err)
	}
	o.watcher = watcher
	o.logger.WithField("dir", o.base).Info("Watching directory")

	if err := o.Rescan(); err != nil {
		watcher.Close()
		return err
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			o.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			watcher.Close()
			return nil
		}
	}
}

func (o *Observer) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if o.ignored(name) {
		return
	}
	o.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

	switch {
	case event.Op&fsnotify.Create != 0:
		if err := o.list.Add(event.Name); err != nil {
			o.logger.WithError(err).Debugf("Ignoring unresolvable create: %s", name)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		o.removePath(event.Name)
	case event.Op&(fsnotify.Write|fsnotify.Chmod) != 0:
		o.refreshPath(event.Name)
	}
}

// removePath drops the item backing path, if tracked. A rename surfaces
// here under its old name; the new name arrives as a separate create.
func (o *Observer) removePath(path string) {
	key := o.key(path)
	o.mu.Lock()
	id, ok := o.ids[key]
	delete(o.ids, key)
	o.mu.Unlock()
	if !ok {
		return
	}

	if it, tracked := o.list.ItemByID(id); tracked {
		it.Deleted = true
	}
	o.list.Remove(id)
}

// refreshPath re-reads the item's metadata in place and restores its sorted
// position, routing the refresh through the membership index so every list
// referencing the item is updated.
func (o *Observer) refreshPath(path string) {
	key := o.key(path)
	o.mu.Lock()
	id, ok := o.ids[key]
	if ok {
		if last, seen := o.lastWrite[key]; seen && time.Since(last) < o.debounce {
			o.mu.Unlock()
			return
		}
		o.lastWrite[key] = time.Now()
	}
	o.mu.Unlock()
	if !ok {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// The file vanished between the event and the stat.
		o.removePath(path)
		return
	}

	for _, l := range o.membership.ListsFor(id) {
		if it, tracked := l.ItemByID(id); tracked {
			it.Name = info.Name()
			it.Size = info.Size()
			it.ModTime = info.ModTime()
			it.IsDir = info.IsDir()
		}
		l.Refresh(id)
	}
}

func (o *Observer) ignored(name string) bool {
	if o.matcher == nil {
		return false
	}
	match, err := o.matcher.MatchesOrParentMatches(name)
	if err != nil {
		o.logger.WithError(err).Warnf("Pattern match failed for %s", name)
		return false
	}
	return match
}

// Close stops the watcher and releases resources.
func (o *Observer) Close() error {
	if o.watcher != nil {
		return o.watcher.Close()
	}
	return nil
}
