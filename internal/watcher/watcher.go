package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/blackwell-systems/pkgsnap/internal/logging"
	"github.com/blackwell-systems/pkgsnap/internal/snapshots"
	"github.com/blackwell-systems/pkgsnap/internal/store"
)

// Op says what the watcher did with a snapshot file.
type Op string

const (
	OpIndexed Op = "indexed"
	OpRemoved Op = "removed"
)

// Event is reported to OnChange callbacks after the index was updated.
type Event struct {
	Op   Op
	Path string
}

// Watcher keeps the snapshot index in sync with the files under the backup
// root. It watches the root for new device directories and every device
// directory for snapshot files appearing or disappearing.
type Watcher struct {
	store *store.Store
	snaps *snapshots.Store
	fsw   *fsnotify.Watcher
	log   zerolog.Logger

	mu        sync.RWMutex
	callbacks []func(Event)

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Watcher indexing the snapshots of snaps into st.
func New(st *store.Store, snaps *snapshots.Store) (*Watcher, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if snaps == nil {
		return nil, fmt.Errorf("snapshot store cannot be nil")
	}
	return &Watcher{
		store:  st,
		snaps:  snaps,
		log:    logging.Component("watcher"),
		stopCh: make(chan struct{}),
	}, nil
}

// OnChange registers a callback run after each index update.
func (w *Watcher) OnChange(cb func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start reconciles the index with the backup root, then watches for changes
// until Stop is called. The backup root is created if missing.
func (w *Watcher) Start() error {
	root := w.snaps.Root()
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create backup root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsw = fsw

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	for _, id := range w.snaps.Devices() {
		w.addDeviceDir(w.snaps.DeviceDir(id))
	}

	stats, err := Reconcile(w.store, w.snaps, nil)
	if err != nil {
		w.log.Warn().Err(err).Msg("initial reconcile failed")
	} else {
		w.log.Info().
			Int("indexed", stats.Indexed).
			Int("removed", stats.Removed).
			Int("skipped", stats.Skipped).
			Msg("index reconciled")
	}

	w.wg.Add(1)
	go w.run()

	w.log.Info().Str("root", root).Msg("watching backups")
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("file watcher error")
		case <-w.stopCh:
			return
		}
	}
}

// Stop halts the watcher. It is safe to call before Start and more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	parent := filepath.Dir(ev.Name)

	// A new directory directly under the root is a device directory.
	if parent == filepath.Clean(w.snaps.Root()) {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.addDeviceDir(ev.Name)
				// Files may have landed before the watch was added.
				for _, h := range w.snaps.ListSnapshots(ev.Name) {
					w.index(h.Path)
				}
			}
		}
		return
	}

	if !snapshots.IsSnapshotFile(name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		w.index(ev.Name)
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.remove(ev.Name)
	}
}

func (w *Watcher) addDeviceDir(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.log.Error().Err(err).Str("dir", dir).Msg("cannot watch device dir")
		return
	}
	w.log.Debug().Str("dir", dir).Msg("watching device dir")
}

func (w *Watcher) index(path string) {
	if !snapshots.IsSnapshotFile(filepath.Base(path)) {
		return
	}

	rec, err := w.snaps.Record(snapshots.Handle{Path: path})
	if err != nil {
		// Partially copied files parse on a later write event.
		w.log.Debug().Err(err).Str("path", path).Msg("snapshot not indexable yet")
		return
	}
	if _, err := w.store.InsertSnapshot(rec); err != nil {
		w.log.Error().Err(err).Str("path", path).Msg("could not index snapshot")
		return
	}
	w.log.Info().Str("path", path).Int("packages", rec.PackageCount).Msg("snapshot indexed")
	w.notify(Event{Op: OpIndexed, Path: path})
}

func (w *Watcher) remove(path string) {
	removed, err := w.store.DeleteSnapshotByPath(path)
	if err != nil {
		w.log.Error().Err(err).Str("path", path).Msg("could not unindex snapshot")
		return
	}
	if !removed {
		return
	}
	w.log.Info().Str("path", path).Msg("snapshot removed from index")
	w.notify(Event{Op: OpRemoved, Path: path})
}

func (w *Watcher) notify(ev Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb(ev)
	}
}
