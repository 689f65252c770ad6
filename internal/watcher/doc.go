// Package watcher keeps the snapshot index in sync with the backup root.
//
// Snapshot files are the source of truth; the SQLite index only speeds up
// listing. Reconcile rebuilds the index from disk in one pass. A Watcher does
// the same incrementally with fsnotify, indexing files as they appear and
// dropping rows for files that are removed or renamed away.
//
// Example usage:
//
//	st, err := store.Open(dbPath)
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	w, err := watcher.New(st, snapshots.NewStore(backupRoot))
//	if err != nil {
//		return err
//	}
//	if err := w.Start(); err != nil {
//		return err
//	}
//	defer w.Stop()
package watcher
