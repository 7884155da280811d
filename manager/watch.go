package manager

import (
	"github.com/fsnotify/fsnotify"

	"github.com/CognotEngine/amberpipeline/internal/corelog"
	"github.com/CognotEngine/amberpipeline/pkgformat"
)

// startWatch opens an fsnotify watcher and begins the event loop used
// for hot reload: when a mounted package's underlying file is
// rewritten, every resource it contributed is reloaded automatically.
// The select-loop-over-fsnotify-channels shape watches whole mounted
// packages rather than individual asset files.
func (m *Manager) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = w
	m.watchDone = make(chan struct{})
	go m.watchLoop()
	return nil
}

func (m *Manager) watchLoop() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			m.onPackageFileChanged(event.Name)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			corelog.Error("manager: watch error: %v", err)

		case <-m.watchDone:
			return
		}
	}
}

// onPackageFileChanged reloads every resource id contributed by the
// package mounted at path. Reload failures are logged, not returned,
// since this runs off the watcher goroutine with no caller to report
// to.
func (m *Manager) onPackageFileChanged(path string) {
	m.mu.Lock()
	pkg, ok := m.packages[path]
	if !ok {
		m.mu.Unlock()
		return
	}
	ids := append([]pkgformat.AssetID(nil), pkg.ids...)
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Reload(id); err != nil {
			corelog.Warn("manager: hot reload of id %d failed: %v", id, err)
		}
	}
}
