package config

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const pollInterval = 30 * time.Second

// Watcher reloads the config file when it changes and hands the result to onReload.
// fsnotify drives it; a slow mtime poll covers platforms where watching fails.
type Watcher struct {
	path     string
	onReload func(*Config)

	mu      sync.Mutex
	modTime time.Time
}

func NewWatcher(path string, onReload func(*Config)) *Watcher {
	w := &Watcher{path: path, onReload: onReload}
	if fi, err := os.Stat(path); err == nil {
		w.modTime = fi.ModTime()
	}
	return w
}

// Start runs until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Config Watcher: fsnotify failed (%v), polling only", err)
	} else if err := fw.Add(filepath.Dir(w.path)); err != nil {
		// Editors replace files on save, so the directory is watched rather than the file.
		log.Printf("Config Watcher: failed to watch %s (%v), polling only", w.path, err)
		fw.Close()
		fw = nil
	}

	if fw != nil {
		go func() {
			defer fw.Close()
			target := filepath.Clean(w.path)
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-fw.Events:
					if !ok {
						return
					}
					if filepath.Clean(ev.Name) != target {
						continue
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						time.Sleep(100 * time.Millisecond)
						w.reloadIfChanged()
					}
				case err, ok := <-fw.Errors:
					if !ok {
						return
					}
					log.Printf("Config Watcher Error: %v", err)
				}
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.reloadIfChanged()
			}
		}
	}()
}

// reloadIfChanged reloads only when the file mtime moved, so polling stays quiet.
func (w *Watcher) reloadIfChanged() bool {
	fi, err := os.Stat(w.path)
	if err != nil {
		return false
	}

	w.mu.Lock()
	if !fi.ModTime().After(w.modTime) {
		w.mu.Unlock()
		return false
	}
	w.modTime = fi.ModTime()
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("[ERROR] Config Watcher: reload rejected, keeping previous config: %v", err)
		return false
	}
	log.Printf("Config Watcher: %s reloaded", w.path)
	w.onReload(cfg)
	return true
}
