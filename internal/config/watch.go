package config

import (
	"os"

	"github.com/fsnotify/fsnotify"

	log "github.com/rqnio/padgate/pkg/minilog"
)

// WatchLogLevel watches the PADGATE_CONFIG file, if set, and calls apply
// with the newly-resolved log level whenever the file changes. Every
// other field requires a restart; a change to one of those is logged and
// otherwise ignored. WatchLogLevel returns immediately; the watcher goroutine
// exits when stop is closed.
func WatchLogLevel(apply func(log.Level), stop <-chan struct{}) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config: could not start file watcher: %v", err)
		return
	}

	if err := watcher.Add(path); err != nil {
		log.Warn("config: could not watch %v: %v", path, err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()

		last, _ := Load()

		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				cur, err := Load()
				if err != nil {
					log.Warn("config: reload failed, keeping previous settings: %v", err)
					continue
				}

				if cur.LogLevel != last.LogLevel {
					lvl, err := log.ParseLevel(cur.LogLevel)
					if err != nil {
						log.Warn("config: invalid log_level %q, ignoring", cur.LogLevel)
					} else {
						log.Info("config: log level changed to %v", cur.LogLevel)
						apply(lvl)
					}
				}

				rest := cur
				rest.LogLevel = last.LogLevel
				if rest != last {
					log.Warn("config: non-log-level settings changed on disk; restart padgate to apply them")
				}

				last = cur
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config: watcher error: %v", err)
			}
		}
	}()
}
