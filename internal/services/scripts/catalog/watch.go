package catalog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 200 * time.Millisecond

// WatchConfig configures file-backed resource reloads.
type WatchConfig struct {
	Path     string
	Resource *Resource
	Logger   *log.Logger
	Debounce time.Duration
	// OnReload runs after each successful swap. Optional.
	OnReload func()
}

// Watch reloads Resource from Path whenever the file changes, until ctx ends.
//
// The parent directory is watched so editors that replace the file by rename
// are picked up. Invalid content is logged and the previous bytes stay served.
func Watch(ctx context.Context, cfg WatchConfig) error {
	if cfg.Resource == nil {
		return fmt.Errorf("watch situations: resource is required")
	}
	if cfg.Path == "" {
		return fmt.Errorf("watch situations: path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return fmt.Errorf("watch situations: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch situations: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch situations dir: %w", err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Events inside an armed window do not extend it.
			if pending == nil {
				pending = time.After(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watch situations: %v", err)
		case <-pending:
			pending = nil
			if err := reload(path, cfg.Resource); err != nil {
				logger.Printf("reload situations path=%s: %v", path, err)
				continue
			}
			logger.Printf("reloaded situations path=%s etag=%s", path, cfg.Resource.ETag())
			if cfg.OnReload != nil {
				cfg.OnReload()
			}
		}
	}
}

func reload(path string, resource *Resource) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return resource.Update(data)
}
