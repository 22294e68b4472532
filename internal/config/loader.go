package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Load reads and validates the config file at path. Fields the file does not
// mention keep their DefaultConfig values. The format is chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data on top of DefaultConfig. ext is ".toml", ".yaml" or ".yml".
func Parse(data []byte, ext string) (*Config, error) {
	cfg := DefaultConfig()

	switch ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path    string
	overlay func(*Config)
	watcher *fsnotify.Watcher
	changes chan *Config
	errs    chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch starts watching path. The directory is watched rather than the file
// so that editors which replace the file on save are still noticed.
// A non-nil overlay is applied to every reloaded config before it is
// validated and delivered, so settings made outside the file survive reloads.
func Watch(path string, overlay func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:    path,
		overlay: overlay,
		watcher: fw,
		changes: make(chan *Config, 1),
		errs:    make(chan error, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes delivers each successfully reloaded config. Only the latest
// pending config is kept if the reader falls behind.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

// Errors delivers reload and watch failures. Errors are dropped if unread.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops watching and closes the Errors channel. Changes stays open.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	close(w.errs)
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil && w.overlay != nil {
		w.overlay(cfg)
		err = cfg.Validate()
	}
	if err != nil {
		w.report(fmt.Errorf("reload config: %w", err))
		return
	}

	// Replace any config the reader has not consumed yet.
	select {
	case <-w.changes:
	default:
	}
	w.changes <- cfg
}

func (w *Watcher) report(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
