package api

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kelvinhq/kelvin/pkg/observability"
)

// Renderer renders a named page template. Tests substitute a stub so handler
// tests do not depend on template files on disk.
type Renderer interface {
	Render(w http.ResponseWriter, name string, data interface{}) error
}

// TemplateRenderer serves html/template pages from a directory and reloads
// them when files change, so template edits show up without a restart.
type TemplateRenderer struct {
	dir    string
	logger *observability.Logger

	mu  sync.RWMutex
	tpl *template.Template

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewTemplateRenderer parses every .html file under dir and starts watching
// the directory for changes. Call Close to stop the watcher.
func NewTemplateRenderer(dir string, logger *observability.Logger) (*TemplateRenderer, error) {
	r := &TemplateRenderer{dir: dir, logger: logger, done: make(chan struct{})}
	if err := r.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	r.watcher = watcher
	go r.watch()
	return r, nil
}

func (r *TemplateRenderer) reload() error {
	tpl, err := template.ParseGlob(filepath.Join(r.dir, "*.html"))
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	r.mu.Lock()
	r.tpl = tpl
	r.mu.Unlock()
	return nil
}

func (r *TemplateRenderer) watch() {
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.reload(); err != nil {
				// Keep serving the last good set.
				r.logger.WithError(err).Warn("template reload failed")
				continue
			}
			r.logger.WithField("file", event.Name).Debug("templates reloaded")
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.WithError(err).Warn("template watcher error")
		}
	}
}

// Render executes the named template.
func (r *TemplateRenderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	r.mu.RLock()
	tpl := r.tpl
	r.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tpl.ExecuteTemplate(w, name, data)
}

// Close stops the file watcher.
func (r *TemplateRenderer) Close() error {
	close(r.done)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}
