// Package web renders the server-side HTML storefront.
package web

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
)

// Renderer holds the parsed page templates. Every page is parsed
// together with the shared layout so pages only define their content
// blocks.
type Renderer struct {
	mu     sync.RWMutex
	pages  map[string]*template.Template
	devDir string
	logger *slog.Logger
}

// Options configures the renderer.
type Options struct {
	// DevDir points at the on-disk template directory. When set, the
	// directory is parsed instead of the embedded copy and Watch
	// reloads templates on change.
	DevDir string
	Logger *slog.Logger
}

// NewRenderer parses the templates and returns a ready renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	r := &Renderer{
		devDir: opts.DevDir,
		logger: opts.Logger,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

var funcMap = template.FuncMap{
	// money formats a decimal amount for display.
	"money": func(d decimal.Decimal) string {
		return "$" + d.StringFixed(2)
	},
	// pages enumerates page numbers for pagination links.
	"pages": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

func (r *Renderer) load() error {
	var fsys fs.FS = templateFS
	if r.devDir != "" {
		fsys = os.DirFS(filepath.Dir(r.devDir))
	}

	pages, err := parsePages(fsys)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.pages = pages
	r.mu.Unlock()
	return nil
}

// parsePages builds one template set per page, each sharing the layout.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	entries, err := fs.ReadDir(fsys, "templates")
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, entry := range entries {
		name := entry.Name()
		if name == "layout.html" || !strings.HasSuffix(name, ".html") {
			continue
		}

		tmpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(fsys,
			"templates/layout.html",
			"templates/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// Render writes the named page. The page is rendered to a buffer first
// so a template error becomes a clean 500 instead of a torn response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) {
	r.mu.RLock()
	tmpl, ok := r.pages[page]
	r.mu.RUnlock()

	if !ok {
		r.logger.Error("Unknown template", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		r.logger.Error("Failed to render template", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("Failed to write response", "page", page, "error", err)
	}
}

// Watch reloads templates whenever a file in the development template
// directory changes. It blocks until the context is cancelled and is a
// no-op when no directory is configured.
func (r *Renderer) Watch(ctx context.Context) error {
	if r.devDir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.devDir); err != nil {
		return fmt.Errorf("watch %s: %w", r.devDir, err)
	}

	r.logger.Info("Watching templates for changes", "dir", r.devDir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if err := r.load(); err != nil {
				// Keep serving the previous set; a broken edit should
				// not take the storefront down.
				r.logger.Error("Template reload failed", "error", err)
				continue
			}
			r.logger.Debug("Templates reloaded", "trigger", event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("Template watcher error", "error", err)
		}
	}
}
