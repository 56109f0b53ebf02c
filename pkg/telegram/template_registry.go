package telegram

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// TemplateRegistry manages message templates for telegram bot
type TemplateRegistry struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
	fs        fs.FS
}

// NewTemplateRegistry loads every .tmpl file under filesystem. Template
// names are slash paths without the extension ("start/private").
func NewTemplateRegistry(filesystem fs.FS) (*TemplateRegistry, error) {
	r := &TemplateRegistry{
		templates: make(map[string]*template.Template),
		fs:        filesystem,
	}

	if err := r.loadAll(); err != nil {
		return nil, err
	}

	return r, nil
}

// NewSubTemplateRegistry loads templates from dir inside filesystem (typically an embed.FS)
func NewSubTemplateRegistry(filesystem fs.FS, dir string) (*TemplateRegistry, error) {
	subFS, err := fs.Sub(filesystem, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get sub filesystem: %w", err)
	}

	return NewTemplateRegistry(subFS)
}

// Register manually registers a template
func (r *TemplateRegistry) Register(name, content string) error {
	tmpl, err := template.New(name).Funcs(funcMap()).Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	r.mu.Lock()
	r.templates[name] = tmpl
	r.mu.Unlock()
	return nil
}

// Render renders a template by name with data
func (r *TemplateRegistry) Render(name string, data interface{}) (string, error) {
	r.mu.RLock()
	tmpl, exists := r.templates[name]
	r.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// Exists checks if template exists
func (r *TemplateRegistry) Exists(name string) bool {
	r.mu.RLock()
	_, exists := r.templates[name]
	r.mu.RUnlock()
	return exists
}

// List returns all registered template names
func (r *TemplateRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// loadAll loads all .tmpl files from filesystem
func (r *TemplateRegistry) loadAll() error {
	if r.fs == nil {
		return nil // No filesystem, templates registered manually
	}

	return fs.WalkDir(r.fs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(path) != ".tmpl" {
			return nil
		}

		content, err := fs.ReadFile(r.fs, path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		return r.Register(pathToName(path), string(content))
	})
}

// pathToName converts file path to template name
func pathToName(path string) string {
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "/")
	return strings.TrimSuffix(normalized, ".tmpl")
}

// funcMap returns template helpers for message formatting
func funcMap() template.FuncMap {
	return template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
		"join":  strings.Join,

		// Human-readable numbers
		"bytes": func(n int) string { return humanize.Bytes(uint64(n)) },
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"ago":   humanize.Time,

		"date": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
	}
}
