package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path"
	"strings"
	"text/template"
)

// Template names shipped with the binary.
const (
	Cleanup   = "cleanup.tmpl"
	Narration = "narration.tmpl"
)

//go:embed templates
var builtin embed.FS

// Manager handles loading and rendering of prompt templates.
type Manager struct {
	root *template.Template
	dir  string
}

// NewManager loads the built-in templates, then any *.tmpl files under dir.
// A file in dir replaces the built-in template of the same name. dir may be empty.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{
		dir: dir,
	}
	m.root = template.New("root").Funcs(template.FuncMap{
		"default": defaultFunc,
		"maybe":   maybeFunc,
		"pick":    pickFunc,
	})

	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, err
	}
	if err := m.load(sub, "built-in"); err != nil {
		return nil, err
	}

	if dir == "" {
		return m, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("prompts dir: %w", err)
	}
	if err := m.load(os.DirFS(dir), dir); err != nil {
		return nil, err
	}
	return m, nil
}

// load parses common/ first so that other templates can use its definitions.
func (m *Manager) load(fsys fs.FS, label string) error {
	if err := m.loadCommon(fsys); err != nil {
		return fmt.Errorf("loading %s common templates: %w", label, err)
	}
	if err := m.loadTemplates(fsys); err != nil {
		return fmt.Errorf("loading %s templates: %w", label, err)
	}
	return nil
}

func (m *Manager) loadCommon(fsys fs.FS) error {
	return fs.WalkDir(fsys, "common", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".tmpl") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if _, err = m.root.Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return nil
	})
}

func (m *Manager) loadTemplates(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".tmpl") {
			return nil
		}

		name := path.Clean(p)
		if strings.HasPrefix(name, "common/") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if _, err = m.root.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return nil
	})
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// defaultFunc returns fallback when value is blank.
// Usage: {{default "Unknown" .Author}}
func defaultFunc(fallback, value string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// maybeFunc includes content with a given probability (0-100).
// Usage: {{maybe 50 "This text appears 50% of the time"}}
// Re-rolls on each template render.
func maybeFunc(percent int, content string) string {
	if percent <= 0 {
		return ""
	}
	if percent >= 100 {
		return content
	}
	if rand.Intn(100) < percent {
		return content
	}
	return ""
}

// pickFunc selects one random option from a list separated by "|||".
// Usage: {{pick "Option A|||Option B|||Option C"}}
// Re-rolls on each template render.
func pickFunc(options string) string {
	parts := strings.Split(options, "|||")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts[rand.Intn(len(parts))]
}
