// Package prompts supplies the named instruction templates that drive the
// inference service. Templates are loaded once at startup and treated as
// immutable configuration afterwards.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var defaultTemplates embed.FS

// Template names
const (
	TemplateSystem    = "system"
	TemplateClassify  = "classify"
	TemplateTranslate = "translate"
	TemplateCompose   = "compose"
	TemplateFeedback  = "feedback"
)

var required = []string{
	TemplateSystem,
	TemplateClassify,
	TemplateTranslate,
	TemplateCompose,
	TemplateFeedback,
}

// Library holds the parsed prompt templates for a process
type Library struct {
	templates map[string]*template.Template
}

// Load parses the embedded default templates, then overrides any of them with
// <name>.md files found in dir. An empty dir uses the defaults only.
func Load(dir string) (*Library, error) {
	lib := &Library{templates: make(map[string]*template.Template)}

	for _, name := range required {
		data, err := defaultTemplates.ReadFile("templates/" + name + ".md")
		if err != nil {
			return nil, fmt.Errorf("missing embedded template %q: %w", name, err)
		}
		if dir != "" {
			override := filepath.Join(dir, name+".md")
			if fileData, err := os.ReadFile(override); err == nil {
				data = fileData
			} else if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read template override %s: %w", override, err)
			}
		}
		tmpl, err := template.New(name).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
		}
		lib.templates[name] = tmpl
	}

	return lib, nil
}

// Render executes the named template with the given data
func (l *Library) Render(name string, data any) (string, error) {
	tmpl, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
