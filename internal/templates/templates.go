// Package templates provides embedded Nudgefile templates for nudge init.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.yaml
var templatesFS embed.FS

// Template represents a Nudgefile template with metadata.
type Template struct {
	Name        string
	Description string
	Content     []byte
}

var templateDescriptions = map[string]string{
	"minimal": "Local release manifest with file preferences",
	"remote":  "Manifest served over HTTP by nudge serve",
	"full":    "Every option with its default",
}

// List returns all available template names sorted alphabetically.
func List() []string {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}

	sort.Strings(names)
	return names
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	content, err := templatesFS.ReadFile(name + ".yaml")
	if err != nil {
		if pathErr, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("template '%s' not found: %w", name, pathErr)
		}
		return nil, fmt.Errorf("failed to read template '%s': %w", name, err)
	}

	return &Template{
		Name:        name,
		Description: GetDescription(name),
		Content:     content,
	}, nil
}

// GetDescription returns the description for a template.
func GetDescription(name string) string {
	if desc, ok := templateDescriptions[name]; ok {
		return desc
	}
	return "Custom template"
}
