// Package palette maps entity groups to the colours used when drawing
// relationship graphs.
package palette

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry resolves group colours. It is read-only after construction.
type Registry struct {
	file   File
	colors map[string]string
}

// NewRegistry loads the embedded palette
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/palette.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read palette: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from palette YAML
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal palette: %w", err)
	}
	if f.Default == "" {
		return nil, fmt.Errorf("palette has no default colour")
	}

	r := &Registry{file: f, colors: make(map[string]string, len(f.Groups))}
	for _, g := range f.Groups {
		r.colors[strings.ToLower(g.Group)] = g.Color
	}
	return r, nil
}

// MustDefault returns the embedded palette and panics if it is malformed.
func MustDefault() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Color returns the colour of a group; unknown groups get the default.
func (r *Registry) Color(group string) string {
	if c, ok := r.colors[strings.ToLower(group)]; ok && c != "" {
		return c
	}
	return r.file.Default
}

// Default returns the fallback colour
func (r *Registry) Default() string {
	return r.file.Default
}

// Surface returns the background, link, ring and label colours
func (r *Registry) Surface() Surface {
	return r.file.Surface
}

// Legend returns the known groups in file order
func (r *Registry) Legend() []GroupColor {
	return append([]GroupColor(nil), r.file.Groups...)
}
