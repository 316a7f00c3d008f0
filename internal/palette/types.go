package palette

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Surface holds the non-node colours of a graph drawing
type Surface struct {
	Background string `yaml:"background" json:"background"`
	Link       string `yaml:"link" json:"link"`
	LinkActive string `yaml:"link_active" json:"link_active"`
	Ring       string `yaml:"ring" json:"ring"`
	Label      string `yaml:"label" json:"label"`
}

// GroupColor is one legend entry
type GroupColor struct {
	Group string `json:"group"`
	Color string `json:"color"`
}

// File is the decoded palette YAML
type File struct {
	Default string       `yaml:"default" json:"default"`
	Surface Surface      `yaml:"surface" json:"surface"`
	Groups  []GroupColor `yaml:"-" json:"groups"` // YAML order, populated by UnmarshalYAML
}

// UnmarshalYAML keeps the group order from the file so the legend is stable.
func (f *File) UnmarshalYAML(node *yaml.Node) error {
	type plain struct {
		Default string            `yaml:"default"`
		Surface Surface           `yaml:"surface"`
		Groups  map[string]string `yaml:"groups"`
	}
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	f.Default = p.Default
	f.Surface = p.Surface

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "groups" {
			continue
		}
		groups := node.Content[i+1]
		if groups.Kind != yaml.MappingNode {
			return fmt.Errorf("groups: expected mapping, got kind %d", groups.Kind)
		}
		for j := 0; j+1 < len(groups.Content); j += 2 {
			name := groups.Content[j].Value
			f.Groups = append(f.Groups, GroupColor{Group: name, Color: p.Groups[name]})
		}
		break
	}
	return nil
}
