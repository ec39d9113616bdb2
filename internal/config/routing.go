package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecialtyRoute binds a specialty tag to the group mentioned on dispatch.
type SpecialtyRoute struct {
	Tag         string `yaml:"tag"`
	Mention     string `yaml:"mention"`
	Description string `yaml:"description,omitempty"`
}

// RoutingTable maps specialty tags to mention groups. Tickets with an
// unknown or empty tag resolve to the default tag, which notifies the
// broader default group.
type RoutingTable struct {
	DefaultTag     string           `yaml:"default_tag"`
	DefaultMention string           `yaml:"default_mention"`
	Specialties    []SpecialtyRoute `yaml:"specialties"`

	byTag map[string]SpecialtyRoute
}

// DefaultRouting returns the table used when no routing file is configured.
func DefaultRouting() *RoutingTable {
	table := &RoutingTable{
		DefaultTag:     "general",
		DefaultMention: "helpers",
	}
	table.index()
	return table
}

// LoadRouting reads a routing table from a YAML file. A missing file yields
// the default table.
func LoadRouting(path string) (*RoutingTable, error) {
	if path == "" {
		return DefaultRouting(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRouting(), nil
		}
		return nil, fmt.Errorf("read routing file: %w", err)
	}
	var table RoutingTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse routing file: %w", err)
	}
	if table.DefaultTag == "" {
		table.DefaultTag = "general"
	}
	if table.DefaultMention == "" {
		table.DefaultMention = "helpers"
	}
	table.index()
	return &table, nil
}

func (t *RoutingTable) index() {
	t.byTag = make(map[string]SpecialtyRoute, len(t.Specialties))
	for _, route := range t.Specialties {
		t.byTag[strings.ToLower(route.Tag)] = route
	}
}

// Resolve normalizes a requested tag, falling back to the default tag.
func (t *RoutingTable) Resolve(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return t.DefaultTag
	}
	if _, ok := t.byTag[tag]; ok {
		return tag
	}
	return t.DefaultTag
}

// Mention returns the group to notify for a tag.
func (t *RoutingTable) Mention(tag string) string {
	if route, ok := t.byTag[strings.ToLower(tag)]; ok && route.Mention != "" {
		return route.Mention
	}
	return t.DefaultMention
}

// Known reports whether the tag has an explicit route.
func (t *RoutingTable) Known(tag string) bool {
	_, ok := t.byTag[strings.ToLower(strings.TrimSpace(tag))]
	return ok
}
