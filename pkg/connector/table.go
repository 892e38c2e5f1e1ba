package connector

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/vf3-assembler/pkg/mesh"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Table errors.
var (
	ErrInvalidTable = errors.New("invalid connector table")
)

// Category is a snapping preference shared by a group of bones.
type Category struct {
	Prefer  []mesh.ResourceType `yaml:"prefer"`
	Outward string              `yaml:"outward,omitempty"` // "+y", "-x", ...; empty for none
}

// Table maps connector vertices to snapping preferences.
type Table struct {
	Default        string              `yaml:"default"`
	Categories     map[string]Category `yaml:"categories"`
	BoneCategories map[string]string   `yaml:"bones"`
}

// DefaultTable returns the built-in humanoid table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("connector: embedded defaults: %v", err))
	}
	return t
}

// ParseTable decodes and validates a YAML table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every referenced category and resource type exists.
func (t *Table) Validate() error {
	if _, ok := t.Categories[t.Default]; !ok {
		return fmt.Errorf("%w: default category %q not defined", ErrInvalidTable, t.Default)
	}
	for name, c := range t.Categories {
		for _, rt := range c.Prefer {
			if !rt.Valid() {
				return fmt.Errorf("%w: category %s prefers unknown type %q", ErrInvalidTable, name, rt)
			}
		}
		if _, _, err := parseAxis(c.Outward); err != nil {
			return fmt.Errorf("%w: category %s: %v", ErrInvalidTable, name, err)
		}
	}
	for bone, cat := range t.BoneCategories {
		if _, ok := t.Categories[cat]; !ok {
			return fmt.Errorf("%w: bone %s uses undefined category %q", ErrInvalidTable, bone, cat)
		}
	}
	return nil
}

// Override returns a copy of the table with extra categories and bone
// mappings applied on top.
func (t *Table) Override(categories map[string]Category, bones map[string]string) (*Table, error) {
	out := &Table{
		Default:        t.Default,
		Categories:     make(map[string]Category, len(t.Categories)+len(categories)),
		BoneCategories: make(map[string]string, len(t.BoneCategories)+len(bones)),
	}
	for k, v := range t.Categories {
		out.Categories[k] = v
	}
	for k, v := range categories {
		out.Categories[k] = v
	}
	for k, v := range t.BoneCategories {
		out.BoneCategories[k] = v
	}
	for k, v := range bones {
		out.BoneCategories[k] = v
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryFor picks the category of a vertex: by bone, then by the
// connector hint, then by the bone's resource type, then the default.
func (t *Table) CategoryFor(bone, hint string) (string, Category) {
	if name, ok := t.BoneCategories[bone]; ok {
		return name, t.Categories[name]
	}
	if c, ok := t.Categories[hint]; ok {
		return hint, c
	}
	if rt := mesh.ClassifyBone(bone); rt != mesh.TypeUnknown {
		if c, ok := t.Categories[string(rt)]; ok {
			return string(rt), c
		}
	}
	return t.Default, t.Categories[t.Default]
}

// parseAxis parses "+x", "-y", "z". Empty means no outward axis.
func parseAxis(s string) (axis int, sign float32, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return -1, 0, nil
	}
	sign = 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}
	switch s {
	case "x":
		return 0, sign, nil
	case "y":
		return 1, sign, nil
	case "z":
		return 2, sign, nil
	}
	return -1, 0, fmt.Errorf("bad outward axis %q", s)
}
