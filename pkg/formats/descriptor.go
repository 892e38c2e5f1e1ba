// Package formats provides parsers for VF3 character descriptor files.
package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/encoding"
)

// Descriptor format errors.
var (
	ErrEmptyDescriptor = errors.New("descriptor contains no blocks")
)

// Reserved block names.
const (
	BlockFrame      = "frame"
	BlockSkin       = "skin"
	BlockDefaultCos = "defaultcos"
)

// Line is one trimmed, non-empty line of a block.
type Line struct {
	Num  int    // 1-based line number in the source file
	Text string // Trimmed text
}

// Block is a named `<name>` ... `</>` section.
type Block struct {
	Name  string
	Start int // Line number of the opening tag
	Lines []Line
}

// Descriptor represents a parsed character descriptor.
type Descriptor struct {
	Name     string            // Lower-cased file stem, the namespace of `name.item` references
	Path     string            // Source path, empty for in-memory descriptors
	Blocks   map[string]*Block // Blocks by name
	Order    []string          // Block names in file order
	Warnings []diag.Warning    // Structural warnings found while splitting
}

// ParseDescriptor splits descriptor text into blocks.
// The data may be UTF-8 or Shift-JIS.
func ParseDescriptor(name string, data []byte) (*Descriptor, error) {
	d := &Descriptor{
		Name:   strings.ToLower(name),
		Blocks: make(map[string]*Block),
	}
	unit := d.Name

	var current *Block
	for i, raw := range strings.Split(encoding.DecodeText(data), "\n") {
		num := i + 1
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}

		// Closing tag
		if s == "</>" || strings.HasPrefix(s, "</") {
			if current == nil {
				d.Warnings = append(d.Warnings, diag.New(diag.ErrParseFormat, unit, num, "closing tag without open block"))
				continue
			}
			d.addBlock(current)
			current = nil
			continue
		}

		// Opening tag
		if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
			if current != nil {
				d.Warnings = append(d.Warnings, diag.New(diag.ErrParseFormat, unit, num, "block <%s> not closed before <%s>", current.Name, strings.Trim(s, "<>")))
				d.addBlock(current)
			}
			current = &Block{Name: strings.TrimSpace(strings.Trim(s, "<>")), Start: num}
			continue
		}

		if current != nil {
			current.Lines = append(current.Lines, Line{Num: num, Text: s})
		}
	}

	if current != nil {
		d.Warnings = append(d.Warnings, diag.New(diag.ErrParseFormat, unit, current.Start, "block <%s> not closed at end of file", current.Name))
		d.addBlock(current)
	}

	if len(d.Blocks) == 0 {
		return nil, fmt.Errorf("%s: %w", unit, ErrEmptyDescriptor)
	}
	return d, nil
}

// ParseDescriptorFile parses a descriptor file from disk.
// The descriptor name is the lower-cased file name without extension.
func ParseDescriptorFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d, err := ParseDescriptor(stem, data)
	if err != nil {
		return nil, err
	}
	d.Path = path
	return d, nil
}

func (d *Descriptor) addBlock(b *Block) {
	if prev, ok := d.Blocks[b.Name]; ok {
		d.Warnings = append(d.Warnings, diag.New(diag.ErrParseFormat, d.Name, b.Start, "duplicate block <%s> replaces the one at line %d", b.Name, prev.Start))
	} else {
		d.Order = append(d.Order, b.Name)
	}
	d.Blocks[b.Name] = b
}

// Block returns the named block.
func (d *Descriptor) Block(name string) (*Block, bool) {
	b, ok := d.Blocks[name]
	return b, ok
}

// HasBlock reports whether the descriptor has a block with the given name.
func (d *Descriptor) HasBlock(name string) bool {
	_, ok := d.Blocks[name]
	return ok
}

// unit returns the diagnostic unit name for a block.
func (d *Descriptor) unit(block string) string {
	return d.Name + ":" + block
}

// SplitRef splits a `prefix.item` reference. References without a prefix
// are returned with an empty prefix.
func SplitRef(ref string) (prefix, item string) {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return strings.ToLower(ref[:i]), ref[i+1:]
	}
	return "", ref
}
