// Package costume expands the base skin and selected costume items into
// ordered layers of attachment contributions.
package costume

import (
	"fmt"
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
)

// DefaultMaxDepth is the default limit on nested block references.
const DefaultMaxDepth = 4

// RefKind tags how an attachment reference resolves.
type RefKind int

const (
	DirectMesh RefKind = iota
	NamedBlock
	ChildFrame
)

// String returns the kind name.
func (k RefKind) String() string {
	switch k {
	case NamedBlock:
		return "block"
	case ChildFrame:
		return "child"
	default:
		return "mesh"
	}
}

// Ref is an attachment reference classified against the reachable blocks.
type Ref struct {
	Kind  RefKind
	Owner *formats.Descriptor // Block owner, set for NamedBlock
	Block string
}

// MeshAttachment is a fully expanded mesh binding.
type MeshAttachment struct {
	Bone   string  // Owning bone or child frame
	Mesh   string  // Namespaced mesh identifier, e.g. "ciel.head"
	Kind   RefKind // DirectMesh or ChildFrame; named blocks are expanded away
	Child  *formats.ChildFrame
	Source string // "<descriptor>:<block>" the line came from
	Line   int
}

// Contribution is one skin entry or one costume item entry with everything
// its reference expands to.
type Contribution struct {
	Layer       int // 0 is the base skin
	Index       int // Entry index within the layer
	Ref         string
	Slots       formats.SlotVector
	Attachments []MeshAttachment
	Connectors  []*formats.ConnectorBlock
	ChildFrames []formats.ChildFrame
}

// ID returns a stable human-readable identifier.
func (c *Contribution) ID() string {
	return fmt.Sprintf("L%d/%d:%s", c.Layer, c.Index, c.Ref)
}

// Bones returns the distinct attachment bones in declaration order.
func (c *Contribution) Bones() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range c.Attachments {
		if !seen[a.Bone] {
			seen[a.Bone] = true
			out = append(out, a.Bone)
		}
	}
	return out
}

// Layers is the expanded base skin plus costume layers.
type Layers struct {
	Descriptor    string
	Items         []string // Selected costume items, layer i+1 is Items[i]
	Contributions []*Contribution
}

// LayerCount returns the number of layers including the base skin.
func (l *Layers) LayerCount() int {
	return len(l.Items) + 1
}

// ChildFrames returns the child frames of all contributions in order.
func (l *Layers) ChildFrames() []formats.ChildFrame {
	var out []formats.ChildFrame
	for _, c := range l.Contributions {
		out = append(out, c.ChildFrames...)
	}
	return out
}

// Options configures expansion.
type Options struct {
	MaxDepth int
}

type expander struct {
	root     *formats.Descriptor
	lib      formats.Library
	maxDepth int
	parsed   map[string]bool
	warnings []diag.Warning
}

// Expand builds the layers for a descriptor. A nil selection means no
// costume; callers wanting the default costume pass DefaultCostume().
func Expand(desc *formats.Descriptor, lib formats.Library, selection []string, opts Options) (*Layers, []diag.Warning) {
	e := &expander{
		root:     desc,
		lib:      lib,
		maxDepth: opts.MaxDepth,
		parsed:   make(map[string]bool),
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxDepth
	}

	layers := &Layers{Descriptor: desc.Name, Items: selection}

	// Base skin
	skin, ws := desc.Skin()
	e.warnings = append(e.warnings, ws...)
	if !desc.HasBlock(formats.BlockSkin) {
		e.warn(diag.ErrUnresolvedReference, desc.Name, 0, "missing <skin> block")
	}
	for i, entry := range skin {
		c := &Contribution{Layer: 0, Index: i, Ref: entry.Ref, Slots: entry.Slots}
		e.expandEntry(c, desc, entry, formats.BlockSkin, true)
		layers.Contributions = append(layers.Contributions, c)
	}

	// Costume layers
	for li, item := range selection {
		owner, name, ok := e.resolveBlock(desc, item)
		if !ok || !owner.IsCostumeItem(name) {
			e.warn(diag.ErrUnresolvedReference, desc.Name+":"+formats.BlockDefaultCos, 0, "unknown costume item %q", item)
			continue
		}
		entries, ws, _ := owner.CostumeItem(name)
		e.note(owner, name, ws)
		for i, entry := range entries {
			c := &Contribution{Layer: li + 1, Index: i, Ref: entry.Ref, Slots: entry.Slots}
			e.expandEntry(c, owner, entry, name, false)
			layers.Contributions = append(layers.Contributions, c)
		}
	}

	return layers, e.warnings
}

func (e *expander) warn(sentinel error, unit string, line int, format string, args ...any) {
	e.warnings = append(e.warnings, diag.New(sentinel, unit, line, format, args...))
}

// note records parse warnings once per block.
func (e *expander) note(d *formats.Descriptor, block string, ws []diag.Warning) {
	key := d.Name + ":" + block
	if e.parsed[key] {
		return
	}
	e.parsed[key] = true
	e.warnings = append(e.warnings, ws...)
}

// resolveBlock finds the block a `prefix.name` identifier refers to, looking
// in the context descriptor first and then in the library.
func (e *expander) resolveBlock(ctx *formats.Descriptor, ref string) (*formats.Descriptor, string, bool) {
	prefix, item := formats.SplitRef(ref)
	if item == "" {
		return nil, "", false
	}
	if ctx.HasBlock(item) {
		return ctx, item, true
	}
	if prefix == "" || prefix == ctx.Name || e.lib == nil {
		return nil, "", false
	}
	other, ok := e.lib.Lookup(prefix)
	if !ok || !other.HasBlock(item) {
		return nil, "", false
	}
	return other, item, true
}

// knownPrefix reports whether a reference prefix names a reachable descriptor.
func (e *expander) knownPrefix(ctx *formats.Descriptor, prefix string) bool {
	if prefix == "" || prefix == ctx.Name || prefix == e.root.Name {
		return true
	}
	if e.lib == nil {
		return false
	}
	_, ok := e.lib.Lookup(prefix)
	return ok
}

func (e *expander) expandEntry(c *Contribution, ctx *formats.Descriptor, entry formats.SkinEntry, block string, skin bool) {
	unit := ctx.Name + ":" + block
	owner, name, ok := e.resolveBlock(ctx, entry.Ref)
	if !ok {
		prefix, item := formats.SplitRef(entry.Ref)
		if skin && item != "" && e.knownPrefix(ctx, prefix) {
			// A skin entry naming no block is a mesh on the bone of the same name
			c.Attachments = append(c.Attachments, MeshAttachment{
				Bone:   item,
				Mesh:   qualify(ctx, entry.Ref),
				Kind:   DirectMesh,
				Source: unit,
				Line:   entry.Line,
			})
			return
		}
		e.warn(diag.ErrUnresolvedReference, unit, entry.Line, "identifier %q names no block", entry.Ref)
		return
	}
	e.expandBlock(c, owner, name, []string{owner.Name + ":" + name})
}

func (e *expander) expandBlock(c *Contribution, d *formats.Descriptor, name string, path []string) {
	unit := d.Name + ":" + name

	atts, ws := d.Attachments(name)
	cb, cws := d.Connector(name)
	e.note(d, name, append(ws, cws...))
	if cb != nil {
		c.Connectors = append(c.Connectors, cb)
	}

	for _, att := range atts {
		ref := e.classify(d, name, att)
		switch ref.Kind {
		case NamedBlock:
			key := ref.Owner.Name + ":" + ref.Block
			if contains(path, key) {
				e.warn(diag.ErrCyclicIndirection, unit, att.Line, "block %s references itself through %s", key, strings.Join(path, " > "))
				continue
			}
			if len(path)+1 > e.maxDepth {
				e.warn(diag.ErrCyclicIndirection, unit, att.Line, "reference %q exceeds depth %d", att.Ref, e.maxDepth)
				continue
			}
			if att.Child != nil {
				c.ChildFrames = append(c.ChildFrames, *att.Child)
			}
			e.expandBlock(c, ref.Owner, ref.Block, append(path[:len(path):len(path)], key))

		case ChildFrame:
			child := *att.Child
			c.ChildFrames = append(c.ChildFrames, child)
			c.Attachments = append(c.Attachments, MeshAttachment{
				Bone:   att.Bone,
				Mesh:   qualify(d, att.Ref),
				Kind:   ChildFrame,
				Child:  &child,
				Source: unit,
				Line:   att.Line,
			})

		default:
			c.Attachments = append(c.Attachments, MeshAttachment{
				Bone:   att.Bone,
				Mesh:   qualify(d, att.Ref),
				Kind:   DirectMesh,
				Source: unit,
				Line:   att.Line,
			})
		}
	}
}

// classify tags an attachment line of block. A line naming the block it
// sits in is the block's own mesh.
func (e *expander) classify(d *formats.Descriptor, block string, att formats.Attachment) Ref {
	prefix, item := formats.SplitRef(att.Ref)
	if prefix == "" {
		prefix = d.Name
	}
	if item != block || prefix != d.Name {
		if owner, name, ok := e.resolveBlock(d, att.Ref); ok {
			return Ref{Kind: NamedBlock, Owner: owner, Block: name}
		}
	}
	if att.Child != nil {
		return Ref{Kind: ChildFrame}
	}
	return Ref{Kind: DirectMesh}
}

// qualify adds the descriptor namespace to references without one.
func qualify(d *formats.Descriptor, ref string) string {
	if strings.Contains(ref, ".") {
		return ref
	}
	return d.Name + "." + ref
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
