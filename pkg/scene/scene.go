// Package scene builds the final node graph of an assembled character.
package scene

import (
	"github.com/Faultbox/vf3-assembler/pkg/connector"
	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/math"
	"github.com/Faultbox/vf3-assembler/pkg/mesh"
	"github.com/Faultbox/vf3-assembler/pkg/occupancy"
	"github.com/Faultbox/vf3-assembler/pkg/skeleton"
)

// RootName is the name of the synthetic node above the skeleton root.
const RootName = "Armature"

const unit = "scene"

// MeshInstance is an active mesh placed under its owning bone.
type MeshInstance struct {
	ID        string
	Type      mesh.ResourceType
	Mesh      *mesh.Mesh // Nil when no mesh source was supplied
	Positions []math.Vec3
	Layer     int
	Source    string // Descriptor block the attachment came from
}

// Node is one node of the scene graph.
type Node struct {
	Name        string
	Parent      *Node
	Children    []*Node
	Bone        *skeleton.Bone // Nil for the Armature node
	World       math.Mat4
	InverseBind math.Mat4
	Meshes      []MeshInstance
	Connectors  []connector.Result
}

// Model is an assembled character. It is not modified after Assemble returns.
type Model struct {
	Root     *Node
	Skeleton *skeleton.Skeleton
	nodes    map[string]*Node
	meshes   int
	conns    int
}

// Node returns the named node.
func (m *Model) Node(name string) (*Node, bool) {
	n, ok := m.nodes[name]
	return n, ok
}

// MeshCount returns the number of placed meshes.
func (m *Model) MeshCount() int {
	return m.meshes
}

// ConnectorCount returns the number of placed connectors.
func (m *Model) ConnectorCount() int {
	return m.conns
}

// Walk visits nodes depth-first, parents before children. Returning false
// from fn skips the node's children.
func (m *Model) Walk(fn func(*Node) bool) {
	var visit func(n *Node)
	visit = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(m.Root)
}

// Assemble places active attachments and connectors under their owning
// bones. Meshes are moved to world space by their bone's world position.
// A nil mesh source places attachments without geometry.
func Assemble(skel *skeleton.Skeleton, active []occupancy.Entry, meshes mesh.Source, connectors []connector.Result) (*Model, []diag.Warning) {
	var warnings []diag.Warning

	root := &Node{Name: RootName, World: math.Identity(), InverseBind: math.Identity()}
	model := &Model{
		Root:     root,
		Skeleton: skel,
		nodes:    map[string]*Node{RootName: root},
	}

	for _, b := range skel.Order() {
		parent := root
		if b.Parent != "" {
			parent = model.nodes[b.Parent]
		}
		n := &Node{
			Name:        b.Name,
			Parent:      parent,
			Bone:        b,
			World:       b.World,
			InverseBind: b.InverseBind,
		}
		parent.Children = append(parent.Children, n)
		model.nodes[b.Name] = n
	}

	for _, e := range active {
		att := e.Attachment
		bone, ok := skel.Bone(att.Bone)
		if !ok {
			warnings = append(warnings, diag.New(diag.ErrUnresolvedBoneReference, att.Source, att.Line, "mesh %s attached to unknown bone %s", att.Mesh, att.Bone))
			continue
		}

		inst := MeshInstance{ID: att.Mesh, Layer: e.Owner.Layer, Source: att.Source}
		if meshes != nil {
			m, ok := meshes.Mesh(att.Mesh)
			if !ok {
				warnings = append(warnings, diag.New(diag.ErrUnresolvedReference, att.Source, att.Line, "mesh %s not found", att.Mesh))
				continue
			}
			inst.Mesh = m
			inst.Positions = WorldPositions(m, bone)
		}
		inst.Type = mesh.Classify(inst.Mesh, att.Bone, e.Owner.Layer > 0)

		n := model.nodes[att.Bone]
		n.Meshes = append(n.Meshes, inst)
		model.meshes++
	}

	for _, c := range connectors {
		n, ok := model.nodes[c.Owner]
		if !ok || c.Owner == RootName {
			warnings = append(warnings, diag.New(diag.ErrUnresolvedBoneReference, unit, 0, "connector %s owner %q not in skeleton", c.Source, c.Owner))
			continue
		}
		n.Connectors = append(n.Connectors, c)
		model.conns++
	}

	return model, warnings
}

// WorldPositions returns mesh positions offset by the bone's world position.
func WorldPositions(m *mesh.Mesh, bone *skeleton.Bone) []math.Vec3 {
	out := make([]math.Vec3, len(m.Positions))
	for i, p := range m.Positions {
		out[i] = bone.World.TransformVec3(p)
	}
	return out
}
