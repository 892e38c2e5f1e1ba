// Package mesh defines the decoded polygon mesh handed to the assembler by an
// external mesh reader.
package mesh

import (
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/math"
)

// ResourceType classifies a mesh by the body region it covers.
type ResourceType string

const (
	TypeUnknown   ResourceType = ""
	TypeHead      ResourceType = "head"
	TypeBody      ResourceType = "body"
	TypeBreast    ResourceType = "breast"
	TypeArm       ResourceType = "arm"
	TypeHand      ResourceType = "hand"
	TypeWaist     ResourceType = "waist"
	TypeLeg       ResourceType = "leg"
	TypeFoot      ResourceType = "foot"
	TypeClothing  ResourceType = "clothing"
	TypeHair      ResourceType = "hair"
	TypeAccessory ResourceType = "accessory"
)

// Types lists every known resource type.
var Types = []ResourceType{
	TypeHead, TypeBody, TypeBreast, TypeArm, TypeHand, TypeWaist,
	TypeLeg, TypeFoot, TypeClothing, TypeHair, TypeAccessory,
}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ClassifyBone derives a resource type from a bone name such as "l_arm2" or
// "r_foot".
func ClassifyBone(bone string) ResourceType {
	name := strings.ToLower(bone)
	name = strings.TrimPrefix(name, "l_")
	name = strings.TrimPrefix(name, "r_")
	name = strings.TrimRight(name, "0123456789")

	switch name {
	case "head", "neck", "face":
		return TypeHead
	case "body", "chest", "spine":
		return TypeBody
	case "breast":
		return TypeBreast
	case "arm", "shoulder", "elbow":
		return TypeArm
	case "hand", "finger":
		return TypeHand
	case "waist", "hip":
		return TypeWaist
	case "leg", "knee", "thigh":
		return TypeLeg
	case "foot", "toe":
		return TypeFoot
	case "hair":
		return TypeHair
	}
	return TypeUnknown
}

// Classify returns the resource type of an attached mesh. Tagged meshes keep
// their tag; untagged base skin meshes are classified by their bone and
// untagged costume meshes count as clothing.
func Classify(m *Mesh, bone string, costume bool) ResourceType {
	if m != nil && m.Type != TypeUnknown {
		return m.Type
	}
	if costume {
		return TypeClothing
	}
	if t := ClassifyBone(bone); t != TypeUnknown {
		return t
	}
	return TypeAccessory
}

// Mesh is a decoded polygon mesh. Positions are in the local space of the
// bone the mesh is attached to.
type Mesh struct {
	ID            string
	Type          ResourceType
	Positions     []math.Vec3
	Normals       []math.Vec3
	UVs           []math.Vec2
	Faces         [][3]int
	FaceMaterials []int
	Materials     []string
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// Source supplies decoded meshes by identifier.
type Source interface {
	Mesh(id string) (*Mesh, bool)
}

// MemorySource is an in-memory Source keyed by lower-cased mesh ID.
type MemorySource map[string]*Mesh

// NewMemorySource creates a source from meshes.
func NewMemorySource(meshes ...*Mesh) MemorySource {
	src := make(MemorySource, len(meshes))
	for _, m := range meshes {
		src.Add(m)
	}
	return src
}

// Add registers a mesh, replacing any mesh with the same ID.
func (s MemorySource) Add(m *Mesh) {
	s[strings.ToLower(m.ID)] = m
}

// Mesh implements Source.
func (s MemorySource) Mesh(id string) (*Mesh, bool) {
	m, ok := s[strings.ToLower(id)]
	return m, ok
}
