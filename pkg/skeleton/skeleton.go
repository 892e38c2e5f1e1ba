// Package skeleton builds the bone hierarchy of a character and computes
// world transforms.
package skeleton

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
	"github.com/Faultbox/vf3-assembler/pkg/math"
)

const unit = "skeleton"

// Bone is a node of the built skeleton.
type Bone struct {
	Name        string
	Parent      string // Empty for the root
	Translation math.Vec3
	Rotation    math.Vec3 // Metadata only
	Scale       math.Vec3
	Flags       formats.RotationFlags
	ChildFrame  bool // Inserted from an attachment line

	// Derived on every Build
	WorldPosition math.Vec3
	WorldScale    math.Vec3
	World         math.Mat4
	InverseBind   math.Mat4
	Depth         int

	decl     int
	children []string
}

// Skeleton is an immutable bone tree in parent-before-child order.
type Skeleton struct {
	bones  []*Bone
	byName map[string]*Bone
	root   *Bone
}

// Build creates a skeleton from frame bones and child frames.
// It fails with diag.ErrCyclicSkeleton when the frame bones do not form a tree.
func Build(bones []formats.Bone, frames []formats.ChildFrame) (*Skeleton, []diag.Warning, error) {
	var warnings []diag.Warning
	warn := func(sentinel error, line int, format string, args ...any) {
		warnings = append(warnings, diag.New(sentinel, unit, line, format, args...))
	}

	byName := make(map[string]*Bone, len(bones)+len(frames))
	var decl []*Bone

	// Frame bones
	for _, fb := range bones {
		if prev, ok := byName[fb.Name]; ok {
			warn(diag.ErrParseFormat, fb.Line, "duplicate bone %s, keeping declaration %d", fb.Name, prev.decl)
			continue
		}
		b := &Bone{
			Name:        fb.Name,
			Parent:      fb.Parent,
			Translation: fb.Translation,
			Rotation:    fb.Rotation,
			Scale:       fb.Scale,
			Flags:       fb.Flags,
			decl:        len(decl),
		}
		byName[b.Name] = b
		decl = append(decl, b)
	}

	// Child frames, deduplicated
	var pending []*Bone
	pendingByName := make(map[string]*Bone)
	for _, cf := range frames {
		if _, ok := byName[cf.Name]; ok {
			warn(diag.ErrParseFormat, 0, "child frame %s collides with a frame bone", cf.Name)
			continue
		}
		if prev, ok := pendingByName[cf.Name]; ok {
			if prev.Parent != cf.Parent || prev.Translation != cf.Offset {
				warn(diag.ErrParseFormat, 0, "conflicting child frame %s under %s, keeping the one under %s", cf.Name, cf.Parent, prev.Parent)
			}
			continue
		}
		b := &Bone{
			Name:        cf.Name,
			Parent:      cf.Parent,
			Translation: cf.Offset,
			Scale:       math.One,
			ChildFrame:  true,
		}
		pendingByName[cf.Name] = b
		pending = append(pending, b)
	}

	// Insert child frames whose parent chain reaches the frame
	for progress := true; progress && len(pending) > 0; {
		progress = false
		rest := pending[:0]
		for _, b := range pending {
			if _, ok := byName[b.Parent]; ok {
				b.decl = len(decl)
				byName[b.Name] = b
				decl = append(decl, b)
				progress = true
				continue
			}
			rest = append(rest, b)
		}
		pending = rest
	}
	for _, b := range pending {
		warn(diag.ErrUnresolvedReference, 0, "child frame %s has unknown parent %s", b.Name, b.Parent)
	}

	if len(decl) == 0 {
		return nil, warnings, fmt.Errorf("no bones: %w", diag.ErrCyclicSkeleton)
	}

	// Roots
	var roots []*Bone
	for _, b := range decl {
		if b.Parent == "" {
			roots = append(roots, b)
		}
	}
	if len(roots) == 0 {
		return nil, warnings, fmt.Errorf("no root bone: %w", diag.ErrCyclicSkeleton)
	}
	for _, extra := range roots[1:] {
		warn(diag.ErrAmbiguousRoot, 0, "bone %s re-parented under root %s", extra.Name, roots[0].Name)
		extra.Parent = roots[0].Name
	}

	// Parent links
	for _, b := range decl {
		if b.Parent == "" {
			continue
		}
		parent, ok := byName[b.Parent]
		if !ok {
			return nil, warnings, fmt.Errorf("bone %s has unknown parent %s: %w", b.Name, b.Parent, diag.ErrCyclicSkeleton)
		}
		parent.children = append(parent.children, b.Name)
	}

	order := topoOrder(roots[0], byName)
	if len(order) != len(decl) {
		var stuck []string
		seen := make(map[string]bool, len(order))
		for _, b := range order {
			seen[b.Name] = true
		}
		for _, b := range decl {
			if !seen[b.Name] {
				stuck = append(stuck, b.Name)
			}
		}
		return nil, warnings, fmt.Errorf("bones %s do not reach the root: %w", strings.Join(stuck, ", "), diag.ErrCyclicSkeleton)
	}

	s := &Skeleton{bones: order, byName: byName, root: roots[0]}
	s.computeWorld()
	return s, warnings, nil
}

// topoOrder orders bones parent-first. Among bones whose parent is placed,
// declaration order decides.
func topoOrder(root *Bone, byName map[string]*Bone) []*Bone {
	var order []*Bone
	ready := []*Bone{root}
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].decl < ready[j].decl })
		b := ready[0]
		ready = ready[1:]
		order = append(order, b)
		for _, name := range b.children {
			ready = append(ready, byName[name])
		}
	}
	return order
}

// computeWorld accumulates translation and scale along the root path.
// Rotation is not applied.
func (s *Skeleton) computeWorld() {
	for _, b := range s.bones {
		if b.Parent == "" {
			b.WorldScale = b.Scale
			b.WorldPosition = b.Translation
			b.World = math.TranslateVec3(b.Translation)
			b.Depth = 0
		} else {
			parent := s.byName[b.Parent]
			offset := b.Translation.Mul(parent.WorldScale)
			b.WorldScale = parent.WorldScale.Mul(b.Scale)
			b.World = parent.World.Mul(math.TranslateVec3(offset))
			b.WorldPosition = b.World.Translation()
			b.Depth = parent.Depth + 1
		}
		b.InverseBind = b.World.Inverse()
	}
}

// Bone returns the named bone.
func (s *Skeleton) Bone(name string) (*Bone, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// Has reports whether the skeleton contains the named bone.
func (s *Skeleton) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Root returns the root bone.
func (s *Skeleton) Root() *Bone {
	return s.root
}

// Order returns all bones parent-before-child.
func (s *Skeleton) Order() []*Bone {
	return s.bones
}

// Len returns the number of bones.
func (s *Skeleton) Len() int {
	return len(s.bones)
}

// WorldPosition returns the world position of the named bone.
func (s *Skeleton) WorldPosition(name string) (math.Vec3, bool) {
	b, ok := s.byName[name]
	if !ok {
		return math.Vec3{}, false
	}
	return b.WorldPosition, true
}

// Children returns the names of the direct children of a bone in
// declaration order.
func (s *Skeleton) Children(name string) []string {
	b, ok := s.byName[name]
	if !ok {
		return nil
	}
	return b.children
}

// Depth returns the number of edges between the bone and the root, or -1.
func (s *Skeleton) Depth(name string) int {
	b, ok := s.byName[name]
	if !ok {
		return -1
	}
	return b.Depth
}
