package formats

import (
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/math"
)

// Connector section headers.
const (
	SectionDynamicVisual = "DynamicVisual:"
	SectionMaterial      = "Material:"
	SectionFaceArray     = "FaceArray:"
)

func isSectionHeader(s string) bool {
	return s == SectionDynamicVisual || s == SectionMaterial || s == SectionFaceArray
}

// ChildFrame is an extra node inserted under an existing bone.
type ChildFrame struct {
	Name   string
	Parent string
	Offset math.Vec3 // Local offset, scaled by the parent's world scale
}

// Attachment is one mesh binding line of a visual part block.
type Attachment struct {
	Bone  string      // Owning bone, or the child frame name
	Ref   string      // Mesh or block identifier
	Child *ChildFrame // Non-nil for `child:parent:(dx,dy,dz):ref` lines
	Line  int
}

// Attachments parses the attachment lines of a block.
// Parsing stops at the first connector section header.
func (d *Descriptor) Attachments(name string) ([]Attachment, []diag.Warning) {
	b, ok := d.Blocks[name]
	if !ok {
		return nil, nil
	}
	unit := d.unit(name)

	var out []Attachment
	var warnings []diag.Warning
	for _, ln := range b.Lines {
		s := ln.Text
		if isSectionHeader(s) {
			break
		}
		if strings.HasPrefix(s, "class:") || isPayload(s) {
			continue
		}
		if !strings.Contains(s, ":") {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "unrecognised attachment line %q", s))
			continue
		}

		parts := strings.Split(s, ":")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case len(parts) == 2:
			// bone:ref
			if parts[0] == "" || parts[1] == "" || isPayload(parts[1]) {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "malformed attachment %q", s))
				continue
			}
			out = append(out, Attachment{Bone: parts[0], Ref: parts[1], Line: ln.Num})

		case len(parts) >= 4 && parts[1] == "" && parts[2] == "":
			// bone:::ref
			if parts[0] == "" || parts[3] == "" || isPayload(parts[3]) {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "malformed attachment %q", s))
				continue
			}
			out = append(out, Attachment{Bone: parts[0], Ref: parts[3], Line: ln.Num})

		case len(parts) >= 4 && strings.HasPrefix(parts[2], "("):
			// child:parent:(dx,dy,dz):ref
			if parts[0] == "" || parts[1] == "" || parts[3] == "" || isPayload(parts[3]) {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "malformed child frame %q", s))
				continue
			}
			offset, err := ParseVec3(parts[2])
			if err != nil {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "child frame %s offset: %v", parts[0], err))
			}
			out = append(out, Attachment{
				Bone:  parts[0],
				Ref:   parts[3],
				Child: &ChildFrame{Name: parts[0], Parent: parts[1], Offset: offset},
				Line:  ln.Num,
			})

		default:
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "unrecognised attachment line %q", s))
		}
	}
	return out, warnings
}
