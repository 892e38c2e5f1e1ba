package formats

import (
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/math"
)

// Channel is the state of one rotation channel flag.
type Channel uint8

const (
	ChannelOff Channel = iota
	ChannelActive
	ChannelInverted
)

// String returns a human-readable channel state.
func (c Channel) String() string {
	switch c {
	case ChannelActive:
		return "active"
	case ChannelInverted:
		return "inverted"
	default:
		return "off"
	}
}

// RotationFlags records which rotation channels a bone uses.
// Flags are preserved as metadata and never applied to transforms.
type RotationFlags struct {
	Heading Channel
	Pitch   Channel
	Bank    Channel
	Raw     string // Original flag field
}

// ParseRotationFlags parses a flag field such as "HPB" or "H-PB".
// A '-' inverts the channel letter that follows it.
func ParseRotationFlags(s string) RotationFlags {
	f := RotationFlags{Raw: strings.TrimSpace(s)}
	invert := false
	for _, r := range f.Raw {
		state := ChannelActive
		if invert {
			state = ChannelInverted
		}
		switch r {
		case '-':
			invert = true
			continue
		case 'H', 'h':
			f.Heading = state
		case 'P', 'p':
			f.Pitch = state
		case 'B', 'b':
			f.Bank = state
		}
		invert = false
	}
	return f
}

// Bone is one `<frame>` entry.
type Bone struct {
	Name        string
	Parent      string // Empty for the root
	Translation math.Vec3
	Rotation    math.Vec3 // Metadata only
	Scale       math.Vec3
	Flags       RotationFlags
	Line        int
}

// Frame parses the `<frame>` block.
// Missing or garbled tuples fall back to zero translation/rotation and unit scale.
func (d *Descriptor) Frame() ([]Bone, []diag.Warning) {
	b, ok := d.Blocks[BlockFrame]
	if !ok {
		return nil, []diag.Warning{diag.New(diag.ErrParseFormat, d.Name, 0, "missing <frame> block")}
	}
	unit := d.unit(BlockFrame)

	var bones []Bone
	var warnings []diag.Warning
	for _, ln := range b.Lines {
		if strings.HasPrefix(ln.Text, "class:") {
			continue
		}
		parts := strings.Split(ln.Text, ":")
		if len(parts) < 3 {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "frame line has %d fields, need at least 3", len(parts)))
			continue
		}

		bone := Bone{
			Name:   strings.TrimSpace(parts[0]),
			Parent: strings.TrimSpace(parts[1]),
			Scale:  math.One,
			Line:   ln.Num,
		}
		if bone.Name == "" {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "frame line has empty bone name"))
			continue
		}

		if t, err := ParseVec3(parts[2]); err == nil {
			bone.Translation = t
		} else {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "bone %s translation: %v", bone.Name, err))
		}
		if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
			if r, err := ParseVec3(parts[3]); err == nil {
				bone.Rotation = r
			} else {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "bone %s rotation: %v", bone.Name, err))
			}
		}
		if len(parts) > 4 {
			bone.Flags = ParseRotationFlags(parts[4])
		}
		if len(parts) > 5 && strings.TrimSpace(parts[5]) != "" {
			if s, err := ParseVec3(parts[5]); err == nil {
				bone.Scale = s
			} else {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "bone %s scale: %v", bone.Name, err))
			}
		}
		bones = append(bones, bone)
	}
	return bones, warnings
}
