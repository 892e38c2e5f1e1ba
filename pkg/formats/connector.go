package formats

import (
	"strconv"
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/math"
)

// ConnectorVertex is one DynamicVisual vertex. Positions are offsets in the
// local space of Bone; the synthesizer picks one of the two candidates.
type ConnectorVertex struct {
	Bone      string
	Index     int
	Primary   math.Vec3
	Secondary math.Vec3
	UV        math.Vec2
	HasUV     bool
	Flags     string // Bone-type flags, kept raw
	Line      int
}

// ConnectorFace is a triangle or quad referencing vertices by position.
type ConnectorFace struct {
	Indices  []int
	Material int
	Line     int
}

// Material is one `(r,g,b,a):...:texture` line.
type Material struct {
	Color   [4]float32
	Texture string
	Raw     string
}

// ConnectorBlock is the seam geometry found in a visual part block.
type ConnectorBlock struct {
	Source    string // "<descriptor>:<block>"
	Hint      string // Resource-type hint derived from the block name
	Vertices  []ConnectorVertex
	Faces     []ConnectorFace
	Materials []Material
}

type section int

const (
	sectionNone section = iota
	sectionVertices
	sectionMaterials
	sectionFaces
)

// Connector parses the DynamicVisual, Material and FaceArray sections of a
// block. It returns nil if the block has no DynamicVisual section.
func (d *Descriptor) Connector(name string) (*ConnectorBlock, []diag.Warning) {
	b, ok := d.Blocks[name]
	if !ok {
		return nil, nil
	}
	unit := d.unit(name)

	cb := &ConnectorBlock{
		Source: unit,
		Hint:   strings.TrimSuffix(strings.ToLower(name), "_vp"),
	}
	var warnings []diag.Warning
	found := false
	mode := sectionNone

	for _, ln := range b.Lines {
		switch ln.Text {
		case SectionDynamicVisual:
			mode = sectionVertices
			found = true
			continue
		case SectionMaterial:
			mode = sectionMaterials
			continue
		case SectionFaceArray:
			mode = sectionFaces
			continue
		}

		switch mode {
		case sectionVertices:
			v, err := parseConnectorVertex(ln)
			if err != "" {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "%s", err))
				continue
			}
			cb.Vertices = append(cb.Vertices, v)
		case sectionMaterials:
			m, ok := parseMaterial(ln.Text)
			if !ok {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "malformed material %q", ln.Text))
				continue
			}
			cb.Materials = append(cb.Materials, m)
		case sectionFaces:
			f, ok := parseFace(ln)
			if !ok {
				warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "malformed face %q", ln.Text))
				continue
			}
			cb.Faces = append(cb.Faces, f)
		}
	}

	if !found {
		return nil, warnings
	}

	// Drop faces that reference missing vertices
	faces := cb.Faces[:0]
	for _, f := range cb.Faces {
		valid := true
		for _, idx := range f.Indices {
			if idx < 0 || idx >= len(cb.Vertices) {
				valid = false
				break
			}
		}
		if !valid {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, f.Line, "face references vertex outside 0..%d", len(cb.Vertices)-1))
			continue
		}
		faces = append(faces, f)
	}
	cb.Faces = faces
	return cb, warnings
}

// parseConnectorVertex picks the line variant by counting ':' separators.
func parseConnectorVertex(ln Line) (ConnectorVertex, string) {
	parts := strings.Split(ln.Text, ":")
	v := ConnectorVertex{Bone: strings.TrimSpace(parts[0]), Line: ln.Num}
	colons := len(parts) - 1

	if v.Bone == "" {
		return v, "vertex has empty bone name"
	}
	if colons != 1 && colons < 3 {
		return v, "vertex line has " + strconv.Itoa(colons) + " separators"
	}

	idx, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return v, "vertex index " + strconv.Quote(parts[1]) + " is not an integer"
	}
	v.Index = idx
	if colons == 1 {
		return v, ""
	}

	if v.Primary, err = ParseVec3(parts[2]); err != nil {
		return v, "primary position: " + err.Error()
	}
	if v.Secondary, err = ParseVec3(parts[3]); err != nil {
		return v, "secondary position: " + err.Error()
	}

	rest := parts[4:]
	if len(rest) > 0 && strings.HasPrefix(strings.TrimSpace(rest[0]), "(") {
		uv, err := ParseVec2(rest[0])
		if err != nil {
			return v, "uv: " + err.Error()
		}
		v.UV = uv
		v.HasUV = true
		rest = rest[1:]
	}
	if len(rest) > 0 {
		v.Flags = strings.TrimSpace(strings.Join(rest, ":"))
	}
	return v, ""
}

func parseMaterial(s string) (Material, bool) {
	m := Material{Raw: s}
	if !strings.HasPrefix(s, "(") {
		return m, false
	}
	color, rest, _ := strings.Cut(s, ")")
	f, err := parseFloats(color+")", 4)
	if err != nil {
		return m, false
	}
	copy(m.Color[:], f)
	for _, field := range strings.Split(rest, ":") {
		if t := strings.TrimSpace(field); t != "" {
			m.Texture = t
		}
	}
	return m, true
}

func parseFace(ln Line) (ConnectorFace, bool) {
	idx, mat, ok := strings.Cut(ln.Text, ":")
	if !ok {
		return ConnectorFace{}, false
	}
	items := strings.Split(idx, ",")
	if len(items) != 3 && len(items) != 4 {
		return ConnectorFace{}, false
	}
	f := ConnectorFace{Indices: make([]int, len(items)), Line: ln.Num}
	for i, item := range items {
		n, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			return ConnectorFace{}, false
		}
		f.Indices[i] = n
	}
	m, err := strconv.Atoi(strings.TrimSpace(mat))
	if err != nil {
		return ConnectorFace{}, false
	}
	f.Material = m
	return f, true
}
