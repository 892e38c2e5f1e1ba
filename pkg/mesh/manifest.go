package mesh

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/vf3-assembler/pkg/math"
)

// Manifest errors.
var (
	ErrInvalidManifest = errors.New("invalid mesh manifest")
)

// manifestFile is the YAML layout of a pre-decoded mesh manifest.
type manifestFile struct {
	Meshes []manifestMesh `yaml:"meshes"`
}

type manifestMesh struct {
	ID            string       `yaml:"id"`
	Type          string       `yaml:"type,omitempty"`
	Positions     [][3]float32 `yaml:"positions"`
	Normals       [][3]float32 `yaml:"normals,omitempty"`
	UVs           [][2]float32 `yaml:"uvs,omitempty"`
	Faces         [][3]int     `yaml:"faces,omitempty"`
	FaceMaterials []int        `yaml:"face_materials,omitempty"`
	Materials     []string     `yaml:"materials,omitempty"`
}

// LoadManifest reads a YAML mesh manifest from disk.
func LoadManifest(path string) (MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a YAML mesh manifest.
func ParseManifest(data []byte) (MemorySource, error) {
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	src := make(MemorySource, len(mf.Meshes))
	for i, mm := range mf.Meshes {
		if mm.ID == "" {
			return nil, fmt.Errorf("%w: mesh %d has no id", ErrInvalidManifest, i)
		}
		t := ResourceType(mm.Type)
		if t != TypeUnknown && !t.Valid() {
			return nil, fmt.Errorf("%w: mesh %s has unknown type %q", ErrInvalidManifest, mm.ID, mm.Type)
		}

		m := &Mesh{
			ID:            mm.ID,
			Type:          t,
			Positions:     toVec3s(mm.Positions),
			Normals:       toVec3s(mm.Normals),
			FaceMaterials: mm.FaceMaterials,
			Materials:     mm.Materials,
			Faces:         mm.Faces,
		}
		for _, uv := range mm.UVs {
			m.UVs = append(m.UVs, math.Vec2{X: uv[0], Y: uv[1]})
		}
		for _, f := range m.Faces {
			for _, idx := range f {
				if idx < 0 || idx >= len(m.Positions) {
					return nil, fmt.Errorf("%w: mesh %s face index %d out of range", ErrInvalidManifest, mm.ID, idx)
				}
			}
		}
		src.Add(m)
	}
	return src, nil
}

func toVec3s(in [][3]float32) []math.Vec3 {
	if len(in) == 0 {
		return nil
	}
	out := make([]math.Vec3, len(in))
	for i, p := range in {
		out[i] = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}
	return out
}
