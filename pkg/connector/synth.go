// Package connector synthesizes seam geometry between body and costume
// meshes by snapping connector vertices onto nearby mesh vertices.
package connector

import (
	gomath "math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
	"github.com/Faultbox/vf3-assembler/pkg/math"
	"github.com/Faultbox/vf3-assembler/pkg/mesh"
	"github.com/Faultbox/vf3-assembler/pkg/skeleton"
)

// Default snapping parameters.
const (
	DefaultMaxSnap = 2.0
	DefaultTieBand = 0.05
)

// bandEpsilon widens the tie band query so the nearest target survives
// rounding between squared and plain distances.
const bandEpsilon = 1e-6

// Options configures the synthesizer.
type Options struct {
	MaxSnap float32 // Maximum snap distance in world units
	TieBand float32 // Matches this close to the best count as ties, 0 means DefaultTieBand, negative means none
	Workers int     // Concurrent connectors, 0 means GOMAXPROCS
}

// DefaultOptions returns the standard snapping options.
func DefaultOptions() Options {
	return Options{MaxSnap: DefaultMaxSnap, TieBand: DefaultTieBand}
}

// Vertex is a placed connector vertex.
type Vertex struct {
	Bone     string
	Position math.Vec3 // World space
	UV       math.Vec2
	HasUV    bool
	Primary  bool // Placed from the primary candidate
	Target   int  // Snapped target ID, -1 for fallback
	Fallback bool
	Distance float32
}

// Result is one synthesized connector mesh.
type Result struct {
	Source    string
	Owner     string // Majority vertex bone
	Vertices  []Vertex
	Faces     []formats.ConnectorFace
	Materials []formats.Material
	Fallbacks int
}

// Synthesizer places connector vertices against an index of active mesh
// vertices. It holds no per-call state and is safe for concurrent use.
type Synthesizer struct {
	table *Table
	opts  Options
}

// NewSynthesizer creates a synthesizer. A nil table uses DefaultTable.
func NewSynthesizer(table *Table, opts Options) *Synthesizer {
	if table == nil {
		table = DefaultTable()
	}
	if opts.MaxSnap <= 0 {
		opts.MaxSnap = DefaultMaxSnap
	}
	switch {
	case opts.TieBand == 0:
		opts.TieBand = DefaultTieBand
	case opts.TieBand < 0:
		opts.TieBand = 0
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Synthesizer{table: table, opts: opts}
}

// Options returns the effective options after defaults.
func (s *Synthesizer) Options() Options {
	return s.opts
}

// Synthesize places every connector block. Connectors referencing bones
// missing from the skeleton are dropped with a warning. Results and warnings
// follow the order of blocks.
func (s *Synthesizer) Synthesize(blocks []*formats.ConnectorBlock, skel *skeleton.Skeleton, index *Index) ([]Result, []diag.Warning) {
	results := make([]*Result, len(blocks))
	warnings := make([][]diag.Warning, len(blocks))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, cb := range blocks {
		g.Go(func() error {
			results[i], warnings[i] = s.place(cb, skel, index)
			return nil
		})
	}
	g.Wait() // place never fails

	var out []Result
	var all []diag.Warning
	for i := range blocks {
		all = append(all, warnings[i]...)
		if results[i] != nil {
			out = append(out, *results[i])
		}
	}
	return out, all
}

// match is a candidate placement for one vertex.
type match struct {
	target  int
	dist    float64 // Euclidean
	rank    int
	primary bool
	outward float32
}

func (s *Synthesizer) place(cb *formats.ConnectorBlock, skel *skeleton.Skeleton, index *Index) (*Result, []diag.Warning) {
	for _, v := range cb.Vertices {
		if !skel.Has(v.Bone) {
			return nil, []diag.Warning{diag.New(diag.ErrUnresolvedBoneReference, cb.Source, v.Line, "connector vertex bone %s not in skeleton", v.Bone)}
		}
	}

	res := &Result{
		Source:    cb.Source,
		Owner:     majorityBone(cb.Vertices),
		Vertices:  make([]Vertex, len(cb.Vertices)),
		Faces:     cb.Faces,
		Materials: cb.Materials,
	}
	for i, v := range cb.Vertices {
		res.Vertices[i] = s.snap(v, cb.Hint, skel, index)
		if res.Vertices[i].Fallback {
			res.Fallbacks++
		}
	}

	if res.Fallbacks > 0 {
		return res, []diag.Warning{diag.New(diag.ErrSnapFallback, cb.Source, 0, "%d of %d vertices had no target within %.2f", res.Fallbacks, len(res.Vertices), s.opts.MaxSnap)}
	}
	return res, nil
}

// snap places one vertex. Candidates are the two bone-relative positions;
// preferred resource types are searched first, then every target.
func (s *Synthesizer) snap(v formats.ConnectorVertex, hint string, skel *skeleton.Skeleton, index *Index) Vertex {
	origin, _ := skel.WorldPosition(v.Bone)
	cands := [2]struct {
		pos     math.Vec3
		local   math.Vec3
		primary bool
	}{
		{origin.Add(v.Primary), v.Primary, true},
		{origin.Add(v.Secondary), v.Secondary, false},
	}

	_, cat := s.table.CategoryFor(v.Bone, hint)
	axis, sign, _ := parseAxis(cat.Outward)

	// nearest is the closest distance over both candidates and the types.
	nearest := func(types []mesh.ResourceType) float64 {
		best := gomath.Inf(1)
		for _, c := range cands {
			for _, rt := range types {
				if id, d := index.Nearest(c.pos, rt); id >= 0 && d < best {
					best = d
				}
			}
		}
		return best
	}

	maxSnap := float64(s.opts.MaxSnap)
	search, rankBase := cat.Prefer, 0
	best := nearest(search)
	if best > maxSnap {
		search, rankBase = []mesh.ResourceType{mesh.TypeUnknown}, len(cat.Prefer)
		best = nearest(search)
	}

	// Only targets inside the tie band of the best distance are ranked
	var matches []match
	if best <= maxSnap {
		radius := best + float64(s.opts.TieBand) + bandEpsilon
		for rank, rt := range search {
			for _, c := range cands {
				ids, dists := index.Within(c.pos, rt, radius)
				for k, id := range ids {
					m := match{target: id, dist: gomath.Sqrt(dists[k]), rank: rankBase + rank, primary: c.primary}
					if m.dist > maxSnap {
						continue
					}
					if axis >= 0 {
						m.outward = sign * index.Target(id).Position.Axis(axis)
					}
					matches = append(matches, m)
				}
			}
		}
	}

	out := Vertex{Bone: v.Bone, UV: v.UV, HasUV: v.HasUV, Target: -1}
	if len(matches) == 0 {
		// Keep the candidate that stays closer to its bone
		c := cands[0]
		if cands[1].local.Length() < cands[0].local.Length() {
			c = cands[1]
		}
		out.Position = c.pos
		out.Primary = c.primary
		out.Fallback = true
		return out
	}

	best = matches[0].dist
	for _, m := range matches[1:] {
		if m.dist < best {
			best = m.dist
		}
	}
	band := best + float64(s.opts.TieBand)
	tied := matches[:0]
	for _, m := range matches {
		if m.dist <= band {
			tied = append(tied, m)
		}
	}
	sort.Slice(tied, func(i, j int) bool {
		a, b := tied[i], tied[j]
		if a.outward != b.outward {
			return a.outward > b.outward
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.primary != b.primary {
			return a.primary
		}
		return a.target < b.target
	})

	pick := tied[0]
	out.Position = index.Target(pick.target).Position
	out.Primary = pick.primary
	out.Target = pick.target
	out.Distance = float32(pick.dist)
	return out
}

// majorityBone returns the most frequent vertex bone; the first seen wins
// ties.
func majorityBone(vs []formats.ConnectorVertex) string {
	counts := make(map[string]int)
	var order []string
	for _, v := range vs {
		if counts[v.Bone] == 0 {
			order = append(order, v.Bone)
		}
		counts[v.Bone]++
	}
	best := ""
	for _, b := range order {
		if counts[b] > counts[best] {
			best = b
		}
	}
	return best
}
