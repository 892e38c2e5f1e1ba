package connector

import (
	gomath "math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Faultbox/vf3-assembler/pkg/math"
	"github.com/Faultbox/vf3-assembler/pkg/mesh"
)

// Target is one world-space vertex of an active mesh.
type Target struct {
	ID       int // Stable position in the index
	Mesh     string
	Type     mesh.ResourceType
	Vertex   int
	Position math.Vec3
}

// point is a kdtree.Comparable over target positions.
type point struct {
	pos [3]float64
	id  int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	return p.pos[d] - q.pos[d]
}

func (p point) Dims() int { return 3 }

func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	var sum float64
	for i := range p.pos {
		d := p.pos[i] - q.pos[i]
		sum += d * d
	}
	return sum
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, Dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool { return p.points[i].pos[p.Dim] < p.points[j].pos[p.Dim] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// Index is a read-only spatial index over target vertices, with one tree per
// resource type and one over everything. It is safe for concurrent queries.
type Index struct {
	targets []Target
	all     *kdtree.Tree
	byType  map[mesh.ResourceType]*kdtree.Tree
}

// NewIndex builds an index. Target IDs are reassigned to their position.
func NewIndex(targets []Target) *Index {
	idx := &Index{
		targets: make([]Target, len(targets)),
		byType:  make(map[mesh.ResourceType]*kdtree.Tree),
	}
	copy(idx.targets, targets)

	all := make(points, len(idx.targets))
	grouped := make(map[mesh.ResourceType]points)
	for i := range idx.targets {
		idx.targets[i].ID = i
		p := point{pos: idx.targets[i].Position.Array(), id: i}
		all[i] = p
		grouped[idx.targets[i].Type] = append(grouped[idx.targets[i].Type], p)
	}

	idx.all = kdtree.New(all, false)
	for rt, pts := range grouped {
		idx.byType[rt] = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed targets.
func (idx *Index) Len() int {
	return len(idx.targets)
}

// Target returns the target with the given ID.
func (idx *Index) Target(id int) Target {
	return idx.targets[id]
}

// tree returns the tree for rt, or nil when no target has the type. An
// empty type selects all targets.
func (idx *Index) tree(rt mesh.ResourceType) *kdtree.Tree {
	if rt == mesh.TypeUnknown {
		return idx.all
	}
	return idx.byType[rt]
}

// Within returns the IDs and squared distances of targets of type rt within
// radius of q. An empty type searches all targets.
func (idx *Index) Within(q math.Vec3, rt mesh.ResourceType, radius float64) ([]int, []float64) {
	tree := idx.tree(rt)
	if tree == nil {
		return nil, nil
	}

	keep := kdtree.NewDistKeeper(radius * radius)
	tree.NearestSet(keep, point{pos: q.Array(), id: -1})

	var ids []int
	var dists []float64
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		ids = append(ids, c.Comparable.(point).id)
		dists = append(dists, c.Dist)
	}
	return ids, dists
}

// Nearest returns the closest target of type rt and its Euclidean distance,
// or -1 when there is none. An empty type searches all targets.
func (idx *Index) Nearest(q math.Vec3, rt mesh.ResourceType) (int, float64) {
	tree := idx.tree(rt)
	if tree == nil {
		return -1, gomath.Inf(1)
	}
	keep := kdtree.NewNKeeper(1)
	tree.NearestSet(keep, point{pos: q.Array(), id: -1})
	c := keep.Heap[0]
	if c.Comparable == nil {
		return -1, gomath.Inf(1)
	}
	return c.Comparable.(point).id, gomath.Sqrt(c.Dist)
}
