// Package assembler runs the full character assembly pipeline: layer
// expansion, skeleton and occupancy resolution, connector synthesis and
// scene placement.
package assembler

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/vf3-assembler/internal/logger"
	"github.com/Faultbox/vf3-assembler/pkg/connector"
	"github.com/Faultbox/vf3-assembler/pkg/costume"
	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
	"github.com/Faultbox/vf3-assembler/pkg/mesh"
	"github.com/Faultbox/vf3-assembler/pkg/occupancy"
	"github.com/Faultbox/vf3-assembler/pkg/scene"
	"github.com/Faultbox/vf3-assembler/pkg/skeleton"
)

// ErrNoDescriptor is returned when a request carries no descriptor.
var ErrNoDescriptor = errors.New("no descriptor")

// Options configures an Assembler. Zero values select the defaults.
type Options struct {
	MaxDepth  int                 // Block indirection limit
	BoneSlots occupancy.BoneSlots // Bone to slot column table
	Table     *connector.Table    // Connector category table
	Synth     connector.Options
	Logger    *zap.Logger
}

// Request is one assembly job.
type Request struct {
	Descriptor *formats.Descriptor
	Library    formats.Library // Other descriptors referenced by prefix, may be nil
	Costume    []string        // Costume items in layer order, nil for none
	Meshes     mesh.Source     // Decoded meshes, nil to assemble without geometry
}

// Resolution is the outcome of layer expansion and slot resolution.
type Resolution struct {
	Bones     []formats.Bone
	Layers    *costume.Layers
	Occupancy *occupancy.Result
}

// Assembler assembles characters. It is safe for concurrent use.
type Assembler struct {
	maxDepth int
	slots    occupancy.BoneSlots
	synth    *connector.Synthesizer
	log      *zap.Logger
}

// New creates an assembler.
func New(opts Options) *Assembler {
	if opts.BoneSlots == nil {
		opts.BoneSlots = occupancy.DefaultBoneSlots()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("assembler")
	}
	return &Assembler{
		maxDepth: opts.MaxDepth,
		slots:    opts.BoneSlots,
		synth:    connector.NewSynthesizer(opts.Table, opts.Synth),
		log:      opts.Logger,
	}
}

// Resolve parses the frame, expands the layers and resolves slot
// occupancy. Problems in the descriptors are reported as warnings.
func (a *Assembler) Resolve(req Request) (*Resolution, *diag.Report, error) {
	if req.Descriptor == nil {
		return nil, nil, ErrNoDescriptor
	}
	report := &diag.Report{}
	res := a.expand(req, report)
	res.Occupancy = occupancy.Resolve(res.Layers, a.slots)
	logger.Diagnostics(a.log, report.Warnings)
	return res, report, nil
}

// Assemble runs the whole pipeline. Only a broken skeleton aborts; the
// report then holds the warnings gathered so far.
func (a *Assembler) Assemble(req Request) (*scene.Model, *diag.Report, error) {
	if req.Descriptor == nil {
		return nil, nil, ErrNoDescriptor
	}
	start := time.Now()
	report := &diag.Report{}
	defer func() {
		logger.Diagnostics(a.log, report.Warnings)
	}()

	res := a.expand(req, report)

	// Skeleton and occupancy are independent
	var (
		skel     *skeleton.Skeleton
		skelWarn []diag.Warning
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		skel, skelWarn, err = skeleton.Build(res.Bones, res.Layers.ChildFrames())
		return err
	})
	g.Go(func() error {
		res.Occupancy = occupancy.Resolve(res.Layers, a.slots)
		return nil
	})
	err := g.Wait()
	report.Add(skelWarn...)
	if err != nil {
		a.log.Error("skeleton failed", zap.String("descriptor", req.Descriptor.Name), zap.Error(err))
		return nil, report, err
	}
	occ := res.Occupancy
	a.log.Debug("skeleton built",
		zap.Int("bones", skel.Len()),
		zap.String("root", skel.Root().Name),
		zap.Int("active", len(occ.Attachments)),
		zap.Int("excluded", len(occ.Excluded)),
	)

	// Connectors
	targets := Targets(skel, occ.Attachments, req.Meshes)
	index := connector.NewIndex(targets)
	blocks := make([]*formats.ConnectorBlock, len(occ.Connectors))
	for i, ref := range occ.Connectors {
		blocks[i] = ref.Block
	}
	a.log.Debug("snapping connectors",
		zap.Int("connectors", len(blocks)),
		zap.Int("targets", index.Len()),
	)
	connectors, ws := a.synth.Synthesize(blocks, skel, index)
	report.Add(ws...)

	// Scene
	model, ws := scene.Assemble(skel, occ.Attachments, req.Meshes, connectors)
	report.Add(ws...)

	a.log.Debug("assembled",
		zap.String("descriptor", req.Descriptor.Name),
		zap.Int("meshes", model.MeshCount()),
		zap.Int("connectors", model.ConnectorCount()),
		zap.Int("warnings", report.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return model, report, nil
}

// expand parses the frame and expands the base skin and costume layers.
func (a *Assembler) expand(req Request, report *diag.Report) *Resolution {
	desc := req.Descriptor
	bones, ws := desc.Frame()
	report.Add(ws...)

	layers, ws := costume.Expand(desc, req.Library, req.Costume, costume.Options{MaxDepth: a.maxDepth})
	report.Add(ws...)
	a.log.Debug("layers expanded",
		zap.String("descriptor", desc.Name),
		zap.Strings("costume", req.Costume),
		zap.Int("contributions", len(layers.Contributions)),
	)
	return &Resolution{Bones: bones, Layers: layers}
}

// Targets returns the world-space vertices of every active mesh, tagged
// with its resource type. Attachments whose bone or mesh is missing are
// skipped; scene assembly reports them.
func Targets(skel *skeleton.Skeleton, active []occupancy.Entry, meshes mesh.Source) []connector.Target {
	if meshes == nil {
		return nil
	}
	var out []connector.Target
	for _, e := range active {
		bone, ok := skel.Bone(e.Attachment.Bone)
		if !ok {
			continue
		}
		m, ok := meshes.Mesh(e.Attachment.Mesh)
		if !ok {
			continue
		}
		rt := mesh.Classify(m, e.Attachment.Bone, e.Owner.Layer > 0)
		for i, p := range scene.WorldPositions(m, bone) {
			out = append(out, connector.Target{
				Mesh:     m.ID,
				Type:     rt,
				Vertex:   i,
				Position: p,
			})
		}
	}
	return out
}
