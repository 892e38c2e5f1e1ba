// vf3tool is a CLI utility for inspecting and assembling VF3 character
// descriptors.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/vf3-assembler/internal/assets"
	"github.com/Faultbox/vf3-assembler/internal/config"
	"github.com/Faultbox/vf3-assembler/internal/logger"
	"github.com/Faultbox/vf3-assembler/pkg/assembler"
	"github.com/Faultbox/vf3-assembler/pkg/diag"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
	"github.com/Faultbox/vf3-assembler/pkg/math"
	"github.com/Faultbox/vf3-assembler/pkg/mesh"
	"github.com/Faultbox/vf3-assembler/pkg/occupancy"
	"github.com/Faultbox/vf3-assembler/pkg/scene"
	"github.com/Faultbox/vf3-assembler/pkg/skeleton"
)

// errUsage is returned after printing a command's usage line.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	args = args[1:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args, stdout, stderr)
	case "bones":
		err = cmdBones(args, stdout, stderr)
	case "resolve":
		err = cmdResolve(args, stdout, stderr)
	case "assemble":
		err = cmdAssemble(args, stdout, stderr)
	case "config":
		err = cmdConfig(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `vf3tool - VF3 character descriptor utility

Usage:
  vf3tool <command> [options] <descriptor>

Commands:
  info <desc>                          Show blocks, bones and costume items
  bones <desc>                         Print the bone tree with world positions
  resolve <desc> [-costume a,b]        Show active and excluded attachments
  assemble <desc> [-meshes file.yaml]  Assemble the model and print the scene
  config [path]                        Write a default vf3.yaml

Common options:
  -config <file>   Config file (default ./vf3.yaml)
  -dirs a,b        Descriptor directories, searched last first
  -debug           Enable debug logging

A descriptor is a path to a .TXT file or a prefix found in -dirs.

Examples:
  vf3tool info data/CIEL.TXT
  vf3tool resolve -dirs data -costume blazer,skirt ciel
  vf3tool assemble -dirs data -meshes ciel_meshes.yaml -naked ciel`)
}

// env is the shared state of a descriptor command.
type env struct {
	cfg    *config.Config
	assets *assets.Manager
	desc   *formats.Descriptor
}

// setup parses fs, loads config, initializes logging and opens the
// descriptor named by the first positional argument.
func setup(fs *flag.FlagSet, args []string, stderr io.Writer) (*env, error) {
	var flags config.Flags
	flags.Register(fs)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(stderr, "Usage: vf3tool %s [options] <descriptor>\n", fs.Name())
		return nil, errUsage
	}

	cfg, err := config.Load(&flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}

	m := assets.NewManager()
	for _, dir := range cfg.Data.DescriptorDirs {
		if err := m.AddDir(dir); err != nil {
			logger.Sugar.Warnf("skipping descriptor dir: %v", err)
		}
	}

	d, err := openDescriptor(m, fs.Arg(0))
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, assets: m, desc: d}, nil
}

// openDescriptor loads a descriptor by file path or by prefix. A file's
// directory is searched before the configured ones.
func openDescriptor(m *assets.Manager, arg string) (*formats.Descriptor, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		if err := m.AddDir(filepath.Dir(arg)); err != nil {
			return nil, err
		}
		arg = strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
	}
	return m.Load(arg)
}

func (e *env) newAssembler() (*assembler.Assembler, error) {
	table, err := e.cfg.ConnectorTable()
	if err != nil {
		return nil, err
	}
	slots, err := e.cfg.BoneSlots()
	if err != nil {
		return nil, err
	}
	return assembler.New(assembler.Options{
		MaxDepth:  e.cfg.Assembly.MaxDepth,
		BoneSlots: slots,
		Table:     table,
		Synth:     e.cfg.SynthOptions(),
	}), nil
}

// costume picks the costume selection: none, the configured one, or the
// descriptor's default.
func (e *env) costume(naked bool) []string {
	switch {
	case naked:
		return nil
	case len(e.cfg.Data.Costume) > 0:
		return e.cfg.Data.Costume
	default:
		return e.desc.DefaultCostume()
	}
}

func cmdInfo(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	e, err := setup(fs, args, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	d := e.desc
	bones, boneWarn := d.Frame()
	skin, skinWarn := d.Skin()

	fmt.Fprintf(stdout, "Descriptor: %s\n", d.Name)
	if d.Path != "" {
		fmt.Fprintf(stdout, "Path:       %s\n", d.Path)
	}
	fmt.Fprintf(stdout, "Blocks:     %d\n", len(d.Order))
	fmt.Fprintf(stdout, "Bones:      %d\n", len(bones))
	fmt.Fprintf(stdout, "Skin:       %d entries\n", len(skin))
	fmt.Fprintf(stdout, "Default:    %s\n", strings.Join(d.DefaultCostume(), ", "))
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Costume items:")
	for _, item := range d.CostumeItems() {
		entries, _, _ := d.CostumeItem(item)
		fmt.Fprintf(stdout, "  %-20s %d entries\n", item, len(entries))
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Blocks:")
	for _, name := range d.Order {
		b, _ := d.Block(name)
		marker := ""
		if cb, _ := d.Connector(name); cb != nil {
			marker = fmt.Sprintf("  connector (%d vertices)", len(cb.Vertices))
		}
		fmt.Fprintf(stdout, "  %-20s %4d lines%s\n", name, len(b.Lines), marker)
	}

	var report diag.Report
	report.Add(d.Warnings...)
	report.Add(boneWarn...)
	report.Add(skinWarn...)
	printWarnings(stdout, &report)
	return nil
}

func cmdBones(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bones", flag.ContinueOnError)
	e, err := setup(fs, args, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	bones, warnings := e.desc.Frame()
	skel, skelWarn, err := skeleton.Build(bones, nil)
	var report diag.Report
	report.Add(warnings...)
	report.Add(skelWarn...)
	if err != nil {
		printWarnings(stderr, &report)
		return err
	}

	for _, b := range skel.Order() {
		indent := strings.Repeat("  ", b.Depth)
		fmt.Fprintf(stdout, "%s%-*s %s", indent, 16-len(indent), b.Name, formatVec(b.WorldPosition))
		if b.WorldScale != math.One {
			fmt.Fprintf(stdout, "  scale %s", formatVec(b.WorldScale))
		}
		if b.Flags.Raw != "" {
			fmt.Fprintf(stdout, "  flags %s", b.Flags.Raw)
		}
		fmt.Fprintln(stdout)
	}
	printWarnings(stdout, &report)
	return nil
}

func cmdResolve(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	naked := fs.Bool("naked", false, "Base skin only")
	e, err := setup(fs, args, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := e.newAssembler()
	if err != nil {
		return err
	}
	res, report, err := a.Resolve(assembler.Request{
		Descriptor: e.desc,
		Library:    e.assets,
		Costume:    e.costume(*naked),
	})
	if err != nil {
		return err
	}
	occ := res.Occupancy

	fmt.Fprint(stdout, "Layers: skin")
	for _, item := range res.Layers.Items {
		fmt.Fprintf(stdout, " > %s", item)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Slots:")
	for col, w := range occ.Winners {
		owner := "-"
		if w.Owner != nil {
			owner = w.Owner.ID()
		}
		fmt.Fprintf(stdout, "  %-8s %2d  %s\n", occupancy.Column(col), w.Value, owner)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Active (%d):\n", len(occ.Attachments))
	printEntries(stdout, occ.Attachments)
	fmt.Fprintf(stdout, "Excluded (%d):\n", len(occ.Excluded))
	printEntries(stdout, occ.Excluded)
	fmt.Fprintf(stdout, "Connectors (%d):\n", len(occ.Connectors))
	for _, c := range occ.Connectors {
		fmt.Fprintf(stdout, "  %-24s %3d vertices  %s\n", c.Block.Source, len(c.Block.Vertices), c.Owner.ID())
	}

	printWarnings(stdout, report)
	return nil
}

func cmdAssemble(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("assemble", flag.ContinueOnError)
	naked := fs.Bool("naked", false, "Base skin only")
	e, err := setup(fs, args, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var meshes mesh.Source
	if e.cfg.Data.Meshes != "" {
		src, err := mesh.LoadManifest(e.cfg.Data.Meshes)
		if err != nil {
			return err
		}
		meshes = src
	}

	a, err := e.newAssembler()
	if err != nil {
		return err
	}
	model, report, err := a.Assemble(assembler.Request{
		Descriptor: e.desc,
		Library:    e.assets,
		Costume:    e.costume(*naked),
		Meshes:     meshes,
	})
	if err != nil {
		if report != nil {
			printWarnings(stderr, report)
		}
		return err
	}

	model.Walk(func(n *scene.Node) bool {
		depth := 0
		for p := n.Parent; p != nil; p = p.Parent {
			depth++
		}
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(stdout, "%s%s\n", indent, n.Name)
		for _, m := range n.Meshes {
			fmt.Fprintf(stdout, "%s  - %s [%s] layer %d", indent, m.ID, m.Type, m.Layer)
			if m.Mesh != nil {
				fmt.Fprintf(stdout, ", %d vertices", m.Mesh.VertexCount())
			}
			fmt.Fprintln(stdout)
		}
		for _, c := range n.Connectors {
			fmt.Fprintf(stdout, "%s  ~ %s %d vertices, %d faces", indent, c.Source, len(c.Vertices), len(c.Faces))
			if c.Fallbacks > 0 {
				fmt.Fprintf(stdout, ", %d unsnapped", c.Fallbacks)
			}
			fmt.Fprintln(stdout)
		}
		return true
	})

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Bones: %d  Meshes: %d  Connectors: %d\n", model.Skeleton.Len(), model.MeshCount(), model.ConnectorCount())
	printWarnings(stdout, report)
	return nil
}

func cmdConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg := config.Default()
	if fs.NArg() > 0 {
		if err := cfg.SaveTo(fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", fs.Arg(0))
		return nil
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", filepath.Join(config.ConfigDir(), config.FileName))
	return nil
}

func printEntries(w io.Writer, entries []occupancy.Entry) {
	sorted := make([]occupancy.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Attachment.Bone < sorted[j].Attachment.Bone
	})
	for _, e := range sorted {
		fmt.Fprintf(w, "  %-10s %-24s %-8s %s\n", e.Attachment.Bone, e.Attachment.Mesh, e.Column, e.Owner.ID())
	}
}

func printWarnings(w io.Writer, r *diag.Report) {
	if r.Len() == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarnings (%d):\n", r.Len())
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  [%s] %v\n", warn.Kind(), warn)
	}
}

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
