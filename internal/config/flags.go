package config

import (
	"flag"
	"strings"
)

// Flags holds command-line overrides. Zero values leave the config as is.
type Flags struct {
	Config      string
	Debug       bool
	Descriptors string
	Meshes      string
	Costume     string
	MaxSnap     float64
	Workers     int
}

// Register binds the shared flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Descriptors, "dirs", "", "Comma-separated descriptor directories")
	fs.StringVar(&f.Meshes, "meshes", "", "Mesh manifest (YAML)")
	fs.StringVar(&f.Costume, "costume", "", "Comma-separated costume items")
	fs.Float64Var(&f.MaxSnap, "max-snap", 0, "Connector snap radius")
	fs.IntVar(&f.Workers, "workers", 0, "Connector workers")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Descriptors != "" {
		cfg.Data.DescriptorDirs = splitList(f.Descriptors)
	}
	if f.Meshes != "" {
		cfg.Data.Meshes = f.Meshes
	}
	if f.Costume != "" {
		cfg.Data.Costume = splitList(f.Costume)
	}
	if f.MaxSnap > 0 {
		cfg.Assembly.MaxSnap = float32(f.MaxSnap)
	}
	if f.Workers > 0 {
		cfg.Assembly.Workers = f.Workers
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
