// Package config handles assembler configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/vf3-assembler/pkg/connector"
	"github.com/Faultbox/vf3-assembler/pkg/costume"
	"github.com/Faultbox/vf3-assembler/pkg/occupancy"
)

// Config holds all assembler settings.
type Config struct {
	Assembly   AssemblyConfig  `yaml:"assembly"`
	Data       DataConfig      `yaml:"data"`
	Connectors ConnectorConfig `yaml:"connectors"`
	Occupancy  OccupancyConfig `yaml:"occupancy"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// AssemblyConfig holds pipeline tuning.
type AssemblyConfig struct {
	MaxSnap  float32 `yaml:"max_snap"`  // Connector snap radius in model units
	TieBand  float32 `yaml:"tie_band"`  // Distance band treated as a tie
	MaxDepth int     `yaml:"max_depth"` // Block indirection limit
	Workers  int     `yaml:"workers"`   // Connector workers, 0 = GOMAXPROCS
}

// DataConfig holds descriptor and mesh locations.
type DataConfig struct {
	DescriptorDirs []string `yaml:"descriptor_dirs"` // Searched last-added first
	Meshes         string   `yaml:"meshes"`          // Mesh manifest path
	Costume        []string `yaml:"costume"`         // Default costume selection
}

// ConnectorConfig overrides the built-in connector category table.
type ConnectorConfig struct {
	Categories map[string]connector.Category `yaml:"categories,omitempty"`
	Bones      map[string]string             `yaml:"bones,omitempty"`
}

// OccupancyConfig overrides the built-in bone to slot column table.
type OccupancyConfig struct {
	BoneSlots map[string]string `yaml:"bone_slots,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Assembly: AssemblyConfig{
			MaxSnap:  connector.DefaultMaxSnap,
			TieBand:  connector.DefaultTieBand,
			MaxDepth: costume.DefaultMaxDepth,
			Workers:  0,
		},
		Data: DataConfig{
			DescriptorDirs: []string{"."},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ConnectorTable returns the built-in category table with the configured
// overrides applied.
func (c *Config) ConnectorTable() (*connector.Table, error) {
	return connector.DefaultTable().Override(c.Connectors.Categories, c.Connectors.Bones)
}

// BoneSlots returns the built-in bone slot table with the configured
// overrides applied. A column of "none" removes the bone.
func (c *Config) BoneSlots() (occupancy.BoneSlots, error) {
	table := occupancy.DefaultBoneSlots()
	for bone, name := range c.Occupancy.BoneSlots {
		if name == "none" {
			delete(table, bone)
			continue
		}
		col, err := occupancy.ParseColumn(name)
		if err != nil {
			return nil, fmt.Errorf("occupancy bone %s: %w", bone, err)
		}
		table[bone] = col
	}
	return table, nil
}

// SynthOptions returns connector synthesis options. A configured tie band
// of zero means exact ties only.
func (c *Config) SynthOptions() connector.Options {
	band := c.Assembly.TieBand
	if band == 0 {
		band = -1
	}
	return connector.Options{
		MaxSnap: c.Assembly.MaxSnap,
		TieBand: band,
		Workers: c.Assembly.Workers,
	}
}
