package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied to projector targets that omit the corresponding field.
const (
	DefaultProjectorPort = 7255
	DefaultFPS           = 60
	DefaultColorBits     = 8
	DefaultPositionBits  = 16
)

// ProjectorTarget configures one physical laser output.
type ProjectorTarget struct {
	Name         string   `yaml:"name"`
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Channel      int      `yaml:"channel"`
	FPS          int      `yaml:"fps"`
	ColorBits    int      `yaml:"color_bits"`
	PositionBits int      `yaml:"position_bits"`
	Zones        []string `yaml:"zones"`
}

// Projectors is the parsed projector configuration file: the set of physical
// targets plus named zone groups used for output routing.
type Projectors struct {
	Targets    []ProjectorTarget   `yaml:"targets"`
	ZoneGroups map[string][]string `yaml:"zone_groups"`
}

// LoadProjectors reads and validates the projector configuration from a YAML
// file, filling defaults for omitted fields.
func LoadProjectors(path string) (*Projectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read projectors: %w", err)
	}
	return ParseProjectors(data)
}

// ParseProjectors parses and validates projector configuration YAML.
func ParseProjectors(data []byte) (*Projectors, error) {
	var p Projectors
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse projectors: %w", err)
	}
	if len(p.Targets) == 0 {
		return nil, fmt.Errorf("config: no projector targets defined")
	}

	seen := map[string]bool{}
	for i := range p.Targets {
		t := &p.Targets[i]
		if t.Name == "" {
			return nil, fmt.Errorf("config: target %d has no name", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("config: duplicate target name %q", t.Name)
		}
		seen[t.Name] = true
		if t.Host == "" {
			return nil, fmt.Errorf("config: target %q has no host", t.Name)
		}
		if t.Port == 0 {
			t.Port = DefaultProjectorPort
		}
		if t.FPS == 0 {
			t.FPS = DefaultFPS
		}
		if t.FPS < 1 || t.FPS > 1000 {
			return nil, fmt.Errorf("config: target %q has invalid fps %d", t.Name, t.FPS)
		}
		if t.ColorBits == 0 {
			t.ColorBits = DefaultColorBits
		}
		if t.PositionBits == 0 {
			t.PositionBits = DefaultPositionBits
		}
		if t.ColorBits != 8 && t.ColorBits != 16 {
			return nil, fmt.Errorf("config: target %q has invalid color_bits %d (want 8 or 16)", t.Name, t.ColorBits)
		}
		if t.PositionBits != 8 && t.PositionBits != 16 {
			return nil, fmt.Errorf("config: target %q has invalid position_bits %d (want 8 or 16)", t.Name, t.PositionBits)
		}
		if t.Channel < 0 || t.Channel > 63 {
			return nil, fmt.Errorf("config: target %q has invalid channel %d (want 0-63)", t.Name, t.Channel)
		}
	}
	return &p, nil
}
