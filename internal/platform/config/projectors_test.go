package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseProjectors_defaults(t *testing.T) {
	p, err := ParseProjectors([]byte(`
targets:
  - name: main
    host: 192.168.1.50
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Targets) != 1 {
		t.Fatalf("targets = %d, want 1", len(p.Targets))
	}
	got := p.Targets[0]
	if got.Port != DefaultProjectorPort {
		t.Errorf("port = %d, want %d", got.Port, DefaultProjectorPort)
	}
	if got.FPS != DefaultFPS {
		t.Errorf("fps = %d, want %d", got.FPS, DefaultFPS)
	}
	if got.ColorBits != DefaultColorBits {
		t.Errorf("color_bits = %d, want %d", got.ColorBits, DefaultColorBits)
	}
	if got.PositionBits != DefaultPositionBits {
		t.Errorf("position_bits = %d, want %d", got.PositionBits, DefaultPositionBits)
	}
	if got.Channel != 0 {
		t.Errorf("channel = %d, want 0", got.Channel)
	}
}

func TestParseProjectors_fullTarget(t *testing.T) {
	p, err := ParseProjectors([]byte(`
targets:
  - name: rear
    host: 10.0.0.9
    port: 8000
    channel: 3
    fps: 30
    color_bits: 16
    position_bits: 8
    zones: [stage, rear]
zone_groups:
  all: [stage, rear]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := p.Targets[0]
	if got.Port != 8000 || got.Channel != 3 || got.FPS != 30 {
		t.Errorf("unexpected target: %+v", got)
	}
	if got.ColorBits != 16 || got.PositionBits != 8 {
		t.Errorf("bit depths not honored: %+v", got)
	}
	if len(got.Zones) != 2 {
		t.Errorf("zones = %v", got.Zones)
	}
	if members := p.ZoneGroups["all"]; len(members) != 2 {
		t.Errorf("zone group all = %v", members)
	}
}

func TestParseProjectors_invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty", ``},
		{"no targets", `targets: []`},
		{"missing name", "targets:\n  - host: 10.0.0.1"},
		{"missing host", "targets:\n  - name: a"},
		{"duplicate name", "targets:\n  - name: a\n    host: h1\n  - name: a\n    host: h2"},
		{"fps too high", "targets:\n  - name: a\n    host: h\n    fps: 2000"},
		{"bad color bits", "targets:\n  - name: a\n    host: h\n    color_bits: 12"},
		{"bad position bits", "targets:\n  - name: a\n    host: h\n    position_bits: 4"},
		{"channel too high", "targets:\n  - name: a\n    host: h\n    channel: 64"},
		{"not yaml", `{{nope`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseProjectors([]byte(tc.yaml)); err == nil {
				t.Errorf("expected error for %q", tc.yaml)
			}
		})
	}
}

func TestLoadProjectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projectors.yaml")
	content := []byte("targets:\n  - name: main\n    host: 127.0.0.1\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProjectors(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Targets[0].Name != "main" {
		t.Errorf("name = %q", p.Targets[0].Name)
	}

	if _, err := LoadProjectors(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
