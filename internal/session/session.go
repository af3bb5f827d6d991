// Package session saves and loads the small YAML config that pins a
// scheduler invocation's parameters (scale expression, ref-note key,
// technique, clash policy) so a run can be repeated without retyping the
// full command line — the CLI analogue of the teacher's save.json.gz,
// kept human-editable since tunings are meant to be hand-authored.
package session

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is one saved aot/jit invocation.
type Config struct {
	Mode        string  `yaml:"mode"` // "aot" or "jit"
	Technique   string  `yaml:"technique"`
	RefNoteKey  int     `yaml:"ref_note_key"`
	ScaleExpr   string  `yaml:"scale_expr"`
	RootKey     int     `yaml:"root_key,omitempty"`
	ConcertHz   float64 `yaml:"concert_hz"`
	ConcertKey  int     `yaml:"concert_key"`
	Lo          int     `yaml:"lo"`
	Up          int     `yaml:"up"`
	OutChans    int     `yaml:"out_chans,omitempty"`
	ClashPolicy string  `yaml:"clash_policy,omitempty"`
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("session: creating %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, cfg)
}

// Write encodes cfg as YAML to w.
func Write(w io.Writer, cfg Config) error {
	return yaml.NewEncoder(w).Encode(cfg)
}

// Load reads a saved Config from path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("session: opening %s: %w", path, err)
	}
	defer f.Close()
	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("session: decoding %s: %w", path, err)
	}
	return cfg, nil
}
