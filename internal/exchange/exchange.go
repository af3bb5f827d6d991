// Package exchange implements the internal YAML pipelining format: a
// tagged top-level variant carrying either a Scale (anchor + per-key
// pitches) or a Dump (a bare list of items), both with full round-trip
// float precision.
package exchange

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/schollz/xentune/internal/tunedscale"
	"github.com/schollz/xentune/internal/xerr"
)

// Item is one key's sounded pitch.
type Item struct {
	KeyMIDINumber int     `yaml:"key_midi_number" json:"key_midi_number"`
	PitchInHz     float64 `yaml:"pitch_in_hz" json:"pitch_in_hz"`
}

// Scale is the exchange form of a TunedScale snapshot over a key range.
type Scale struct {
	RootKeyMIDINumber int     `yaml:"root_key_midi_number" json:"root_key_midi_number"`
	RootPitchInHz     float64 `yaml:"root_pitch_in_hz" json:"root_pitch_in_hz"`
	Items             []Item  `yaml:"items" json:"items"`
}

// Dump is a bare list of items, without the anchor fields of Scale.
type Dump struct {
	Items []Item `yaml:"items" json:"items"`
}

// document is the tagged envelope written to and read from YAML: exactly
// one of Scale or Dump is set.
type document struct {
	Kind  string `yaml:"kind"`
	Scale *Scale `yaml:"scale,omitempty"`
	Dump  *Dump  `yaml:"dump,omitempty"`
}

// NewScale builds a Scale document from ts, sampling keys [lo, up].
func NewScale(ts *tunedscale.TunedScale, rootKey int, lo, up int) (*Scale, error) {
	rootHz, ok := ts.KeyPitch(rootKey)
	if !ok {
		return nil, fmt.Errorf("%w: exchange: root key %d is unmapped", xerr.ErrParse, rootKey)
	}
	s := &Scale{RootKeyMIDINumber: rootKey, RootPitchInHz: rootHz.Hz()}
	for k := lo; k <= up; k++ {
		hz, ok := ts.KeyPitch(k)
		if !ok {
			continue
		}
		s.Items = append(s.Items, Item{KeyMIDINumber: k, PitchInHz: hz.Hz()})
	}
	return s, nil
}

// WriteScale marshals a Scale document.
func WriteScale(w io.Writer, s *Scale) error {
	return yaml.NewEncoder(w).Encode(document{Kind: "scale", Scale: s})
}

// WriteDump marshals a Dump document.
func WriteDump(w io.Writer, d *Dump) error {
	return yaml.NewEncoder(w).Encode(document{Kind: "dump", Dump: d})
}

// Read parses a tagged document, returning whichever of Scale/Dump is set.
func Read(r io.Reader) (*Scale, *Dump, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%w: exchange: %v", xerr.ErrParse, err)
	}
	switch doc.Kind {
	case "scale":
		if doc.Scale == nil {
			return nil, nil, fmt.Errorf("%w: exchange: kind \"scale\" with no scale body", xerr.ErrParse)
		}
		return doc.Scale, nil, nil
	case "dump":
		if doc.Dump == nil {
			return nil, nil, fmt.Errorf("%w: exchange: kind \"dump\" with no dump body", xerr.ErrParse)
		}
		return nil, doc.Dump, nil
	default:
		return nil, nil, fmt.Errorf("%w: exchange: unknown document kind %q", xerr.ErrParse, doc.Kind)
	}
}
