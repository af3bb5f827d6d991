// Package kbm implements the keyboard mapping (KBM): the function from
// MIDI keys to scale degrees, plus the anchor key/pitch that ties the
// scale to absolute frequency.
package kbm

import "fmt"

// UnmappedDegree marks a pattern slot that sounds nothing.
const UnmappedDegree = -1 << 31

// Mapping is an immutable keyboard mapping. Keys are signed so that
// internal reasoning (e.g. a rank-2 generator walk referencing keys
// outside the physical 0-127 range) stays well defined.
type Mapping struct {
	AnchorKey    int     // the reference MIDI key
	AnchorHz     float64 // the pitch sounded at AnchorKey
	RootKey      int     // the scale-degree-0 origin key
	Pattern      []int   // pattern[i] is a degree offset, or UnmappedDegree
	FormalOctave int     // scale-degree increment per pattern period
}

// NewLinear builds the common case: every key maps 1:1 to scale degrees,
// with the root key at degree 0 and a formal octave equal to the scale
// size (the conventional "one key per degree" keyboard).
func NewLinear(anchorKey int, anchorHz float64, rootKey int, scaleSize int) (*Mapping, error) {
	if scaleSize < 1 {
		return nil, fmt.Errorf("kbm: scale size must be >= 1, got %d", scaleSize)
	}
	pattern := make([]int, scaleSize)
	for i := range pattern {
		pattern[i] = i
	}
	return New(anchorKey, anchorHz, rootKey, pattern, scaleSize)
}

// New validates and builds an explicit keyboard mapping.
func New(anchorKey int, anchorHz float64, rootKey int, pattern []int, formalOctave int) (*Mapping, error) {
	if anchorHz <= 0 {
		return nil, fmt.Errorf("kbm: anchor pitch must be positive, got %v", anchorHz)
	}
	if len(pattern) == 0 {
		return nil, fmt.Errorf("kbm: pattern must have at least one slot")
	}
	allUnmapped := true
	for _, p := range pattern {
		if p != UnmappedDegree {
			allUnmapped = false
			break
		}
	}
	if allUnmapped {
		return nil, fmt.Errorf("kbm: pattern maps no keys at all")
	}
	cp := make([]int, len(pattern))
	copy(cp, pattern)
	return &Mapping{
		AnchorKey:    anchorKey,
		AnchorHz:     anchorHz,
		RootKey:      rootKey,
		Pattern:      cp,
		FormalOctave: formalOctave,
	}, nil
}

func floorDivInt(a, b int) (q, rem int) {
	q = a / b
	rem = a % b
	if rem != 0 && ((rem < 0) != (b < 0)) {
		q--
		rem += b
	}
	return
}

// KeyToDegree maps a MIDI key to a scale degree, or (0, false) if key is
// an unmapped pattern slot.
func (m *Mapping) KeyToDegree(key int) (degree int, ok bool) {
	delta := key - m.RootKey
	period := len(m.Pattern)
	q, rem := floorDivInt(delta, period)
	slot := m.Pattern[rem]
	if slot == UnmappedDegree {
		return 0, false
	}
	return q*m.FormalOctave + slot, true
}

// DegreeToKey inverts KeyToDegree: it returns the lowest key that maps
// forward to degree d, or (0, false) if no key in the representable
// window does. The search covers a generous number of pattern periods
// on either side of the root so it always finds an answer when one
// exists for any practical scale size.
func (m *Mapping) DegreeToKey(d int) (key int, ok bool) {
	period := len(m.Pattern)
	const searchPeriods = 4096
	best := 0
	found := false
	for q := -searchPeriods; q <= searchPeriods; q++ {
		for slotIdx, slot := range m.Pattern {
			if slot == UnmappedDegree {
				continue
			}
			if q*m.FormalOctave+slot != d {
				continue
			}
			k := m.RootKey + q*period + slotIdx
			if !found || k < best {
				best = k
				found = true
			}
		}
	}
	return best, found
}
