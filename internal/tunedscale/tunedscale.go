// Package tunedscale composes a Scale with a KBM into two total (partial
// for keyPitch on unmapped keys) functions: key -> pitch and
// pitch -> nearest key.
package tunedscale

import (
	"fmt"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
)

// TunedScale is the immutable composition of a Scale and a KBM.
type TunedScale struct {
	scale         scale.Scale
	mapping       *kbm.Mapping
	anchorPitch   ratio.Pitch
	anchorRatio   ratio.Ratio // scale.DegreeToRatio(keyToDegree(anchor key))
}

// New builds a TunedScale. The anchor key must be mapped by kbm.
func New(sc scale.Scale, mapping *kbm.Mapping) (*TunedScale, error) {
	anchorDegree, ok := mapping.KeyToDegree(mapping.AnchorKey)
	if !ok {
		return nil, fmt.Errorf("tunedscale: anchor key %d is not mapped", mapping.AnchorKey)
	}
	anchorPitch, err := ratio.NewPitch(mapping.AnchorHz)
	if err != nil {
		return nil, err
	}
	return &TunedScale{
		scale:       sc,
		mapping:     mapping,
		anchorPitch: anchorPitch,
		anchorRatio: sc.DegreeToRatio(anchorDegree),
	}, nil
}

// Scale returns the underlying scale.
func (t *TunedScale) Scale() scale.Scale { return t.scale }

// Mapping returns the underlying keyboard mapping.
func (t *TunedScale) Mapping() *kbm.Mapping { return t.mapping }

// KeyPitch returns the pitch sounded by key, or ok=false if key is unmapped.
func (t *TunedScale) KeyPitch(key int) (p ratio.Pitch, ok bool) {
	degree, mapped := t.mapping.KeyToDegree(key)
	if !mapped {
		return 0, false
	}
	keyRatio := t.scale.DegreeToRatio(degree)
	relative := ratio.Compose(keyRatio, ratio.Invert(t.anchorRatio))
	return ratio.Above(t.anchorPitch, relative), true
}

// FindNearestKey returns the mapped key whose sounded pitch is closest to
// p, and the signed residual (p's ratio above that key's pitch, in
// octaves). Ties are broken toward the lower key, inherited from the
// scale's own tie-breaking on ratioToNearestDegree and from
// kbm.DegreeToKey always returning the lowest key for a given degree.
func (t *TunedScale) FindNearestKey(p ratio.Pitch) (key int, residual ratio.Ratio, ok bool) {
	aboveAnchor, err := ratio.RatioAbove(p, t.anchorPitch)
	if err != nil {
		return 0, ratio.Ratio{}, false
	}
	target := ratio.Compose(aboveAnchor, t.anchorRatio)
	degree, res := t.scale.RatioToNearestDegree(target)
	key, found := t.mapping.DegreeToKey(degree)
	if !found {
		return 0, ratio.Ratio{}, false
	}
	return key, res, true
}
