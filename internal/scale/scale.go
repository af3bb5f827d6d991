// Package scale implements the user-defined microtonal scale model: an
// ordered, countably infinite sequence of ratios indexed by a signed
// integer degree, with degree 0 always mapping to 1/1.
//
// All five construction modes (equal, rank-2, harmonic, custom, imported)
// reduce to the same internal representation: a sorted table of pitch
// classes spanning one period, extended to every integer degree by
// stacking whole periods. This mirrors how Scala .scl files themselves
// only ever describe one period's worth of degrees.
package scale

import (
	"fmt"
	"math"
	"sort"

	"github.com/schollz/xentune/internal/ratio"
)

// Scale is the common interface every construction mode implements.
type Scale interface {
	// DegreeToRatio maps a signed scale degree to its ratio above 1/1.
	DegreeToRatio(d int) ratio.Ratio
	// RatioToNearestDegree returns the degree whose ratio is closest to r,
	// plus the signed residual (r's octaves minus that degree's octaves).
	// Ties are broken toward the lower degree.
	RatioToNearestDegree(r ratio.Ratio) (degree int, residual ratio.Ratio)
	// Size returns the number of degrees per period.
	Size() int
	// Period returns the ratio at degree Size().
	Period() ratio.Ratio
}

// reduced is the shared representation: classes[0..len-1] are the ratios
// for degrees 0..len-1 within one period; classes[0] is always 1/1.
type reduced struct {
	classes []ratio.Ratio
	period  ratio.Ratio
}

func newReduced(classes []ratio.Ratio, period ratio.Ratio) (*reduced, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("scale: a scale needs at least one degree per period")
	}
	if period.Octaves() <= 0 {
		return nil, fmt.Errorf("scale: period must be an ascending interval, got %v", period)
	}
	if classes[0].Octaves() != 0 {
		return nil, fmt.Errorf("scale: degree 0 must be 1/1")
	}
	for i := 1; i < len(classes); i++ {
		if !(classes[i-1].Octaves() < classes[i].Octaves()) {
			return nil, fmt.Errorf("scale: classes must be strictly increasing (degree %d)", i)
		}
	}
	if !(classes[len(classes)-1].Octaves() < period.Octaves()) {
		return nil, fmt.Errorf("scale: every degree below the period must sound below the period")
	}
	cp := make([]ratio.Ratio, len(classes))
	copy(cp, classes)
	return &reduced{classes: cp, period: period}, nil
}

func floorDivInt(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (s *reduced) Size() int            { return len(s.classes) }
func (s *reduced) Period() ratio.Ratio  { return s.period }

func (s *reduced) DegreeToRatio(d int) ratio.Ratio {
	n := len(s.classes)
	k := floorDivInt(d, n)
	idx := d - k*n
	return ratio.Compose(s.classes[idx], ratio.Pow(s.period, k))
}

func (s *reduced) RatioToNearestDegree(r ratio.Ratio) (int, ratio.Ratio) {
	reducedR, k := ratio.ReduceToPeriod(r, s.period)
	n := len(s.classes)

	bestDegree := k * n
	bestResidual := reducedR.Octaves() - s.classes[0].Octaves()
	bestAbs := math.Abs(bestResidual)

	for i := 1; i < n; i++ {
		residual := reducedR.Octaves() - s.classes[i].Octaves()
		if math.Abs(residual) < bestAbs {
			bestAbs = math.Abs(residual)
			bestResidual = residual
			bestDegree = k*n + i
		}
	}

	// the period boundary itself is degree (k+1)*n
	topResidual := reducedR.Octaves() - s.period.Octaves()
	if math.Abs(topResidual) < bestAbs {
		bestResidual = topResidual
		bestDegree = (k + 1) * n
	}

	return bestDegree, ratio.FromOctaves(bestResidual)
}

// NewEqual builds an equal division of period into size equal steps
// (degree n maps to step^n where step = period^(1/size)).
func NewEqual(size int, period ratio.Ratio) (Scale, error) {
	if size < 1 {
		return nil, fmt.Errorf("scale: equal division size must be >= 1, got %d", size)
	}
	step := ratio.PowF(period, 1/float64(size))
	classes := make([]ratio.Ratio, size)
	for i := 0; i < size; i++ {
		classes[i] = ratio.Pow(step, i)
	}
	return newReduced(classes, period)
}

// NewRank2 builds a rank-2 (generator + period) scale: upCount stacked
// applications of generator above the root, downCount stacked applications
// of its inverse below the root, each reduced into the period, sorted.
func NewRank2(generator, period ratio.Ratio, upCount, downCount int) (Scale, error) {
	if upCount < 0 || downCount < 0 {
		return nil, fmt.Errorf("scale: rank-2 up/down counts must be >= 0")
	}
	classes := make([]ratio.Ratio, 0, upCount+downCount+1)
	classes = append(classes, ratio.Unison)

	invGenerator := ratio.Invert(generator)
	for i := 1; i <= upCount; i++ {
		reducedR, _ := ratio.ReduceToPeriod(ratio.Pow(generator, i), period)
		classes = append(classes, reducedR)
	}
	for i := 1; i <= downCount; i++ {
		reducedR, _ := ratio.ReduceToPeriod(ratio.Pow(invGenerator, i), period)
		classes = append(classes, reducedR)
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].Octaves() < classes[j].Octaves() })
	return newReduced(classes, period)
}

// NewHarmonic builds an n-degree scale within one octave from the
// harmonic series: degree i is partial n+i over n when up is true, or
// 2n over subharmonic 2n-i when up is false (i = 0..n-1). n must be >= 1.
func NewHarmonic(n int, up bool) (Scale, error) {
	if n < 1 {
		return nil, fmt.Errorf("scale: harmonic series requires n >= 1, got %d", n)
	}
	octave := ratio.FromOctaves(1)
	classes := make([]ratio.Ratio, n)
	for i := 0; i < n; i++ {
		var r ratio.Ratio
		var err error
		if up {
			r, err = ratio.FromFraction(float64(n+i), float64(n))
		} else {
			r, err = ratio.FromFraction(float64(2*n), float64(2*n-i))
		}
		if err != nil {
			return nil, err
		}
		classes[i] = r
	}
	return newReduced(classes, octave)
}

// NewCustom builds a scale from an explicit list of per-period pitches
// (the ratios for degrees 1..size-1) and a closing period ratio (the
// ratio at degree size).
func NewCustom(items []ratio.Ratio, period ratio.Ratio) (Scale, error) {
	classes := make([]ratio.Ratio, 0, len(items)+1)
	classes = append(classes, ratio.Unison)
	classes = append(classes, items...)
	return newReduced(classes, period)
}

// NewFromDegreeList builds a scale the way an SCL file does: lines holds
// the ratios for degrees 1..N in order, and the last line is the period
// (degree N); degree 0 is the implicit 1/1.
func NewFromDegreeList(lines []ratio.Ratio) (Scale, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("scale: a degree list needs at least one ratio (the period)")
	}
	period := lines[len(lines)-1]
	items := lines[:len(lines)-1]
	return NewCustom(items, period)
}
