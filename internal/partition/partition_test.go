package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/mts"
	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
	"github.com/schollz/xentune/internal/tunedscale"
)

func build12TET(t *testing.T) *tunedscale.TunedScale {
	t.Helper()
	sc, err := scale.NewEqual(12, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(69, 440, 60, 12)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)
	return ts
}

func TestFullTechniqueOneChannelFor12TET(t *testing.T) {
	ts := build12TET(t)
	plan, err := Build(ts, 0, 127, mts.Full, 440, 69)
	require.NoError(t, err)
	assert.Len(t, plan.Channels, 1)
	assert.Len(t, plan.Routing, 128)
	for k := 0; k <= 127; k++ {
		route, ok := plan.Routing[k]
		require.True(t, ok)
		assert.Equal(t, byte(k), route.Note)
	}
}

func TestOctaveTechniqueOneChannelFor12TET(t *testing.T) {
	ts := build12TET(t)
	plan, err := Build(ts, 0, 127, mts.ScaleOctave1Byte, 440, 69)
	require.NoError(t, err)
	assert.Len(t, plan.Channels, 1, "a straight 12-TET scale needs only one octave-repeating detune per letter")
}

func TestAOTTotalityWithinRange(t *testing.T) {
	sc, err := scale.NewEqual(19, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(62, 440, 62, 19)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	plan, err := Build(ts, 40, 90, mts.ScaleOctave2Byte, 440, 69)
	require.NoError(t, err)

	for k := 40; k <= 90; k++ {
		_, ok := plan.Routing[k]
		assert.True(t, ok, "key %d should have a routing entry", k)
	}
}

// S3: 16-EDO anchored at D4, Octave-1 technique needs more than one
// channel: 16 steps per octave land on only 12 note letters, so some
// letter picks up two different quantized detunes (keys 64 and 65 both
// round to E, at -50 and +25 cents) and one channel holds one detune per
// letter.
func TestOctaveTechnique16EDONeedsSeveralChannels(t *testing.T) {
	sc, err := scale.NewEqual(16, ratio.FromOctaves(1))
	require.NoError(t, err)
	anchorHz := 440 * ratio.PowF(ratio.FromOctaves(1), -7.0/12.0).Factor() // D4 in 12-TET
	mapping, err := kbm.NewLinear(62, anchorHz, 62, 16)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	plan, err := Build(ts, 0, 127, mts.ScaleOctave1Byte, 440, 69)
	require.NoError(t, err)
	assert.Greater(t, len(plan.Channels), 1)

	for k := 0; k <= 127; k++ {
		if contains(plan.Unmapped, k) || contains(plan.OutOfRange, k) {
			continue
		}
		_, ok := plan.Routing[k]
		assert.True(t, ok, "key %d should route somewhere", k)
	}
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestChannelFinePartitionsByDistinctDetune(t *testing.T) {
	sc, err := scale.NewEqual(5, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(60, 440, 60, 5)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	plan, err := Build(ts, 60, 64, mts.ChannelFine, 440, 69)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(plan.Channels), 1)
	assert.LessOrEqual(t, len(plan.Channels), 5)

	for k := 60; k <= 64; k++ {
		route, ok := plan.Routing[k]
		require.True(t, ok)
		assert.Less(t, route.Channel, len(plan.Channels))
	}
}
