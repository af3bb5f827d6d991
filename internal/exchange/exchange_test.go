package exchange

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
	"github.com/schollz/xentune/internal/tunedscale"
)

func build7EDO(t *testing.T) *tunedscale.TunedScale {
	t.Helper()
	sc, err := scale.NewEqual(7, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(62, 440, 62, 7)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)
	return ts
}

func TestScaleRoundTrip(t *testing.T) {
	ts := build7EDO(t)
	s, err := NewScale(ts, 62, 60, 70)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteScale(&buf, s))

	gotScale, gotDump, err := Read(&buf)
	require.NoError(t, err)
	require.Nil(t, gotDump)
	require.NotNil(t, gotScale)
	assert.Equal(t, s.RootKeyMIDINumber, gotScale.RootKeyMIDINumber)
	assert.InDelta(t, s.RootPitchInHz, gotScale.RootPitchInHz, 1e-9)
	assert.Equal(t, len(s.Items), len(gotScale.Items))
}

func TestDumpRoundTrip(t *testing.T) {
	d := &Dump{Items: []Item{{KeyMIDINumber: 60, PitchInHz: 261.6256}}}
	var buf bytes.Buffer
	require.NoError(t, WriteDump(&buf, d))

	gotScale, gotDump, err := Read(&buf)
	require.NoError(t, err)
	require.Nil(t, gotScale)
	require.NotNil(t, gotDump)
	assert.Equal(t, 1, len(gotDump.Items))
	assert.InDelta(t, 261.6256, gotDump.Items[0].PitchInHz, 1e-6)
}

func TestReadRejectsUnknownKind(t *testing.T) {
	_, _, err := Read(bytes.NewBufferString("kind: bogus\n"))
	assert.Error(t, err)
}
