package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/gomidi/midi/v2"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/mts"
	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
	"github.com/schollz/xentune/internal/tunedscale"
)

// fakeSender records every message handed to it, standing in for an
// opened midiio.Out in tests that never touch real hardware.
type fakeSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSender) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), msg...)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeSender) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

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

func TestAOTStartupTotalityAndRouting(t *testing.T) {
	ts := build12TET(t)
	out := &fakeSender{}
	cfg := Config{InputChannel: 0, Lo: 60, Up: 72, Technique: mts.Full, ConcertHz: 440, ConcertKey: 69, DeviceID: 0x7F}
	a, err := NewAOT(ts, out, cfg)
	require.NoError(t, err)

	// invariant 4: AOT totality.
	for k := 60; k <= 72; k++ {
		_, ok := a.Plan().Routing[k]
		assert.True(t, ok, "key %d should be routed", k)
	}
	require.Len(t, out.messages(), 1, "Full technique needs exactly one startup tuning dump")
}

func TestAOTRoutesNoteOnOffToPlannedChannel(t *testing.T) {
	ts := build12TET(t)
	out := &fakeSender{}
	cfg := Config{InputChannel: 0, Lo: 60, Up: 72, Technique: mts.Full, ConcertHz: 440, ConcertKey: 69, DeviceID: 0x7F}
	a, err := NewAOT(ts, out, cfg)
	require.NoError(t, err)

	startCount := len(out.messages())
	a.handle(midi.NoteOn(0, 64, 100))
	a.handle(midi.NoteOff(0, 64))

	msgs := out.messages()[startCount:]
	require.Len(t, msgs, 2)
	var ch, key, vel uint8
	require.True(t, midi.Message(msgs[0]).GetNoteOn(&ch, &key, &vel))
	route := a.Plan().Routing[64]
	assert.Equal(t, byte(route.Channel), ch)
	assert.Equal(t, route.Note, key)
}

func TestAOTBroadcastsProgramChange(t *testing.T) {
	sc, err := scale.NewEqual(16, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(62, 440, 62, 16)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	out := &fakeSender{}
	cfg := Config{InputChannel: 0, Lo: 0, Up: 127, Technique: mts.ScaleOctave1Byte, ConcertHz: 440, ConcertKey: 69, DeviceID: 0x00}
	a, err := NewAOT(ts, out, cfg)
	require.NoError(t, err)
	require.Greater(t, len(a.Plan().Channels), 1, "16-EDO puts two detunes on some note letter, so it needs more than one channel")

	startCount := len(out.messages())
	a.handle(midi.ProgramChange(0, 5))
	msgs := out.messages()[startCount:]
	assert.Len(t, msgs, len(a.Plan().Channels))
	for i, m := range msgs {
		var ch, program uint8
		require.True(t, midi.Message(m).GetProgramChange(&ch, &program))
		assert.Equal(t, byte(i), ch)
		assert.Equal(t, byte(5), program)
	}
}

// TestJITClashStealsOldestBeforeAssigning reproduces scenario S4: pool
// size 3, pitch-bend technique, four NoteOns with distinct detunes; the
// fourth forces steal-oldest, whose NoteOff for the first key must appear
// before the fourth NoteOn.
func TestJITClashStealsOldestBeforeAssigning(t *testing.T) {
	sc, err := scale.NewEqual(7, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(60, 440, 60, 7)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	out := &fakeSender{}
	cfg := Config{InputChannel: 0, Lo: 60, Up: 70, Technique: mts.PitchBend, ConcertHz: 440, ConcertKey: 69, DeviceID: 0}
	j, err := NewJIT(ts, out, cfg, 3, StealOldest)
	require.NoError(t, err)

	j.NoteOn(60, 100)
	j.NoteOn(61, 100)
	j.NoteOn(62, 100)
	startCount := len(out.messages())
	j.NoteOn(63, 100)

	msgs := out.messages()[startCount:]
	require.NotEmpty(t, msgs)

	noteOffIdx, noteOnIdx := -1, -1
	for i, m := range msgs {
		mm := midi.Message(m)
		var ch, key, vel uint8
		if noteOffIdx < 0 && mm.GetNoteOff(&ch, &key, &vel) {
			noteOffIdx = i
		}
		if mm.GetNoteOn(&ch, &key, &vel) {
			noteOnIdx = i
		}
	}
	require.GreaterOrEqual(t, noteOffIdx, 0, "a NoteOff for the stolen voice must be sent")
	require.GreaterOrEqual(t, noteOnIdx, 0, "a NoteOn for the new voice must be sent")
	assert.Less(t, noteOffIdx, noteOnIdx, "steal-oldest must emit NoteOff before the stealer's NoteOn")
}

// TestJITBalancedAtEndOfStream reproduces invariant 5: once every NoteOn
// has a matching NoteOff, the held map is empty and the pool is idle.
func TestJITBalancedAtEndOfStream(t *testing.T) {
	sc, err := scale.NewEqual(5, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(60, 440, 60, 5)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	out := &fakeSender{}
	cfg := Config{InputChannel: 0, Lo: 60, Up: 64, Technique: mts.ChannelFine, ConcertHz: 440, ConcertKey: 69, DeviceID: 0}
	j, err := NewJIT(ts, out, cfg, 2, StealOldest)
	require.NoError(t, err)

	keys := []int{60, 61, 62, 60, 61, 62}
	for _, k := range keys {
		j.NoteOn(k, 90)
		j.NoteOff(k)
	}
	assert.True(t, j.Idle())
	for _, ch := range j.pool {
		assert.True(t, ch.idle)
		assert.Nil(t, ch.held)
	}
}

func TestJITDropsUnmappedKeyAndItsNoteOff(t *testing.T) {
	sc, err := scale.NewEqual(5, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.New(60, 440, 60, []int{0, 1, kbm.UnmappedDegree, 2, 3}, 5)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	out := &fakeSender{}
	cfg := Config{InputChannel: 0, Lo: 60, Up: 64, Technique: mts.PitchBend, ConcertHz: 440, ConcertKey: 69, DeviceID: 0}
	j, err := NewJIT(ts, out, cfg, 2, StealOldest)
	require.NoError(t, err)

	j.NoteOn(62, 90) // unmapped per pattern above
	assert.True(t, j.Idle())
	j.NoteOff(62)
	assert.True(t, j.Idle())
}

func TestParseClashPolicy(t *testing.T) {
	for _, s := range []string{"steal-oldest", "steal-quietest", "drop-new", "sound-untuned"} {
		_, err := ParseClashPolicy(s)
		assert.NoError(t, err)
	}
	_, err := ParseClashPolicy("bogus")
	assert.Error(t, err)
}
