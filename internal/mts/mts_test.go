package mts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
	"github.com/schollz/xentune/internal/tunedscale"
)

func TestSemitoneTripleRoundTrip(t *testing.T) {
	triple := EncodeSemitoneTriple(466.1638, 440, 69) // A#4
	assert.False(t, triple.OutOfRange)
	got := triple.PitchOf(440, 69)
	assert.InDelta(t, 466.1638, got, 0.01)
}

func TestSemitoneTripleOutOfRange(t *testing.T) {
	triple := EncodeSemitoneTriple(0.001, 440, 69)
	assert.True(t, triple.OutOfRange)
	assert.Equal(t, SentinelByte, triple.Semitone)
	assert.Equal(t, SentinelByte, triple.MSB)
	assert.Equal(t, SentinelByte, triple.LSB)
}

// TestFullKeyboardScenarioS6 reproduces spec scenario S6: Full Keyboard
// tuning for 7-EDO from key 62 over the full MIDI range.
func TestFullKeyboardScenarioS6(t *testing.T) {
	sc, err := scale.NewEqual(7, ratio.FromOctaves(1))
	require.NoError(t, err)
	mapping, err := kbm.NewLinear(62, 440, 62, 7)
	require.NoError(t, err)
	ts, err := tunedscale.New(sc, mapping)
	require.NoError(t, err)

	source := func(key int) (float64, bool) {
		p, ok := ts.KeyPitch(key)
		if !ok {
			return 0, false
		}
		return p.Hz(), true
	}

	msg := EncodeFullKeyboard(0x7F, 0x00, 440, 69, source)

	require.Equal(t, 7+fullKeyboardKeyCount*3+2, len(msg))
	assert.Equal(t, []byte{0xF0, 0x7F, 0x7F, 0x08, 0x01, 0x00, 0x7F}, msg[:7])
	assert.Equal(t, byte(0xF7), msg[len(msg)-1])

	oob := CountOutOfRange(440, 69, source)
	assert.Equal(t, 52, oob)
}

func TestFullKeyboardIdempotent(t *testing.T) {
	source := func(key int) (float64, bool) { return 440 * math.Pow(2, float64(key-69)/12), true }
	a := EncodeFullKeyboard(0x7F, 3, 440, 69, source)
	b := EncodeFullKeyboard(0x7F, 3, 440, 69, source)
	assert.Equal(t, a, b)
}

func TestSingleNoteLayout(t *testing.T) {
	entries := []NoteEntry{
		{Key: 60, Triple: EncodeSemitoneTriple(261.6256, 440, 69)},
		{Key: 61, Triple: EncodeSemitoneTriple(277.1826, 440, 69)},
	}
	msg := EncodeSingleNote(0x00, 5, entries)
	assert.Equal(t, []byte{0xF0, 0x7F, 0x00, 0x08, 0x02, 5, 2}, msg[:7])
	assert.Equal(t, byte(0xF7), msg[len(msg)-1])
	assert.Equal(t, 7+len(entries)*4+2, len(msg))
}

func TestOctave1ByteRoundTrip(t *testing.T) {
	for _, c := range []float64{-50, -12.5, 0, 12.5, 49} {
		b := Octave1ByteOffset(c)
		assert.InDelta(t, c, DecodeOctave1ByteOffset(b), 0.8)
	}
	assert.Equal(t, byte(0x40), Octave1ByteOffset(0))
}

func TestOctave2ByteRoundTrip(t *testing.T) {
	for _, c := range []float64{-100, -33.3, 0, 33.3, 99} {
		msb, lsb := Octave2ByteOffset(c)
		assert.InDelta(t, c, DecodeOctave2ByteOffset(msb, lsb), 0.01)
	}
	msb, lsb := Octave2ByteOffset(0)
	assert.Equal(t, byte(0x40), msb)
	assert.Equal(t, byte(0x00), lsb)
}

func TestScaleOctaveMessageLayout(t *testing.T) {
	var offsets [12]float64
	msg, err := EncodeScaleOctave1Byte(0x00, []int{0, 3}, offsets)
	require.NoError(t, err)
	assert.Equal(t, byte(0xF0), msg[0])
	assert.Equal(t, byte(0x7E), msg[1])
	assert.Equal(t, byte(0x08), msg[3])
	assert.Equal(t, byte(0x08), msg[4])
	assert.Equal(t, 21, len(msg)) // F0,7E,devID,sub1,sub2,bitmap(2),offsets(12),checksum,F7

	msg2, err := EncodeScaleOctave2Byte(0x00, []int{1}, offsets)
	require.NoError(t, err)
	assert.Equal(t, byte(0x09), msg2[4])

	_, err = EncodeScaleOctave1Byte(0x00, []int{20}, offsets)
	assert.Error(t, err)
}

func TestChannelFineRPNSequence(t *testing.T) {
	seq := EncodeChannelFineRPN(3, 25)
	require.Len(t, seq, 6)
	assert.Equal(t, [3]byte{3, 101, 0}, seq[0])
	assert.Equal(t, [3]byte{3, 100, 127}, seq[5])
	cents := DecodeChannelFineOffset(seq[2][2], seq[3][2])
	assert.InDelta(t, 25, cents, 0.01)
}

func TestPitchBendRoundTrip(t *testing.T) {
	for _, c := range []float64{-200, -50, 0, 50, 199} {
		msb, lsb := PitchBendValue(c)
		assert.InDelta(t, c, DecodePitchBendValue(msb, lsb), 0.03)
	}
	msb, lsb := PitchBendValue(0)
	assert.Equal(t, byte(0x40), msb)
	assert.Equal(t, byte(0x00), lsb)
}

func TestCanRealize(t *testing.T) {
	assert.True(t, CanRealize(Full, 5000))
	assert.True(t, CanRealize(PitchBend, 150))
	assert.False(t, CanRealize(PitchBend, 250))
}

func TestParseTechnique(t *testing.T) {
	for _, s := range []string{"full", "single-note", "octave-1", "octave-2", "channel-fine", "pitch-bend"} {
		_, err := ParseTechnique(s)
		assert.NoError(t, err)
	}
	_, err := ParseTechnique("bogus")
	assert.Error(t, err)
}
