// Package mts implements the MIDI Tuning Standard SysEx message family:
// bit-exact encoders (and, where useful, decoders) for Full Keyboard,
// Single-Note, Scale/Octave 1-/2-byte, and Channel Fine tuning, plus the
// (non-SysEx) pitch-bend encoding used as a fifth retuning technique.
package mts

import (
	"fmt"
	"math"
)

// Technique names one of the five ways a synthesizer can be retuned.
type Technique int

const (
	Full Technique = iota
	SingleNote
	ScaleOctave1Byte
	ScaleOctave2Byte
	ChannelFine
	PitchBend
)

func (t Technique) String() string {
	switch t {
	case Full:
		return "full"
	case SingleNote:
		return "single-note"
	case ScaleOctave1Byte:
		return "octave-1"
	case ScaleOctave2Byte:
		return "octave-2"
	case ChannelFine:
		return "channel-fine"
	case PitchBend:
		return "pitch-bend"
	default:
		return fmt.Sprintf("technique(%d)", int(t))
	}
}

// ParseTechnique maps the CLI spelling of a technique to its Technique value.
func ParseTechnique(s string) (Technique, error) {
	switch s {
	case "full":
		return Full, nil
	case "single-note":
		return SingleNote, nil
	case "octave-1":
		return ScaleOctave1Byte, nil
	case "octave-2":
		return ScaleOctave2Byte, nil
	case "channel-fine":
		return ChannelFine, nil
	case "pitch-bend":
		return PitchBend, nil
	}
	return 0, fmt.Errorf("mts: unknown technique %q", s)
}

const (
	universalRealtime    byte = 0x7F
	universalNonRealtime byte = 0x7E
	subID1Tuning         byte = 0x08
	subID2FullKeyboard   byte = 0x01
	subID2SingleNote     byte = 0x02
	subID2Octave1Byte    byte = 0x08
	subID2Octave2Byte    byte = 0x09

	// SentinelByte, written as the semitone, MSB and LSB bytes, marks a
	// pitch outside the representable 0-127 semitone range.
	SentinelByte byte = 0x7F

	// fullKeyboardKeyCount is the number of keys a bulk dump carries, per
	// the byte layout: the count byte that follows the program number
	// is itself 0x7F (127), so a bulk dump covers keys 0..126.
	fullKeyboardKeyCount = 127
)

func checksum(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x & 0x7F
}

func wrapSysEx(universalID, devID byte, payload []byte) []byte {
	data := make([]byte, 0, len(payload)+1)
	data = append(data, devID)
	data = append(data, payload...)
	cks := checksum(data)

	msg := make([]byte, 0, len(data)+4)
	msg = append(msg, 0xF0, universalID)
	msg = append(msg, data...)
	msg = append(msg, cks, 0xF7)
	return msg
}

// Triple is the 3-byte per-key pitch encoding used by Full Keyboard and
// Single-Note tuning: the nearest 12-TET semitone at-or-below the target
// pitch, plus a 14-bit fraction-of-a-semitone above it.
type Triple struct {
	Semitone    byte
	MSB, LSB    byte
	OutOfRange  bool
}

// EncodeSemitoneTriple computes the Triple for hz against the given
// concert pitch anchor (concertHz at concertKey). An out-of-range pitch
// (below semitone 0 or at/above semitone 128) is encoded as the sentinel
// triple (0x7F, 0x7F, 0x7F).
func EncodeSemitoneTriple(hz, concertHz float64, concertKey int) Triple {
	exact := 12*math.Log2(hz/concertHz) + float64(concertKey)
	m := math.Floor(exact)
	if m < 0 || m >= 128 {
		return Triple{Semitone: SentinelByte, MSB: SentinelByte, LSB: SentinelByte, OutOfRange: true}
	}
	frac := exact - m
	v := int(math.Round(frac * 16384))
	if v > 16383 {
		v = 16383
	}
	if v < 0 {
		v = 0
	}
	return Triple{Semitone: byte(m), MSB: byte(v >> 7), LSB: byte(v & 0x7F)}
}

// PitchOf reverses EncodeSemitoneTriple (ignoring OutOfRange).
func (t Triple) PitchOf(concertHz float64, concertKey int) float64 {
	v := int(t.MSB)<<7 | int(t.LSB)
	exact := float64(t.Semitone) + float64(v)/16384
	semitonesFromConcert := exact - float64(concertKey)
	return concertHz * math.Exp2(semitonesFromConcert/12)
}

// PitchSource supplies the pitch sounding at a MIDI key, or ok=false if
// the key is unmapped.
type PitchSource func(key int) (hz float64, ok bool)

// EncodeFullKeyboard builds a Bulk Tuning Dump (Full Keyboard) SysEx
// message covering keys 0..126, per spec's documented byte layout
// `F0 7F <devID> 08 01 <program> 7F <127 triples> <checksum> F7`.
func EncodeFullKeyboard(devID, program byte, concertHz float64, concertKey int, source PitchSource) []byte {
	payload := make([]byte, 0, 4+fullKeyboardKeyCount*3)
	payload = append(payload, subID1Tuning, subID2FullKeyboard, program, fullKeyboardKeyCount)
	for key := 0; key < fullKeyboardKeyCount; key++ {
		hz, ok := source(key)
		var t Triple
		if ok {
			t = EncodeSemitoneTriple(hz, concertHz, concertKey)
		} else {
			t = Triple{Semitone: SentinelByte, MSB: SentinelByte, LSB: SentinelByte, OutOfRange: true}
		}
		payload = append(payload, t.Semitone, t.MSB, t.LSB)
	}
	return wrapSysEx(universalRealtime, devID, payload)
}

// CountOutOfRange reports how many of keys 0..126 would encode to the
// out-of-range sentinel for the given source.
func CountOutOfRange(concertHz float64, concertKey int, source PitchSource) int {
	n := 0
	for key := 0; key < fullKeyboardKeyCount; key++ {
		hz, ok := source(key)
		if !ok {
			n++
			continue
		}
		if EncodeSemitoneTriple(hz, concertHz, concertKey).OutOfRange {
			n++
		}
	}
	return n
}

// NoteEntry is one key's retuning in a Single-Note Tuning Change.
type NoteEntry struct {
	Key   byte
	Triple Triple
}

// EncodeSingleNote builds a Single-Note Tuning Change SysEx message for
// an arbitrary subset of keys: `F0 7F <devID> 08 02 <program> <count>
// <count x (key, semitone, msb, lsb)> <checksum> F7`.
func EncodeSingleNote(devID, program byte, entries []NoteEntry) []byte {
	payload := make([]byte, 0, 4+len(entries)*4)
	payload = append(payload, subID1Tuning, subID2SingleNote, program, byte(len(entries)))
	for _, e := range entries {
		payload = append(payload, e.Key, e.Triple.Semitone, e.Triple.MSB, e.Triple.LSB)
	}
	return wrapSysEx(universalRealtime, devID, payload)
}

const maxBitmapChannels = 14

func channelBitmap(channels []int) ([2]byte, error) {
	var bitmap [2]byte
	for _, ch := range channels {
		if ch < 0 || ch >= maxBitmapChannels {
			return bitmap, fmt.Errorf("mts: channel %d is outside the 2-byte bitmap's 0-%d range", ch, maxBitmapChannels-1)
		}
		if ch < 7 {
			bitmap[0] |= 1 << uint(ch)
		} else {
			bitmap[1] |= 1 << uint(ch-7)
		}
	}
	return bitmap, nil
}

// Octave1ByteOffset encodes a cents offset in [-50, +50) as a single
// 7-bit byte, center (0 cents) at 0x40, resolution 100/128 ≈ 0.78 cents.
func Octave1ByteOffset(cents float64) byte {
	v := int(math.Round((cents + 50) / 100 * 128))
	if v < 0 {
		v = 0
	}
	if v > 127 {
		v = 127
	}
	return byte(v)
}

// DecodeOctave1ByteOffset reverses Octave1ByteOffset.
func DecodeOctave1ByteOffset(b byte) float64 {
	return float64(b)*100/128 - 50
}

// EncodeScaleOctave1Byte builds a Scale/Octave Tuning (1-byte form)
// message: `F0 7E <devID> 08 08 <2-byte channel bitmap> <12 offsets>
// <checksum> F7`. offsets[i] is the cents offset for note letter i
// (0=C .. 11=B).
func EncodeScaleOctave1Byte(devID byte, channels []int, offsets [12]float64) ([]byte, error) {
	bitmap, err := channelBitmap(channels)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 2+2+12)
	payload = append(payload, subID1Tuning, subID2Octave1Byte, bitmap[0], bitmap[1])
	for _, c := range offsets {
		payload = append(payload, Octave1ByteOffset(c))
	}
	return wrapSysEx(universalNonRealtime, devID, payload), nil
}

// Octave2ByteOffset encodes a cents offset in [-100, +100) as a 14-bit
// value, center (0 cents) at 8192, resolution 200/16384 ≈ 0.0061 cents.
func Octave2ByteOffset(cents float64) (msb, lsb byte) {
	v := int(math.Round((cents + 100) / 200 * 16384))
	if v < 0 {
		v = 0
	}
	if v > 16383 {
		v = 16383
	}
	return byte(v >> 7), byte(v & 0x7F)
}

// DecodeOctave2ByteOffset reverses Octave2ByteOffset.
func DecodeOctave2ByteOffset(msb, lsb byte) float64 {
	v := int(msb)<<7 | int(lsb)
	return float64(v)*200/16384 - 100
}

// EncodeScaleOctave2Byte builds a Scale/Octave Tuning (2-byte form)
// message: `F0 7E <devID> 08 09 <2-byte channel bitmap> <12 x (msb,lsb)>
// <checksum> F7`.
func EncodeScaleOctave2Byte(devID byte, channels []int, offsets [12]float64) ([]byte, error) {
	bitmap, err := channelBitmap(channels)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 2+2+24)
	payload = append(payload, subID1Tuning, subID2Octave2Byte, bitmap[0], bitmap[1])
	for _, c := range offsets {
		msb, lsb := Octave2ByteOffset(c)
		payload = append(payload, msb, lsb)
	}
	return wrapSysEx(universalNonRealtime, devID, payload), nil
}

// ChannelFineOffset encodes a cents offset in [-50, +50) as a 14-bit
// value centered at 8192, the same resolution class as Full/Single-Note
// (100/16384 ≈ 0.0061 cents), applied via RPN 0 (fine tuning) rather
// than SysEx: spec section 4.E gives an exact SysEx byte layout only for
// Full Keyboard, Single-Note, and the two Scale/Octave forms, so Channel
// Fine Tuning here follows the real-world MIDI RPN convention that every
// unmodified 12-TET synth already implements.
func ChannelFineOffset(cents float64) (msb, lsb byte) {
	v := int(math.Round((cents + 50) / 100 * 16384))
	if v < 0 {
		v = 0
	}
	if v > 16383 {
		v = 16383
	}
	return byte(v >> 7), byte(v & 0x7F)
}

// DecodeChannelFineOffset reverses ChannelFineOffset.
func DecodeChannelFineOffset(msb, lsb byte) float64 {
	v := int(msb)<<7 | int(lsb)
	return float64(v)*100/16384 - 50
}

// EncodeChannelFineRPN returns the six Control Change messages
// (channel, controller, value) that select RPN 0 (fine tuning), write
// the 14-bit offset, then deselect the RPN, for the given channel.
func EncodeChannelFineRPN(channel uint8, cents float64) [][3]byte {
	msb, lsb := ChannelFineOffset(cents)
	return [][3]byte{
		{channel, 101, 0},
		{channel, 100, 0},
		{channel, 6, msb},
		{channel, 38, lsb},
		{channel, 101, 127},
		{channel, 100, 127},
	}
}

// PitchBendValue encodes a cents offset in [-200, +200) (±2 semitones)
// as a 14-bit pitch-bend value centered at 8192.
func PitchBendValue(cents float64) (msb, lsb byte) {
	v := int(math.Round((cents + 200) / 400 * 16384))
	if v < 0 {
		v = 0
	}
	if v > 16383 {
		v = 16383
	}
	return byte(v >> 7), byte(v & 0x7F)
}

// DecodePitchBendValue reverses PitchBendValue.
func DecodePitchBendValue(msb, lsb byte) float64 {
	v := int(msb)<<7 | int(lsb)
	return float64(v)*400/16384 - 200
}

// CanRealize reports whether technique t can realize a detune of the
// given magnitude (signed cents) at all (true for every finite detune
// handled by Full/Single-Note/Octave-2/Channel-Fine; Octave-1 is
// quantized to 0.78-cent steps so it "realizes" any detune approximately;
// Pitch-Bend is bounded to ±200 cents).
func CanRealize(t Technique, cents float64) bool {
	switch t {
	case PitchBend:
		return cents >= -200 && cents < 200
	default:
		return true
	}
}
