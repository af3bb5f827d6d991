// Package partition implements the channel-partition planner: given a
// TunedScale over a contiguous key range and a target MTS technique, it
// computes the minimum number of distinct channel tunings such that
// every key in range is playable, plus the routing table from key to
// (channel, output note).
package partition

import (
	"math"
	"sort"

	"github.com/schollz/xentune/internal/mts"
	"github.com/schollz/xentune/internal/tunedscale"
)

// Route is where one input key is sent.
type Route struct {
	Channel int
	Note    byte
}

// ChannelTuning is one output channel's tuning table, in whichever shape
// its technique needs.
type ChannelTuning struct {
	Technique mts.Technique
	// FullTable: Full/Single-Note -- output 12-TET note -> desired Hz.
	FullTable map[byte]float64
	// PerLetter: Octave-1/2 -- cents offset by note letter (0=C..11=B).
	PerLetter [12]float64
	// Offset: Channel-Fine/Pitch-Bend -- single cents offset for the
	// whole channel.
	Offset float64
}

// Plan is the planner's deterministic output.
type Plan struct {
	Technique   mts.Technique
	Channels    []ChannelTuning
	Routing     map[int]Route
	Unmapped    []int // keys in range with no scale mapping
	OutOfRange  []int // keys whose pitch falls outside semitone 0-127
}

type keyInfo struct {
	key   int
	note  int // nearest semitone, may be outside [0,127]
	cents float64
	hz    float64
}

func computeKeyInfo(ts *tunedscale.TunedScale, lo, up int, concertHz float64, concertKey int) ([]keyInfo, []int) {
	var infos []keyInfo
	var unmapped []int
	for k := lo; k <= up; k++ {
		hz, ok := ts.KeyPitch(k)
		if !ok {
			unmapped = append(unmapped, k)
			continue
		}
		exact := 12*math.Log2(hz.Hz()/concertHz) + float64(concertKey)
		note := int(math.Round(exact))
		cents := (exact - float64(note)) * 100
		infos = append(infos, keyInfo{key: k, note: note, cents: cents, hz: hz.Hz()})
	}
	return infos, unmapped
}

func quantize(technique mts.Technique, cents float64) float64 {
	switch technique {
	case mts.ScaleOctave1Byte:
		return mts.DecodeOctave1ByteOffset(mts.Octave1ByteOffset(cents))
	case mts.ScaleOctave2Byte:
		msb, lsb := mts.Octave2ByteOffset(cents)
		return mts.DecodeOctave2ByteOffset(msb, lsb)
	case mts.ChannelFine:
		msb, lsb := mts.ChannelFineOffset(cents)
		return mts.DecodeChannelFineOffset(msb, lsb)
	case mts.PitchBend:
		msb, lsb := mts.PitchBendValue(cents)
		return mts.DecodePitchBendValue(msb, lsb)
	default:
		return cents
	}
}

// Build computes the channel partition for keys [lo, up] under technique.
func Build(ts *tunedscale.TunedScale, lo, up int, technique mts.Technique, concertHz float64, concertKey int) (*Plan, error) {
	infos, unmapped := computeKeyInfo(ts, lo, up, concertHz, concertKey)

	plan := &Plan{
		Technique: technique,
		Routing:   make(map[int]Route),
		Unmapped:  unmapped,
	}

	var inRange []keyInfo
	for _, info := range infos {
		if info.note < 0 || info.note >= 128 {
			plan.OutOfRange = append(plan.OutOfRange, info.key)
			continue
		}
		inRange = append(inRange, info)
	}

	switch technique {
	case mts.Full, mts.SingleNote:
		buildGlobal(plan, inRange)
	case mts.ScaleOctave1Byte, mts.ScaleOctave2Byte:
		buildPerLetter(plan, inRange, technique)
	case mts.ChannelFine, mts.PitchBend:
		buildPerChannelOffset(plan, inRange, technique)
	}

	return plan, nil
}

// buildGlobal assigns each in-range key to the first channel whose table
// does not already hold a different Hz at that key's rounded note, opening
// a new channel otherwise. Full/Single-Note tuning is one Hz per note
// number per channel, so two keys that round to the same note can only
// coexist on separate channels.
func buildGlobal(plan *Plan, infos []keyInfo) {
	var tables []map[byte]float64
	for _, info := range infos {
		note := byte(info.note)
		target := -1
		for i, tbl := range tables {
			if existing, ok := tbl[note]; !ok || existing == info.hz {
				target = i
				break
			}
		}
		if target < 0 {
			tables = append(tables, make(map[byte]float64))
			target = len(tables) - 1
		}
		tables[target][note] = info.hz
		plan.Routing[info.key] = Route{Channel: target, Note: note}
	}
	plan.Channels = make([]ChannelTuning, len(tables))
	for i, tbl := range tables {
		plan.Channels[i] = ChannelTuning{Technique: plan.Technique, FullTable: tbl}
	}
}

func buildPerLetter(plan *Plan, infos []keyInfo, technique mts.Technique) {
	var perLetter [12]map[float64]bool
	for i := range perLetter {
		perLetter[i] = make(map[float64]bool)
	}
	for _, info := range infos {
		letter := ((info.note % 12) + 12) % 12
		perLetter[letter][quantize(technique, info.cents)] = true
	}

	sortedByLetter := [12][]float64{}
	channelsNeeded := 1
	for l := 0; l < 12; l++ {
		vals := make([]float64, 0, len(perLetter[l]))
		for v := range perLetter[l] {
			vals = append(vals, v)
		}
		sort.Float64s(vals)
		sortedByLetter[l] = vals
		if len(vals) > channelsNeeded {
			channelsNeeded = len(vals)
		}
	}

	channels := make([]ChannelTuning, channelsNeeded)
	for c := 0; c < channelsNeeded; c++ {
		channels[c].Technique = technique
		for l := 0; l < 12; l++ {
			vals := sortedByLetter[l]
			if len(vals) == 0 {
				continue
			}
			idx := c
			if idx >= len(vals) {
				idx = len(vals) - 1
			}
			channels[c].PerLetter[l] = vals[idx]
		}
	}
	plan.Channels = channels

	indexOf := func(l int, v float64) int {
		for i, val := range sortedByLetter[l] {
			if val == v {
				return i
			}
		}
		return 0
	}
	for _, info := range infos {
		letter := ((info.note % 12) + 12) % 12
		q := quantize(technique, info.cents)
		channel := indexOf(letter, q)
		plan.Routing[info.key] = Route{Channel: channel, Note: byte(info.note)}
	}
}

func buildPerChannelOffset(plan *Plan, infos []keyInfo, technique mts.Technique) {
	distinctSet := make(map[float64]bool)
	for _, info := range infos {
		distinctSet[quantize(technique, info.cents)] = true
	}
	distinct := make([]float64, 0, len(distinctSet))
	for v := range distinctSet {
		distinct = append(distinct, v)
	}
	sort.Float64s(distinct)
	if len(distinct) == 0 {
		distinct = []float64{0}
	}

	channels := make([]ChannelTuning, len(distinct))
	for i, v := range distinct {
		channels[i] = ChannelTuning{Technique: technique, Offset: v}
	}
	plan.Channels = channels

	indexOf := func(v float64) int {
		for i, val := range distinct {
			if val == v {
				return i
			}
		}
		return 0
	}
	for _, info := range infos {
		q := quantize(technique, info.cents)
		plan.Routing[info.key] = Route{Channel: indexOf(q), Note: byte(info.note)}
	}
}
