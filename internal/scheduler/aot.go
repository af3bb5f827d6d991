// Package scheduler drives a MIDI input stream through a TunedScale and
// emits standard MIDI on an output port, either by pre-tuning a fixed set
// of channels once (AOT) or by retuning a small pool of channels on
// demand (JIT).
package scheduler

import (
	"context"
	"fmt"
	"log"

	"gitlab.com/gomidi/midi/v2"

	"github.com/schollz/xentune/internal/diagnostics"
	"github.com/schollz/xentune/internal/midiio"
	"github.com/schollz/xentune/internal/mts"
	"github.com/schollz/xentune/internal/partition"
	"github.com/schollz/xentune/internal/tunedscale"
	"github.com/schollz/xentune/internal/xerr"
)

// allNotesOffCC is CC 123, the standard MIDI "All Notes Off"
// channel-mode message.
const allNotesOffCC = 123

// Config carries the parameters common to both schedulers.
type Config struct {
	InputChannel int // MIDI channel (0-15) the scheduler listens on
	Lo, Up       int // key range the partition plan must cover
	Technique    mts.Technique
	ConcertHz    float64
	ConcertKey   int
	DeviceID     byte
	Debug        bool

	// Stats, if non-nil, receives counts of notes, drops, and clashes
	// observed while the scheduler runs. Nil disables counting.
	Stats *diagnostics.Stats
}

func (c Config) logf(format string, args ...any) {
	if c.Debug {
		log.Printf("[scheduler] "+format, args...)
	}
}

func (c Config) incNoteOn() {
	if c.Stats != nil {
		c.Stats.IncNoteOn()
	}
}

func (c Config) incNoteOff() {
	if c.Stats != nil {
		c.Stats.IncNoteOff()
	}
}

func (c Config) incDroppedKey() {
	if c.Stats != nil {
		c.Stats.IncDroppedKey()
	}
}

func (c Config) incOutOfRange() {
	if c.Stats != nil {
		c.Stats.IncOutOfRange()
	}
}

func (c Config) incClash() {
	if c.Stats != nil {
		c.Stats.IncClash()
	}
}

func (c Config) incUnmatchedNoteOff() {
	if c.Stats != nil {
		c.Stats.IncUnmatchedNoteOff()
	}
}

// AOT is the ahead-of-time scheduler: it pre-tunes every channel the
// partition plan calls for, builds a static key->(channel,note) lookup,
// and from then on the event loop does a table lookup per message.
type AOT struct {
	cfg     Config
	out     midiio.Sender
	plan    *partition.Plan
	stolen  int // out-of-range / unmapped keys observed at runtime, for diagnostics
}

// NewAOT plans the channel partition for ts over [cfg.Lo, cfg.Up] and
// sends the initial tuning messages to out.
func NewAOT(ts *tunedscale.TunedScale, out midiio.Sender, cfg Config) (*AOT, error) {
	plan, err := partition.Build(ts, cfg.Lo, cfg.Up, cfg.Technique, cfg.ConcertHz, cfg.ConcertKey)
	if err != nil {
		return nil, fmt.Errorf("scheduler: planning partition: %w", err)
	}

	a := &AOT{cfg: cfg, out: out, plan: plan}
	for i, ct := range plan.Channels {
		if err := a.applyTuning(i, ct); err != nil {
			return nil, fmt.Errorf("%w: applying startup tuning to channel %d: %v", xerr.ErrDeviceUnavailable, i, err)
		}
	}
	for range plan.Unmapped {
		cfg.incDroppedKey()
	}
	for range plan.OutOfRange {
		cfg.incOutOfRange()
	}
	cfg.logf("planned %d channel(s) for technique %s over keys [%d,%d], %d unmapped, %d out of range",
		len(plan.Channels), cfg.Technique, cfg.Lo, cfg.Up, len(plan.Unmapped), len(plan.OutOfRange))
	return a, nil
}

// Plan exposes the underlying partition, mainly for diagnostics and tests.
func (a *AOT) Plan() *partition.Plan { return a.plan }

func (a *AOT) applyTuning(channel int, ct partition.ChannelTuning) error {
	switch ct.Technique {
	case mts.Full, mts.SingleNote:
		source := func(key int) (float64, bool) {
			hz, ok := ct.FullTable[byte(key)]
			return hz, ok
		}
		msg := mts.EncodeFullKeyboard(a.cfg.DeviceID, byte(channel), a.cfg.ConcertHz, a.cfg.ConcertKey, source)
		return a.out.Send(msg)
	case mts.ScaleOctave1Byte:
		msg, err := mts.EncodeScaleOctave1Byte(a.cfg.DeviceID, []int{channel}, ct.PerLetter)
		if err != nil {
			return err
		}
		return a.out.Send(msg)
	case mts.ScaleOctave2Byte:
		msg, err := mts.EncodeScaleOctave2Byte(a.cfg.DeviceID, []int{channel}, ct.PerLetter)
		if err != nil {
			return err
		}
		return a.out.Send(msg)
	case mts.ChannelFine:
		return a.sendRPNSequence(uint8(channel), ct.Offset)
	case mts.PitchBend:
		return a.out.Send(pitchBendMessage(uint8(channel), ct.Offset))
	}
	return nil
}

func (a *AOT) sendRPNSequence(channel uint8, cents float64) error {
	for _, cc := range mts.EncodeChannelFineRPN(channel, cents) {
		if err := a.out.Send(midi.ControlChange(cc[0], cc[1], cc[2])); err != nil {
			return err
		}
	}
	return nil
}

// pitchBendMessage converts a cents offset to the relative 14-bit value
// midi.Pitchbend expects (signed around center, not the raw msb/lsb pair).
func pitchBendMessage(channel uint8, cents float64) []byte {
	msb, lsb := mts.PitchBendValue(cents)
	v := int(msb)<<7 | int(lsb)
	return midi.Pitchbend(channel, int16(v-8192))
}

// identityResetMessages returns the messages that return channel c to an
// untuned identity state, used at shutdown.
func identityResetMessages(technique mts.Technique, channel int) [][]byte {
	switch technique {
	case mts.ChannelFine:
		var msgs [][]byte
		for _, cc := range mts.EncodeChannelFineRPN(uint8(channel), 0) {
			msgs = append(msgs, midi.ControlChange(cc[0], cc[1], cc[2]))
		}
		return msgs
	case mts.PitchBend:
		return [][]byte{midi.Pitchbend(uint8(channel), 0)}
	default:
		return nil
	}
}

// Run drains in.Event until ctx is cancelled, translating each message per
// the AOT routing table and writing to out. A key-bearing message
// (NoteOn/NoteOff/PolyAftertouch) is rewritten to its planned (channel,
// note); ControlChange and ProgramChange are broadcast to every channel
// the partition allocated, and PitchBend to every allocated channel whose
// technique is not pitch-bend. Channel aftertouch and other messages are
// not forwarded. On return (context cancellation) it sends
// AllNotesOff and resets every channel's tuning to identity.
func (a *AOT) Run(ctx context.Context, in *midiio.In) error {
	defer a.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-in.Event:
			if !ok {
				return nil
			}
			a.handle(ev.Data)
		}
	}
}

func (a *AOT) handle(msg mtsMessage) {
	m := midi.Message(msg)
	var ch, key, vel uint8
	var pressure uint8
	var bendRel int16
	var bendAbs uint16
	var cc, ccVal uint8
	var program uint8

	switch {
	case m.GetNoteOn(&ch, &key, &vel):
		if int(ch) != a.cfg.InputChannel {
			return
		}
		a.cfg.incNoteOn()
		a.routeKeyed(int(key), func(outCh int, note byte) []byte { return midi.NoteOn(uint8(outCh), note, vel) })
	case m.GetNoteOff(&ch, &key, &vel):
		if int(ch) != a.cfg.InputChannel {
			return
		}
		a.cfg.incNoteOff()
		a.routeKeyed(int(key), func(outCh int, note byte) []byte { return midi.NoteOff(uint8(outCh), note) })
	case m.GetPolyAfterTouch(&ch, &key, &pressure):
		if int(ch) != a.cfg.InputChannel {
			return
		}
		a.routeKeyed(int(key), func(outCh int, note byte) []byte { return midi.PolyAfterTouch(uint8(outCh), note, pressure) })
	case m.GetPitchBend(&ch, &bendRel, &bendAbs):
		if int(ch) != a.cfg.InputChannel {
			return
		}
		a.broadcastExcept(mts.PitchBend, msg)
	case m.GetControlChange(&ch, &cc, &ccVal):
		if int(ch) != a.cfg.InputChannel {
			return
		}
		a.broadcastAll(msg)
	case m.GetProgramChange(&ch, &program):
		if int(ch) != a.cfg.InputChannel {
			return
		}
		a.broadcastAll(msg)
	}
}

type mtsMessage = []byte

func (a *AOT) routeKeyed(key int, build func(outCh int, note byte) []byte) {
	route, ok := a.plan.Routing[key]
	if !ok {
		a.stolen++
		a.cfg.incDroppedKey()
		a.cfg.logf("dropping event for unrouted key %d", key)
		return
	}
	if err := a.out.Send(build(route.Channel, route.Note)); err != nil {
		a.cfg.logf("%v: send failed for key %d on channel %d", xerr.ErrDeviceUnavailable, key, route.Channel)
	}
}

// broadcastAll sends msg, with its channel nibble rewritten, to every
// output channel the partition owns.
func (a *AOT) broadcastAll(msg []byte) {
	for ch := range a.plan.Channels {
		rewritten := append([]byte(nil), msg...)
		if len(rewritten) > 0 && rewritten[0]&0xF0 != 0xF0 {
			rewritten[0] = (rewritten[0] & 0xF0) | byte(ch)
		}
		if err := a.out.Send(rewritten); err != nil {
			a.cfg.logf("broadcast to channel %d failed: %v", ch, err)
		}
	}
}

// broadcastExcept broadcasts msg to every channel except those whose
// technique is the one passed in, since those channels' pitch-bend is
// owned by the tuning table, not the player's incoming bend.
func (a *AOT) broadcastExcept(suppressed mts.Technique, msg []byte) {
	for ch, ct := range a.plan.Channels {
		if ct.Technique == suppressed {
			continue
		}
		rewritten := append([]byte(nil), msg...)
		rewritten[0] = (rewritten[0] & 0xF0) | byte(ch)
		if err := a.out.Send(rewritten); err != nil {
			a.cfg.logf("broadcast to channel %d failed: %v", ch, err)
		}
	}
}

func (a *AOT) shutdown() {
	for ch := range a.plan.Channels {
		_ = a.out.Send(midi.ControlChange(uint8(ch), allNotesOffCC, 0))
		for _, reset := range identityResetMessages(a.cfg.Technique, ch) {
			_ = a.out.Send(reset)
		}
	}
}
