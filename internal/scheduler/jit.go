package scheduler

import (
	"context"
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/schollz/xentune/internal/midiio"
	"github.com/schollz/xentune/internal/mts"
	"github.com/schollz/xentune/internal/tunedscale"
	"github.com/schollz/xentune/internal/xerr"
)

// ClashPolicy names how the JIT scheduler behaves when every pool channel
// is busy and a new key needs a channel.
type ClashPolicy int

const (
	StealOldest ClashPolicy = iota
	StealQuietest
	DropNew
	SoundUntuned
)

func (p ClashPolicy) String() string {
	switch p {
	case StealOldest:
		return "steal-oldest"
	case StealQuietest:
		return "steal-quietest"
	case DropNew:
		return "drop-new"
	case SoundUntuned:
		return "sound-untuned"
	default:
		return "unknown"
	}
}

// ParseClashPolicy maps the CLI spelling to a ClashPolicy.
func ParseClashPolicy(s string) (ClashPolicy, error) {
	switch s {
	case "steal-oldest":
		return StealOldest, nil
	case "steal-quietest":
		return StealQuietest, nil
	case "drop-new":
		return DropNew, nil
	case "sound-untuned":
		return SoundUntuned, nil
	}
	return 0, fmt.Errorf("scheduler: unknown clash policy %q", s)
}

// voice is what the JIT scheduler remembers about one held note.
type voice struct {
	inChannel, inKey int
	outChannel       int
	outNote          byte
	velocity         byte
	detune           float64
	age              int // monotonic counter, lower = older
}

// jitChannel is one pool channel's live tuning state.
type jitChannel struct {
	idle          bool
	lastDetune    float64
	haveDetune    bool
	tunedNote     byte // Full/Single-Note: the note currently tuned on this channel
	haveTunedNote bool
	held          *voice
}

// JIT is the just-in-time scheduler: a small pool of channels, each
// retuned on demand as notes are held and released.
type JIT struct {
	cfg     Config
	ts      *tunedscale.TunedScale
	out     midiio.Sender
	policy  ClashPolicy
	pool    []jitChannel
	held    map[[2]int]*voice // (inChannel, inKey) -> voice
	dropped map[[2]int]bool   // unmapped keys whose NoteOff should also be dropped
	clock   int
	lru     []int // idle channel indices, front = least-recently-used
}

// NewJIT builds a JIT scheduler with a pool of size poolSize over ts.
func NewJIT(ts *tunedscale.TunedScale, out midiio.Sender, cfg Config, poolSize int, policy ClashPolicy) (*JIT, error) {
	if poolSize < 1 {
		return nil, fmt.Errorf("scheduler: pool size must be at least 1, got %d", poolSize)
	}
	j := &JIT{
		cfg:     cfg,
		ts:      ts,
		out:     out,
		policy:  policy,
		pool:    make([]jitChannel, poolSize),
		held:    make(map[[2]int]*voice),
		dropped: make(map[[2]int]bool),
	}
	for i := range j.pool {
		j.pool[i].idle = true
		j.lru = append(j.lru, i)
	}
	cfg.logf("JIT pool of %d channel(s), clash policy %s", poolSize, policy)
	return j, nil
}

func (j *JIT) keyInfo(key int) (note int, cents float64, ok bool) {
	hz, mapped := j.ts.KeyPitch(key)
	if !mapped {
		return 0, 0, false
	}
	exact := 12*math.Log2(hz.Hz()/j.cfg.ConcertHz) + float64(j.cfg.ConcertKey)
	n := int(math.Round(exact))
	if n < 0 || n >= 128 {
		return 0, 0, false
	}
	return n, (exact - float64(n)) * 100, true
}

// findReusable returns the index of a busy channel whose current tuning
// already realizes (note, cents), or -1.
func (j *JIT) findReusable(note int, cents float64) int {
	for i, ch := range j.pool {
		if ch.idle {
			continue
		}
		switch j.cfg.Technique {
		case mts.Full, mts.SingleNote:
			if ch.haveTunedNote && int(ch.tunedNote) == note && ch.haveDetune && quantizeEqual(j.cfg.Technique, ch.lastDetune, cents) {
				return i
			}
		default:
			if ch.haveDetune && quantizeEqual(j.cfg.Technique, ch.lastDetune, cents) {
				return i
			}
		}
	}
	return -1
}

func quantizeEqual(technique mts.Technique, a, b float64) bool {
	q := func(c float64) float64 {
		switch technique {
		case mts.ScaleOctave1Byte:
			return mts.DecodeOctave1ByteOffset(mts.Octave1ByteOffset(c))
		case mts.ScaleOctave2Byte:
			msb, lsb := mts.Octave2ByteOffset(c)
			return mts.DecodeOctave2ByteOffset(msb, lsb)
		case mts.ChannelFine:
			msb, lsb := mts.ChannelFineOffset(c)
			return mts.DecodeChannelFineOffset(msb, lsb)
		case mts.PitchBend:
			msb, lsb := mts.PitchBendValue(c)
			return mts.DecodePitchBendValue(msb, lsb)
		default:
			return c
		}
	}
	return q(a) == q(b)
}

// retune sends whatever MTS message the technique needs to make channel
// idx realize (note, cents), recording the new state.
func (j *JIT) retune(idx, note int, cents float64) error {
	switch j.cfg.Technique {
	case mts.Full, mts.SingleNote:
		hz := j.cfg.ConcertHz * math.Exp2((float64(note)+cents/100-float64(j.cfg.ConcertKey))/12)
		entry := mts.NoteEntry{Key: byte(note), Triple: mts.EncodeSemitoneTriple(hz, j.cfg.ConcertHz, j.cfg.ConcertKey)}
		msg := mts.EncodeSingleNote(j.cfg.DeviceID, byte(idx), []mts.NoteEntry{entry})
		if err := j.out.Send(msg); err != nil {
			return err
		}
		j.pool[idx].tunedNote = byte(note)
		j.pool[idx].haveTunedNote = true
	case mts.ScaleOctave1Byte, mts.ScaleOctave2Byte:
		var offsets [12]float64
		letter := ((note % 12) + 12) % 12
		offsets[letter] = cents
		var err error
		var msg []byte
		if j.cfg.Technique == mts.ScaleOctave1Byte {
			msg, err = mts.EncodeScaleOctave1Byte(j.cfg.DeviceID, []int{idx}, offsets)
		} else {
			msg, err = mts.EncodeScaleOctave2Byte(j.cfg.DeviceID, []int{idx}, offsets)
		}
		if err != nil {
			return err
		}
		if err := j.out.Send(msg); err != nil {
			return err
		}
	case mts.ChannelFine:
		if err := j.sendRPNSequence(uint8(idx), cents); err != nil {
			return err
		}
	case mts.PitchBend:
		if err := j.out.Send(pitchBendMessage(uint8(idx), cents)); err != nil {
			return err
		}
	}
	j.pool[idx].lastDetune = cents
	j.pool[idx].haveDetune = true
	return nil
}

func (j *JIT) sendRPNSequence(channel uint8, cents float64) error {
	for _, cc := range mts.EncodeChannelFineRPN(channel, cents) {
		if err := j.out.Send(midi.ControlChange(cc[0], cc[1], cc[2])); err != nil {
			return err
		}
	}
	return nil
}

func (j *JIT) popIdle() (int, bool) {
	for i, ch := range j.lru {
		if j.pool[ch].idle {
			j.lru = append(j.lru[:i], j.lru[i+1:]...)
			return ch, true
		}
	}
	return 0, false
}

func (j *JIT) pushIdle(ch int) {
	j.pool[ch].idle = true
	j.pool[ch].held = nil
	j.lru = append(j.lru, ch)
}

// oldest returns the index of the channel holding the voice with the
// smallest age (the first one allocated and not yet released).
func (j *JIT) oldest() int {
	best := -1
	bestAge := math.MaxInt
	for i, ch := range j.pool {
		if !ch.idle && ch.held != nil && ch.held.age < bestAge {
			best = i
			bestAge = ch.held.age
		}
	}
	return best
}

// quietest returns the index of the busy channel holding the voice with
// the lowest velocity.
func (j *JIT) quietest() int {
	best := -1
	bestVel := 256
	for i, ch := range j.pool {
		if !ch.idle && ch.held != nil && int(ch.held.velocity) < bestVel {
			best = i
			bestVel = int(ch.held.velocity)
		}
	}
	return best
}

// NoteOn handles a key press on the configured input channel. It returns
// without error even when the note is dropped; dropping is recorded via
// logging, matching the spec's "runtime errors never propagate" rule.
func (j *JIT) NoteOn(inKey int, velocity byte) {
	note, cents, ok := j.keyInfo(inKey)
	if !ok {
		j.dropped[[2]int{j.cfg.InputChannel, inKey}] = true
		j.cfg.incDroppedKey()
		j.cfg.logf("NoteOn for unmapped/out-of-range key %d dropped", inKey)
		return
	}
	delete(j.dropped, [2]int{j.cfg.InputChannel, inKey})

	if idx := j.findReusable(note, cents); idx >= 0 {
		j.assign(idx, inKey, note, velocity, cents)
		return
	}

	if idx, ok := j.popIdle(); ok {
		if err := j.retune(idx, note, cents); err != nil {
			j.cfg.logf("retune failed on channel %d, sounding untuned: %v", idx, err)
		}
		j.assign(idx, inKey, note, velocity, cents)
		return
	}

	j.handleClash(inKey, note, velocity, cents)
}

func (j *JIT) assign(idx, inKey, note int, velocity byte, cents float64) {
	v := &voice{
		inChannel: j.cfg.InputChannel,
		inKey:     inKey,
		outChannel: idx,
		outNote:    byte(note),
		velocity:   velocity,
		detune:     cents,
		age:        j.clock,
	}
	j.clock++
	j.pool[idx].idle = false
	j.pool[idx].held = v
	j.held[[2]int{j.cfg.InputChannel, inKey}] = v
	if err := j.out.Send(midi.NoteOn(uint8(idx), byte(note), velocity)); err != nil {
		j.cfg.logf("%v: NoteOn send failed on channel %d", xerr.ErrDeviceUnavailable, idx)
	}
	j.cfg.incNoteOn()
}

func (j *JIT) handleClash(inKey, note int, velocity byte, cents float64) {
	j.cfg.incClash()
	switch j.policy {
	case StealOldest:
		idx := j.oldest()
		j.steal(idx, inKey, note, velocity, cents)
	case StealQuietest:
		idx := j.quietest()
		j.steal(idx, inKey, note, velocity, cents)
	case DropNew:
		j.cfg.logf("pool exhausted, dropping new key %d (drop-new)", inKey)
	case SoundUntuned:
		j.cfg.logf("pool exhausted, sounding key %d untuned (sound-untuned)", inKey)
		if err := j.out.Send(midi.NoteOn(uint8(j.cfg.InputChannel), byte(note), velocity)); err != nil {
			j.cfg.logf("sound-untuned send failed: %v", err)
		}
	}
}

// steal reclaims channel idx: emits NoteOff for the note it was holding
// before retuning and assigning the new note, so the stolen NoteOff is
// always observed before the stealer's NoteOn.
func (j *JIT) steal(idx int, inKey, note int, velocity byte, cents float64) {
	if idx < 0 {
		j.cfg.logf("no channel available to steal for key %d", inKey)
		return
	}
	victim := j.pool[idx].held
	if victim != nil {
		if err := j.out.Send(midi.NoteOff(uint8(victim.outChannel), victim.outNote)); err != nil {
			j.cfg.logf("steal NoteOff failed: %v", err)
		}
		delete(j.held, [2]int{victim.inChannel, victim.inKey})
	}
	if err := j.retune(idx, note, cents); err != nil {
		j.cfg.logf("retune failed while stealing channel %d: %v", idx, err)
	}
	j.assign(idx, inKey, note, velocity, cents)
}

// NoteOff handles a key release on the configured input channel.
func (j *JIT) NoteOff(inKey int) {
	k := [2]int{j.cfg.InputChannel, inKey}
	if j.dropped[k] {
		delete(j.dropped, k)
		return
	}
	v, ok := j.held[k]
	if !ok {
		// unmatched NoteOff: per the open question on edge cases, treat as
		// a silent no-op and log it.
		j.cfg.incUnmatchedNoteOff()
		j.cfg.logf("NoteOff for key %d with no matching NoteOn, ignored", inKey)
		return
	}
	delete(j.held, k)
	if err := j.out.Send(midi.NoteOff(uint8(v.outChannel), v.outNote)); err != nil {
		j.cfg.logf("%v: NoteOff send failed on channel %d", xerr.ErrDeviceUnavailable, v.outChannel)
	}
	j.cfg.incNoteOff()
	j.pushIdle(v.outChannel)
}

// Idle reports whether every pool channel is currently idle, i.e. no
// voice is held. Used by tests to verify invariant 5 (JIT balanced notes).
func (j *JIT) Idle() bool {
	return len(j.held) == 0
}

// broadcastCC sends a channel-voice message without a key (ProgramChange,
// ControlChange, PitchBend) to every pool channel, in input order. handle
// does not forward channel aftertouch, and under the pitch-bend technique
// it does not pass incoming PitchBend here, so the per-note pitch-bend
// that retune sets for a channel's detune is not overwritten.
func (j *JIT) broadcastCC(msg []byte) {
	for idx := range j.pool {
		rewritten := append([]byte(nil), msg...)
		rewritten[0] = (rewritten[0] & 0xF0) | byte(idx)
		if err := j.out.Send(rewritten); err != nil {
			j.cfg.logf("broadcast to channel %d failed: %v", idx, err)
		}
	}
}

// Run drains in.Event until ctx is cancelled. On return it sends
// AllNotesOff and resets every pool channel's tuning to identity.
func (j *JIT) Run(ctx context.Context, in *midiio.In) error {
	defer j.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-in.Event:
			if !ok {
				return nil
			}
			j.handle(ev.Data)
		}
	}
}

func (j *JIT) handle(msg []byte) {
	m := midi.Message(msg)
	var ch, key, vel, program, cc, ccVal uint8
	var bendRel int16
	var bendAbs uint16

	switch {
	case m.GetNoteOn(&ch, &key, &vel):
		if int(ch) != j.cfg.InputChannel {
			return
		}
		if vel == 0 {
			j.NoteOff(int(key))
			return
		}
		j.NoteOn(int(key), vel)
	case m.GetNoteOff(&ch, &key, &vel):
		if int(ch) != j.cfg.InputChannel {
			return
		}
		j.NoteOff(int(key))
	case m.GetPitchBend(&ch, &bendRel, &bendAbs):
		if int(ch) != j.cfg.InputChannel {
			return
		}
		if j.cfg.Technique == mts.PitchBend {
			return
		}
		j.broadcastCC(msg)
	case m.GetControlChange(&ch, &cc, &ccVal):
		if int(ch) != j.cfg.InputChannel {
			return
		}
		j.broadcastCC(msg)
	case m.GetProgramChange(&ch, &program):
		if int(ch) != j.cfg.InputChannel {
			return
		}
		j.broadcastCC(msg)
	}
}

func (j *JIT) shutdown() {
	for idx := range j.pool {
		_ = j.out.Send(midi.ControlChange(uint8(idx), allNotesOffCC, 0))
		for _, reset := range identityResetMessages(j.cfg.Technique, idx) {
			_ = j.out.Send(reset)
		}
	}
	j.held = make(map[[2]int]*voice)
	for i := range j.pool {
		j.pool[i].idle = true
		j.pool[i].held = nil
	}
}
