// Package midiio is the thin, swappable boundary between the scheduler
// and an actual MIDI transport. It follows the same open/close/mutex
// shape as the teacher's midiconnector package, generalized from
// note-on/note-off convenience calls to raw message Send, since the
// scheduler needs to emit SysEx tuning dumps as well as channel-voice
// messages.
package midiio

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/schollz/xentune/internal/xerr"
)

// InPorts lists available MIDI input port names.
func InPorts() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// OutPorts lists available MIDI output port names.
func OutPorts() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// Sender is the minimal surface the scheduler needs from an output port;
// satisfied by *Out and by fakes in scheduler tests.
type Sender interface {
	Send(msg []byte) error
}

// Out is an opened MIDI output port.
type Out struct {
	mu   sync.Mutex
	name string
	port drivers.Out
}

// OpenOut opens the named output port (or the first port containing name
// as a substring, case-insensitively, the same fallback the teacher's
// midiconnector uses).
func OpenOut(name string) (*Out, error) {
	port, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("%w: output port %q: %v", xerr.ErrDeviceUnavailable, name, err)
	}
	if err := port.Open(); err != nil {
		return nil, fmt.Errorf("%w: opening output port %q: %v", xerr.ErrDeviceUnavailable, name, err)
	}
	return &Out{name: port.String(), port: port}, nil
}

// Send writes a raw MIDI message (channel-voice or SysEx).
func (o *Out) Send(msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.port.Send(msg)
}

// Name returns the resolved port name.
func (o *Out) Name() string { return o.name }

// Close closes the output port.
func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.port.Close()
}

// In is an opened MIDI input port, delivering decoded events through a
// bounded channel so the scheduler's event loop never blocks on the
// driver's own callback goroutine.
type In struct {
	port  drivers.In
	stop  func()
	Event chan Event
}

// Event is one raw MIDI message read from an input port, timestamped in
// milliseconds since the port was opened.
type Event struct {
	Data     []byte
	Millis   int32
}

// OpenIn opens the named input port and starts listening, delivering
// events on the returned *In's Event channel (capacity 256, matching the
// bounded single-producer/single-consumer queue the concurrency model
// calls for).
func OpenIn(name string) (*In, error) {
	port, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("%w: input port %q: %v", xerr.ErrDeviceUnavailable, name, err)
	}

	in := &In{port: port, Event: make(chan Event, 256)}
	stop, err := midi.ListenTo(port, func(msg []byte, millis int32) {
		select {
		case in.Event <- Event{Data: msg, Millis: millis}:
		default:
			// queue full: drop rather than block the driver callback.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listening on input port %q: %v", xerr.ErrDeviceUnavailable, name, err)
	}
	in.stop = stop
	return in, nil
}

// Close stops listening and closes the input port.
func (in *In) Close() error {
	if in.stop != nil {
		in.stop()
	}
	close(in.Event)
	return in.port.Close()
}
