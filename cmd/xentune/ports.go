package main

import (
	"fmt"

	"github.com/schollz/xentune/internal/cliui"
	"github.com/schollz/xentune/internal/midiio"
)

// resolveOutPort opens flagOutPort if set, otherwise shows the port
// picker dialog over the currently available output ports.
func resolveOutPort() (*midiio.Out, error) {
	name := flagOutPort
	if name == "" {
		options := midiio.OutPorts()
		chosen, ok, err := cliui.RunPortPicker("Select MIDI output port", options)
		if err != nil {
			return nil, fmt.Errorf("port picker: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("no output port selected")
		}
		name = chosen
	}
	return midiio.OpenOut(name)
}

// resolveInPort opens flagInPort if set, otherwise shows the port picker
// dialog over the currently available input ports.
func resolveInPort() (*midiio.In, error) {
	name := flagInPort
	if name == "" {
		options := midiio.InPorts()
		chosen, ok, err := cliui.RunPortPicker("Select MIDI input port", options)
		if err != nil {
			return nil, fmt.Errorf("port picker: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("no input port selected")
		}
		name = chosen
	}
	return midiio.OpenIn(name)
}
