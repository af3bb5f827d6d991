// Package xerr names the error kinds from the error-handling design: a
// caller can errors.Is against one of these sentinels regardless of the
// wrapped detail message.
package xerr

import "errors"

var (
	// ErrParse marks a bad scale expression or malformed SCL/KBM file.
	// No state is mutated before this is returned.
	ErrParse = errors.New("parse error")

	// ErrOutOfRange marks a pitch outside 0-127 semitones, or a degree
	// overflow. In CLI context it is counted and reported; in scheduler
	// context the note is dropped and a warning logged.
	ErrOutOfRange = errors.New("out of range")

	// ErrDeviceUnavailable marks a MIDI device that could not be opened, or
	// a send to an already-open device that failed mid-run. Fatal at
	// startup; at runtime the scheduler logs it and keeps going rather
	// than aborting the session over one dropped message.
	ErrDeviceUnavailable = errors.New("device unavailable")
)
