// Package diagnostics persists scheduler run statistics (note counts,
// dropped events, clash counts) to disk with the same debounced
// gzip+JSON pattern the teacher uses for session autosave, adapted from
// a UI-state snapshot to a counters snapshot written at a slower,
// diagnostics-appropriate cadence.
package diagnostics

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stats is one scheduler run's counters, safe for concurrent increments.
type Stats struct {
	mu sync.Mutex

	Technique      string    `json:"technique"`
	StartedAt      time.Time `json:"started_at"`
	NotesOn        int       `json:"notes_on"`
	NotesOff       int       `json:"notes_off"`
	DroppedKeys    int       `json:"dropped_keys"`
	OutOfRange     int       `json:"out_of_range"`
	Clashes        int       `json:"clashes"`
	UnmatchedNoteOffs int    `json:"unmatched_note_offs"`
}

// NewStats builds a zeroed Stats for the given technique name.
func NewStats(technique string, startedAt time.Time) *Stats {
	return &Stats{Technique: technique, StartedAt: startedAt}
}

func (s *Stats) IncNoteOn()           { s.mu.Lock(); s.NotesOn++; s.mu.Unlock() }
func (s *Stats) IncNoteOff()          { s.mu.Lock(); s.NotesOff++; s.mu.Unlock() }
func (s *Stats) IncDroppedKey()       { s.mu.Lock(); s.DroppedKeys++; s.mu.Unlock() }
func (s *Stats) IncOutOfRange()       { s.mu.Lock(); s.OutOfRange++; s.mu.Unlock() }
func (s *Stats) IncClash()            { s.mu.Lock(); s.Clashes++; s.mu.Unlock() }
func (s *Stats) IncUnmatchedNoteOff() { s.mu.Lock(); s.UnmatchedNoteOffs++; s.mu.Unlock() }

// Snapshot returns a copy safe to marshal without holding the lock.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s
	cp.mu = sync.Mutex{}
	return cp
}

// Recorder debounces writes to disk the way the teacher's AutoSave does:
// repeated calls within the debounce window collapse into one write.
type Recorder struct {
	mu           sync.Mutex
	timer        *time.Timer
	debounceTime time.Duration
	path         string
	stats        *Stats
}

// NewRecorder builds a Recorder that writes gzip-compressed JSON to path.
func NewRecorder(path string, stats *Stats) *Recorder {
	return &Recorder{path: path, stats: stats, debounceTime: 2 * time.Second}
}

// Touch schedules a debounced save; call it after any counter increment
// that is worth persisting promptly (e.g. a clash or a dropped key).
func (r *Recorder) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounceTime, func() {
		if err := r.Save(); err != nil {
			log.Printf("[diagnostics] save failed: %v", err)
		}
	})
}

// Save writes the current snapshot to disk immediately, bypassing the
// debounce; used on scheduler shutdown so the final counters are never
// lost to a pending timer.
func (r *Recorder) Save() error {
	snap := r.stats.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("diagnostics: marshaling stats: %w", err)
	}

	file, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("diagnostics: creating %s: %w", r.path, err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		return fmt.Errorf("diagnostics: writing %s: %w", r.path, err)
	}
	return gz.Close()
}

// Load reads back a snapshot previously written by Save.
func Load(path string) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("diagnostics: opening %s: %w", path, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return Stats{}, fmt.Errorf("diagnostics: reading gzip header of %s: %w", path, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return Stats{}, fmt.Errorf("diagnostics: reading %s: %w", path, err)
	}

	var snap Stats
	if err := json.Unmarshal(data, &snap); err != nil {
		return Stats{}, fmt.Errorf("diagnostics: unmarshaling %s: %w", path, err)
	}
	return snap, nil
}
