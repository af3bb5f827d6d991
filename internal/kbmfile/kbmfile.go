// Package kbmfile reads and writes Scala .kbm keyboard mapping files.
package kbmfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/schollz/xentune/internal/kbm"
	"github.com/schollz/xentune/internal/xerr"
)

// File is a parsed (or about-to-be-written) KBM document.
type File struct {
	PatternLength int
	LowestKey     int
	HighestKey    int
	AnchorKey     int
	RootKey       int
	AnchorHz      float64
	FormalOctave  int
	Pattern       []int // kbm.UnmappedDegree marks an "x" slot
}

func stripComment(line string) string {
	if idx := strings.Index(line, "!"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// Parse reads a KBM document from r.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		l := stripComment(scanner.Text())
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("kbmfile: reading: %w", err)
	}

	const headerLines = 6
	if len(lines) < headerLines {
		return nil, fmt.Errorf("%w: kbmfile: expected at least %d header lines, got %d", xerr.ErrParse, headerLines, len(lines))
	}

	atoi := func(s, field string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: kbmfile: malformed %s %q", xerr.ErrParse, field, s)
		}
		return v, nil
	}

	f := &File{}
	var err error
	if f.PatternLength, err = atoi(lines[0], "pattern length"); err != nil {
		return nil, err
	}
	if f.LowestKey, err = atoi(lines[1], "lowest mapped key"); err != nil {
		return nil, err
	}
	if f.HighestKey, err = atoi(lines[2], "highest mapped key"); err != nil {
		return nil, err
	}
	if f.AnchorKey, err = atoi(lines[3], "reference key"); err != nil {
		return nil, err
	}
	if f.RootKey, err = atoi(lines[4], "root key"); err != nil {
		return nil, err
	}
	if f.AnchorHz, err = strconv.ParseFloat(lines[5], 64); err != nil {
		return nil, fmt.Errorf("%w: kbmfile: malformed reference frequency %q", xerr.ErrParse, lines[5])
	}
	if len(lines) < headerLines+1 {
		return nil, fmt.Errorf("%w: kbmfile: missing formal octave line", xerr.ErrParse)
	}
	if f.FormalOctave, err = atoi(lines[6], "formal octave"); err != nil {
		return nil, err
	}

	patternLines := lines[7:]
	if f.PatternLength <= 0 {
		return nil, fmt.Errorf("%w: kbmfile: pattern length must be positive, got %d", xerr.ErrParse, f.PatternLength)
	}
	if len(patternLines) < f.PatternLength {
		return nil, fmt.Errorf("%w: kbmfile: declared pattern length %d but found %d lines", xerr.ErrParse, f.PatternLength, len(patternLines))
	}

	f.Pattern = make([]int, f.PatternLength)
	for i := 0; i < f.PatternLength; i++ {
		line := strings.TrimSpace(patternLines[i])
		if strings.EqualFold(line, "x") {
			f.Pattern[i] = kbm.UnmappedDegree
			continue
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("%w: kbmfile: malformed pattern slot %q", xerr.ErrParse, line)
		}
		f.Pattern[i] = v
	}
	return f, nil
}

// Mapping builds a kbm.Mapping from the parsed file.
func (f *File) Mapping() (*kbm.Mapping, error) {
	return kbm.New(f.AnchorKey, f.AnchorHz, f.RootKey, f.Pattern, f.FormalOctave)
}

// FromMapping exports a kbm.Mapping as a File. LowestKey/HighestKey
// default to the full MIDI range since Mapping itself carries no range.
func FromMapping(m *kbm.Mapping) *File {
	return &File{
		PatternLength: len(m.Pattern),
		LowestKey:     0,
		HighestKey:    127,
		AnchorKey:     m.AnchorKey,
		RootKey:       m.RootKey,
		AnchorHz:      m.AnchorHz,
		FormalOctave:  m.FormalOctave,
		Pattern:       append([]int(nil), m.Pattern...),
	}
}

// Write emits the KBM text form.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, f.PatternLength)
	fmt.Fprintln(bw, f.LowestKey)
	fmt.Fprintln(bw, f.HighestKey)
	fmt.Fprintln(bw, f.AnchorKey)
	fmt.Fprintln(bw, f.RootKey)
	fmt.Fprintf(bw, "%.10f\n", f.AnchorHz)
	fmt.Fprintln(bw, f.FormalOctave)
	for _, slot := range f.Pattern {
		if slot == kbm.UnmappedDegree {
			fmt.Fprintln(bw, "x")
		} else {
			fmt.Fprintln(bw, slot)
		}
	}
	return bw.Flush()
}
