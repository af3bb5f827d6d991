// Package sclfile reads and writes Scala .scl scale files: a comment
// line, a description, a note count, then that many ratio lines.
package sclfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
	"github.com/schollz/xentune/internal/xerr"
)

// File is a parsed (or about-to-be-written) SCL document.
type File struct {
	Description string
	Degrees     []ratio.Ratio // the N lines, in order; last entry is the period
}

// parseDegreeLine parses one SCL ratio line: "n/d", a bare integer (n/1),
// or a decimal containing a dot (cents).
func parseDegreeLine(line string) (ratio.Ratio, error) {
	line = strings.TrimSpace(line)
	if idx := strings.IndexAny(line, " \t"); idx >= 0 {
		line = line[:idx] // SCL allows a trailing comment after whitespace
	}
	if line == "" {
		return ratio.Ratio{}, fmt.Errorf("%w: sclfile: empty degree line", xerr.ErrParse)
	}
	if strings.Contains(line, "/") {
		parts := strings.SplitN(line, "/", 2)
		n, err1 := strconv.ParseFloat(parts[0], 64)
		d, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return ratio.Ratio{}, fmt.Errorf("%w: sclfile: malformed fraction %q", xerr.ErrParse, line)
		}
		r, err := ratio.FromFraction(n, d)
		if err != nil {
			return ratio.Ratio{}, fmt.Errorf("%w: %v", xerr.ErrParse, err)
		}
		return r, nil
	}
	if strings.Contains(line, ".") {
		cents, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return ratio.Ratio{}, fmt.Errorf("%w: sclfile: malformed cents value %q", xerr.ErrParse, line)
		}
		return ratio.FromCents(cents), nil
	}
	n, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return ratio.Ratio{}, fmt.Errorf("%w: sclfile: malformed integer ratio %q", xerr.ErrParse, line)
	}
	r, err := ratio.FromFraction(n, 1)
	if err != nil {
		return ratio.Ratio{}, fmt.Errorf("%w: %v", xerr.ErrParse, err)
	}
	return r, nil
}

// Parse reads an SCL document from r.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	var nonCommentLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "!") {
			continue
		}
		nonCommentLines = append(nonCommentLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sclfile: reading: %w", err)
	}
	if len(nonCommentLines) < 2 {
		return nil, fmt.Errorf("%w: sclfile: expected a description and a note count", xerr.ErrParse)
	}

	description := strings.TrimSpace(nonCommentLines[0])
	count, err := strconv.Atoi(strings.TrimSpace(nonCommentLines[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: sclfile: malformed note count %q", xerr.ErrParse, nonCommentLines[1])
	}
	if len(nonCommentLines)-2 < count {
		return nil, fmt.Errorf("%w: sclfile: declared %d notes but found %d lines", xerr.ErrParse, count, len(nonCommentLines)-2)
	}

	degrees := make([]ratio.Ratio, count)
	for i := 0; i < count; i++ {
		d, err := parseDegreeLine(nonCommentLines[2+i])
		if err != nil {
			return nil, err
		}
		degrees[i] = d
	}
	return &File{Description: description, Degrees: degrees}, nil
}

// Scale builds a scale.Scale from the parsed degree list.
func (f *File) Scale() (scale.Scale, error) {
	return scale.NewFromDegreeList(f.Degrees)
}

// FromScale exports a scale.Scale as an SCL document, one line per
// degree 1..size, the last being the period.
func FromScale(sc scale.Scale, description string) *File {
	n := sc.Size()
	degrees := make([]ratio.Ratio, n)
	for i := 1; i <= n; i++ {
		degrees[i-1] = sc.DegreeToRatio(i)
	}
	return &File{Description: description, Degrees: degrees}
}

// Write emits the SCL text form: comment, description, count, then each
// degree rendered as a decimal-cents value for unambiguous round-trip
// precision.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "! exported by xentune")
	fmt.Fprintln(bw, f.Description)
	fmt.Fprintln(bw, len(f.Degrees))
	for _, d := range f.Degrees {
		fmt.Fprintf(bw, "%.10f\n", d.Cents())
	}
	return bw.Flush()
}
