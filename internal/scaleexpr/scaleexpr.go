// Package scaleexpr parses the CLI's compact scale expression syntax
// into a scale.Scale, reusing ratio.Parse for every sub-expression so the
// same grammar (num:denom:int, num/denom, cents, parens) nests inside it.
package scaleexpr

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
	"github.com/schollz/xentune/internal/sclfile"
	"github.com/schollz/xentune/internal/xerr"
)

// Parse interprets expr as one of:
//   - a bare "1:N:base" ratio expression (the spec's scenario shorthand):
//     N equal divisions of base, e.g. "1:7:2" is 7-EDO of the octave.
//   - "equal,N,period"
//   - "rank2,generator,period,upCount,downCount"
//   - "harmonic,n,up" or "harmonic,n,down"
//   - a path to a .scl file, imported verbatim.
//
// Top-level fields are comma-separated (not colon-separated) everywhere
// except the bare shorthand, since a generator or period is itself a
// colon-bearing ratio expression (ratio.Parse's "num:denom:base" form).
func Parse(expr string) (scale.Scale, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasSuffix(strings.ToLower(expr), ".scl") {
		return parseSCLFile(expr)
	}

	if bareParts := strings.Split(expr, ":"); len(bareParts) == 3 && bareParts[0] == "1" {
		return parseEqual(expr, bareParts[1], bareParts[2])
	}

	parts := strings.Split(expr, ",")
	switch {
	case len(parts) == 3 && strings.EqualFold(parts[0], "equal"):
		return parseEqual(expr, parts[1], parts[2])

	case len(parts) == 5 && strings.EqualFold(parts[0], "rank2"):
		generator, err := ratio.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: scaleexpr: malformed generator in %q: %v", xerr.ErrParse, expr, err)
		}
		period, err := parsePeriod(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: scaleexpr: malformed period in %q: %v", xerr.ErrParse, expr, err)
		}
		up, err1 := strconv.Atoi(strings.TrimSpace(parts[3]))
		down, err2 := strconv.Atoi(strings.TrimSpace(parts[4]))
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: scaleexpr: malformed up/down counts in %q", xerr.ErrParse, expr)
		}
		return scale.NewRank2(generator, period, up, down)

	case len(parts) == 3 && strings.EqualFold(parts[0], "harmonic"):
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: scaleexpr: malformed harmonic count in %q", xerr.ErrParse, expr)
		}
		up := strings.EqualFold(strings.TrimSpace(parts[2]), "up")
		return scale.NewHarmonic(n, up)
	}

	return nil, fmt.Errorf("%w: scaleexpr: unrecognized scale expression %q", xerr.ErrParse, expr)
}

func parseEqual(expr, nStr, periodStr string) (scale.Scale, error) {
	n, err := strconv.Atoi(strings.TrimSpace(nStr))
	if err != nil {
		return nil, fmt.Errorf("%w: scaleexpr: malformed division count in %q", xerr.ErrParse, expr)
	}
	period, err := parsePeriod(periodStr)
	if err != nil {
		return nil, fmt.Errorf("%w: scaleexpr: malformed period in %q: %v", xerr.ErrParse, expr, err)
	}
	return scale.NewEqual(n, period)
}

// parsePeriod accepts everything ratio.Parse does (num:denom:base,
// num/denom, a "...c" cents string) plus a bare integer or decimal like
// "2", read as n/1 — the same bare-integer fallback sclfile.go's
// parseDegreeLine uses for SCL ratio lines, since "1:7:2" and
// "equal,7,2" both write the period as a bare "2", not "2/1" or "2:1:2".
func parsePeriod(s string) (ratio.Ratio, error) {
	s = strings.TrimSpace(s)
	if r, err := ratio.Parse(s); err == nil {
		return r, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ratio.Ratio{}, fmt.Errorf("not a ratio, and not a bare number: %q", s)
	}
	return ratio.FromFraction(n, 1)
}

func parseSCLFile(path string) (scale.Scale, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: scaleexpr: opening %s: %v", xerr.ErrParse, path, err)
	}
	defer f.Close()
	doc, err := sclfile.Parse(f)
	if err != nil {
		return nil, err
	}
	return doc.Scale()
}
