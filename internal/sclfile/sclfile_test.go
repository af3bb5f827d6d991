package sclfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/xentune/internal/ratio"
	"github.com/schollz/xentune/internal/scale"
)

func TestParseMixedForms(t *testing.T) {
	doc := `! a comment
a test scale
3
9/8
400.0
2/1
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "a test scale", f.Description)
	require.Len(t, f.Degrees, 3)
	assert.InDelta(t, 9.0/8, f.Degrees[0].Factor(), 1e-9)
	assert.InDelta(t, 400, f.Degrees[1].Cents(), 1e-9)
	assert.InDelta(t, 2, f.Degrees[2].Factor(), 1e-9)
}

func TestExportImportRoundTrip(t *testing.T) {
	sc, err := scale.NewRank2(mustParse(t, "1:4:5"), ratio.FromOctaves(1), 5, 1)
	require.NoError(t, err)

	f := FromScale(sc, "rank-2 test")
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	parsed, err := Parse(&buf)
	require.NoError(t, err)
	imported, err := parsed.Scale()
	require.NoError(t, err)

	require.Equal(t, sc.Size(), imported.Size())
	for d := 0; d <= sc.Size(); d++ {
		assert.InDelta(t, sc.DegreeToRatio(d).Cents(), imported.DegreeToRatio(d).Cents(), 1e-6)
	}
}

func mustParse(t *testing.T, s string) ratio.Ratio {
	t.Helper()
	r, err := ratio.Parse(s)
	require.NoError(t, err)
	return r
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("only one line"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("desc\nnotanumber\n1/1\n"))
	assert.Error(t, err)
}
