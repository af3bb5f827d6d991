package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "aot")
	assert.Contains(t, names, "jit")
	assert.Contains(t, names, "scl")
	assert.Contains(t, names, "kbm")
	assert.Contains(t, names, "dump")
}

func TestParseRefNoteArgs(t *testing.T) {
	key, expr, err := parseRefNoteArgs([]string{"ref-note", "69", "1:7:2"})
	require.NoError(t, err)
	assert.Equal(t, 69, key)
	assert.Equal(t, "1:7:2", expr)

	_, _, err = parseRefNoteArgs([]string{"not-ref-note", "69", "1:7:2"})
	assert.Error(t, err)

	_, _, err = parseRefNoteArgs([]string{"ref-note", "sixty-nine", "1:7:2"})
	assert.Error(t, err)
}

func TestBuildTunedScaleDefaultsRootToAnchor(t *testing.T) {
	flagHasRootKey = false
	flagConcertHz = 440
	ts, err := buildTunedScale(69, "1:7:2")
	require.NoError(t, err)
	assert.Equal(t, 69, ts.Mapping().RootKey)
	hz, ok := ts.KeyPitch(69)
	require.True(t, ok)
	assert.InDelta(t, 440.0, hz.Hz(), 1e-9)
}

func TestBuildTunedScaleRejectsUnparsableExpr(t *testing.T) {
	_, err := buildTunedScale(69, "nonsense")
	assert.Error(t, err)
}
