package kbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearRoundTrip(t *testing.T) {
	m, err := NewLinear(69, 440, 60, 12)
	require.NoError(t, err)

	for key := 0; key < 128; key++ {
		d, ok := m.KeyToDegree(key)
		require.True(t, ok)
		backKey, found := m.DegreeToKey(d)
		require.True(t, found)
		// multiple keys can map to the same degree only if formal
		// octave != pattern length; for the linear mapping it's 1:1.
		assert.Equal(t, key, backKey)
		assert.Equal(t, key-60, d)
	}
}

func TestUnmappedKeys(t *testing.T) {
	pattern := []int{0, UnmappedDegree, 1, UnmappedDegree, 2}
	m, err := New(60, 440, 60, pattern, 5)
	require.NoError(t, err)

	_, ok := m.KeyToDegree(61)
	assert.False(t, ok)

	d, ok := m.KeyToDegree(62)
	assert.True(t, ok)
	assert.Equal(t, 1, d)
}

func TestKeyToDegreeWrapsFormalOctave(t *testing.T) {
	pattern := []int{0, 1, 2, 3, 4, 5, 6}
	m, err := New(62, 440, 62, pattern, 7)
	require.NoError(t, err)

	d, ok := m.KeyToDegree(62 + 7)
	require.True(t, ok)
	assert.Equal(t, 7, d)

	d, ok = m.KeyToDegree(62 - 7)
	require.True(t, ok)
	assert.Equal(t, -7, d)
}

func TestInvalidMapping(t *testing.T) {
	_, err := New(60, 0, 60, []int{0}, 1)
	assert.Error(t, err)

	_, err = New(60, 440, 60, nil, 1)
	assert.Error(t, err)

	_, err = New(60, 440, 60, []int{UnmappedDegree, UnmappedDegree}, 1)
	assert.Error(t, err)

	_, err = NewLinear(60, 440, 60, 0)
	assert.Error(t, err)
}
