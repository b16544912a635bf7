package tb303

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteRoundTrip(t *testing.T) {
	require.Len(t, Notes, 13)
	require.Len(t, noteNames, 13)

	for _, n := range Notes {
		text, err := n.MarshalText()
		require.NoError(t, err)

		var parsed Note
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, n, parsed)
	}
}

func TestParseNote(t *testing.T) {
	n, err := ParseNote("F#")
	assert.NoError(t, err)
	assert.Equal(t, NoteFSharp, n)

	n, err = ParseNote("Chigh")
	assert.NoError(t, err)
	assert.Equal(t, NoteCHigh, n)

	for _, bad := range []string{"", "c", "H", "Db", "C ", "chigh"} {
		_, err := ParseNote(bad)
		assert.Error(t, err, "note %q should be rejected", bad)
	}

	_, err = ParseNote("H")
	assert.EqualError(t, err, "H is not a valid note. Can only be one of C, C#, D, D#, E, F, F#, G, G#, A, A#, B, Chigh")
}

func TestParseTranspose(t *testing.T) {
	v, err := ParseTranspose("up")
	assert.NoError(t, err)
	assert.Equal(t, TransposeUp, v)

	v, err = ParseTranspose("down")
	assert.NoError(t, err)
	assert.Equal(t, TransposeDown, v)

	_, err = ParseTranspose("Up")
	assert.EqualError(t, err, "Up is not a valid octave. Can only be one of 'up', 'down'")
}

func TestParseTime(t *testing.T) {
	for _, tc := range []struct {
		in     string
		expect Time
	}{
		{"note", TimeNote},
		{"tied", TimeTied},
		{"rest", TimeRest},
	} {
		v, err := ParseTime(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.expect, v)
		assert.Equal(t, tc.in, v.String())
	}

	_, err := ParseTime("")
	assert.Error(t, err)
	_, err = ParseTime("slide")
	assert.EqualError(t, err, "slide is not a valid time. Can only be one of 'note', 'tied', 'rest'")
}

func TestParseWaveform(t *testing.T) {
	v, err := ParseWaveform("sawtooth")
	assert.NoError(t, err)
	assert.Equal(t, WaveformSawtooth, v)
	assert.Equal(t, "square", WaveformSquare.String())

	_, err = ParseWaveform("sine")
	assert.Error(t, err)
}

func TestZeroVariantDoesNotMarshal(t *testing.T) {
	_, err := Note(0).MarshalText()
	assert.Error(t, err)
	_, err = Waveform(0).MarshalText()
	assert.Error(t, err)

	var tr Transpose
	assert.Error(t, tr.UnmarshalText([]byte("sideways")))
	assert.Equal(t, Transpose(0), tr)
}
