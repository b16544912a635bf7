package tb303

import (
	"fmt"
	"strings"
)

// Note is one of the 13 pitch labels a step can carry.
type Note int

const (
	NoteC Note = iota + 1
	NoteCSharp
	NoteD
	NoteDSharp
	NoteE
	NoteF
	NoteFSharp
	NoteG
	NoteGSharp
	NoteA
	NoteASharp
	NoteB
	NoteCHigh
)

var noteNames = map[Note]string{
	NoteC:      "C",
	NoteCSharp: "C#",
	NoteD:      "D",
	NoteDSharp: "D#",
	NoteE:      "E",
	NoteF:      "F",
	NoteFSharp: "F#",
	NoteG:      "G",
	NoteGSharp: "G#",
	NoteA:      "A",
	NoteASharp: "A#",
	NoteB:      "B",
	NoteCHigh:  "Chigh",
}

var notesByName = invert(noteNames)

// Notes lists every note in chromatic order.
var Notes = []Note{NoteC, NoteCSharp, NoteD, NoteDSharp, NoteE, NoteF, NoteFSharp, NoteG, NoteGSharp, NoteA, NoteASharp, NoteB, NoteCHigh}

func ParseNote(s string) (Note, error) {
	if n, ok := notesByName[s]; ok {
		return n, nil
	}
	return 0, invalid("%s is not a valid note. Can only be one of %s", s, joinNames(Notes, noteNames))
}

func (n Note) String() string { return noteNames[n] }

func (n Note) MarshalText() ([]byte, error) { return marshalVariant(n, noteNames) }

func (n *Note) UnmarshalText(b []byte) error { return unmarshalVariant(n, b, ParseNote) }

// Transpose shifts a step's note one octave up or down.
type Transpose int

const (
	TransposeUp Transpose = iota + 1
	TransposeDown
)

var transposeNames = map[Transpose]string{
	TransposeUp:   "up",
	TransposeDown: "down",
}

var transposesByName = invert(transposeNames)

func ParseTranspose(s string) (Transpose, error) {
	if t, ok := transposesByName[s]; ok {
		return t, nil
	}
	return 0, invalid("%s is not a valid octave. Can only be one of 'up', 'down'", s)
}

func (t Transpose) String() string { return transposeNames[t] }

func (t Transpose) MarshalText() ([]byte, error) { return marshalVariant(t, transposeNames) }

func (t *Transpose) UnmarshalText(b []byte) error { return unmarshalVariant(t, b, ParseTranspose) }

// Time is the timing class of a step.
type Time int

const (
	TimeNote Time = iota + 1
	TimeTied
	TimeRest
)

var timeNames = map[Time]string{
	TimeNote: "note",
	TimeTied: "tied",
	TimeRest: "rest",
}

var timesByName = invert(timeNames)

func ParseTime(s string) (Time, error) {
	if t, ok := timesByName[s]; ok {
		return t, nil
	}
	return 0, invalid("%s is not a valid time. Can only be one of 'note', 'tied', 'rest'", s)
}

func (t Time) String() string { return timeNames[t] }

func (t Time) MarshalText() ([]byte, error) { return marshalVariant(t, timeNames) }

func (t *Time) UnmarshalText(b []byte) error { return unmarshalVariant(t, b, ParseTime) }

// Waveform is the oscillator shape of the pattern.
type Waveform int

const (
	WaveformSquare Waveform = iota + 1
	WaveformSawtooth
)

var waveformNames = map[Waveform]string{
	WaveformSquare:   "square",
	WaveformSawtooth: "sawtooth",
}

var waveformsByName = invert(waveformNames)

func ParseWaveform(s string) (Waveform, error) {
	if w, ok := waveformsByName[s]; ok {
		return w, nil
	}
	return 0, invalid("%s is not a valid waveform. Can only be one of 'square', 'sawtooth'", s)
}

func (w Waveform) String() string { return waveformNames[w] }

func (w Waveform) MarshalText() ([]byte, error) { return marshalVariant(w, waveformNames) }

func (w *Waveform) UnmarshalText(b []byte) error { return unmarshalVariant(w, b, ParseWaveform) }

type variant interface {
	Note | Transpose | Time | Waveform
}

func invert[T variant](m map[T]string) map[string]T {
	r := make(map[string]T, len(m))
	for k, v := range m {
		r[v] = k
	}
	return r
}

func joinNames[T variant](order []T, names map[T]string) string {
	parts := make([]string, 0, len(order))
	for _, v := range order {
		parts = append(parts, names[v])
	}
	return strings.Join(parts, ", ")
}

func marshalVariant[T variant](v T, names map[T]string) ([]byte, error) {
	s, ok := names[v]
	if !ok {
		return nil, fmt.Errorf("tb303: cannot marshal unknown %T value %d", v, int(v))
	}
	return []byte(s), nil
}

func unmarshalVariant[T variant](dst *T, b []byte, parse func(string) (T, error)) error {
	v, err := parse(string(b))
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
