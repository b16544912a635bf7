// Package tb303 turns raw pattern submissions into validated TB303 patterns.
//
// Everything in here is pure: no I/O, no logging, no global state besides the
// read-only variant tables.
package tb303

import (
	"sort"

	"gopkg.in/guregu/null.v3"

	"acidlab.dev/backend/internal/model/types"
)

// Pattern is a submission that passed every field and sequencing rule.
// Optional header values are nil when absent. Steps are ordered by number.
type Pattern struct {
	Name        Name
	Author      *Author
	Title       *Title
	Description *Description
	Tempo       *Tempo
	Waveform    Waveform // zero when absent
	Triplets    bool
	Tuning      *Knob
	CutOffFreq  *Knob
	Resonance   *Knob
	EnvMod      *Knob
	Decay       *Knob
	Accent      *Knob
	IsPublic    bool
	Steps       []Step
}

// Step is one validated sequencer slot. Note and Transpose are zero when the
// step carries no pitch.
type Step struct {
	Number    StepNumber
	Note      Note
	Transpose Transpose
	Time      Time
	Accent    bool
	Slide     bool
}

// Validate checks req field by field, then the step sequence as a whole, and
// stops at the first violation.
func Validate(req *types.PatternRequest) (*Pattern, error) {
	p, err := parseHeader(req)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(req.Steps))
	for _, s := range req.Steps {
		step, err := parseStep(s)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	if err := checkSequence(steps); err != nil {
		return nil, err
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Number < steps[j].Number })
	p.Steps = steps

	return p, nil
}

func parseHeader(req *types.PatternRequest) (*Pattern, error) {
	var (
		p   Pattern
		err error
	)

	if p.Name, err = ParseName(req.Name); err != nil {
		return nil, err
	}
	if p.Author, err = optionalString(req.Author, ParseAuthor); err != nil {
		return nil, err
	}
	if p.Title, err = optionalString(req.Title, ParseTitle); err != nil {
		return nil, err
	}
	if p.Description, err = optionalString(req.Description, ParseDescription); err != nil {
		return nil, err
	}
	if req.Waveform.Valid {
		if p.Waveform, err = ParseWaveform(req.Waveform.String); err != nil {
			return nil, err
		}
	}
	if p.Tempo, err = optionalInt(req.Tempo, ParseTempo); err != nil {
		return nil, err
	}

	knobs := []struct {
		dst **Knob
		src null.Int
	}{
		{&p.Tuning, req.Tuning},
		{&p.CutOffFreq, req.CutOffFreq},
		{&p.Resonance, req.Resonance},
		{&p.EnvMod, req.EnvMod},
		{&p.Decay, req.Decay},
		{&p.Accent, req.Accent},
	}
	for _, k := range knobs {
		if *k.dst, err = optionalInt(k.src, ParseKnob); err != nil {
			return nil, err
		}
	}

	p.Triplets = req.Triplets.ValueOrZero()
	p.IsPublic = req.IsPublic.ValueOrZero()

	return &p, nil
}

func parseStep(s types.StepRequest) (Step, error) {
	var (
		step Step
		err  error
	)

	if step.Number, err = ParseStepNumber(s.Number); err != nil {
		return Step{}, err
	}
	if s.Note.Valid {
		if step.Note, err = ParseNote(s.Note.String); err != nil {
			return Step{}, err
		}
	}
	if s.Transpose.Valid {
		if step.Transpose, err = ParseTranspose(s.Transpose.String); err != nil {
			return Step{}, err
		}
	}
	if step.Time, err = ParseTime(s.Time); err != nil {
		return Step{}, err
	}

	step.Accent = s.Accent.ValueOrZero()
	step.Slide = s.Slide.ValueOrZero()

	return step, nil
}

// checkSequence enforces the pattern-level rules in order: step count,
// silent rests, unique numbers, then a contiguous run from 1.
func checkSequence(steps []Step) error {
	if len(steps) == 0 {
		return invalid("Pattern must contain at least one step.")
	}
	if len(steps) > MaxSteps {
		return invalid("A pattern can only have up to %d steps.", MaxSteps)
	}

	for _, s := range steps {
		if s.Time == TimeRest && (s.Note != 0 || s.Transpose != 0) {
			return invalid("Step %d is marked as 'rest' but contains a note or octave.", s.Number)
		}
	}

	seen := make(map[StepNumber]struct{}, len(steps))
	for _, s := range steps {
		if _, ok := seen[s.Number]; ok {
			return invalid("Duplicate step number: %d", s.Number)
		}
		seen[s.Number] = struct{}{}
	}

	numbers := make([]int, 0, len(steps))
	for _, s := range steps {
		numbers = append(numbers, int(s.Number))
	}
	sort.Ints(numbers)

	if numbers[0] != 1 {
		return invalid("Step sequence must start with 1")
	}
	for i := 1; i < len(numbers); i++ {
		if numbers[i] != numbers[i-1]+1 {
			return invalid("Missing step in sequence: expected %d, found %d", numbers[i-1]+1, numbers[i])
		}
	}

	return nil
}

func optionalString[T ~string](v null.String, parse func(string) (T, error)) (*T, error) {
	if !v.Valid {
		return nil, nil
	}
	parsed, err := parse(v.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func optionalInt[T ~int](v null.Int, parse func(int64) (T, error)) (*T, error) {
	if !v.Valid {
		return nil, nil
	}
	parsed, err := parse(v.Int64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
