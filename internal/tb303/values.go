package tb303

import (
	"strings"

	"github.com/rivo/uniseg"
)

const (
	MaxSteps                = 16
	MaxNameGraphemes        = 50
	MaxAuthorGraphemes      = 100
	MaxTitleGraphemes       = 100
	MaxDescriptionGraphemes = 500
	MaxTempo                = 999
	MaxKnob                 = 100
)

type (
	Name        string
	Author      string
	Title       string
	Description string
	Tempo       int
	Knob        int
	StepNumber  int
)

func ParseName(s string) (Name, error) {
	if !boundedText(s, MaxNameGraphemes) {
		return "", invalid("%s is not a valid name.", s)
	}
	return Name(s), nil
}

func ParseAuthor(s string) (Author, error) {
	if !boundedText(s, MaxAuthorGraphemes) {
		return "", invalid("%s is not a valid author.", s)
	}
	return Author(s), nil
}

func ParseTitle(s string) (Title, error) {
	if !boundedText(s, MaxTitleGraphemes) {
		return "", invalid("%s is not a valid title.", s)
	}
	return Title(s), nil
}

func ParseDescription(s string) (Description, error) {
	if !boundedText(s, MaxDescriptionGraphemes) {
		return "", invalid("%s is not a valid pattern description.", s)
	}
	return Description(s), nil
}

func ParseTempo(i int64) (Tempo, error) {
	if i < 0 || i > MaxTempo {
		return 0, invalid("%d is not a valid Tempo value.", i)
	}
	return Tempo(i), nil
}

func ParseKnob(i int64) (Knob, error) {
	if i < 0 || i > MaxKnob {
		return 0, invalid("%d is not a valid knob value.", i)
	}
	return Knob(i), nil
}

func ParseStepNumber(i int64) (StepNumber, error) {
	if i < 1 || i > MaxSteps {
		return 0, invalid("%d is not a valid step number value.", i)
	}
	return StepNumber(i), nil
}

// boundedText reports whether s has visible content and at most limit
// user-perceived characters.
func boundedText(s string, limit int) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return uniseg.GraphemeClusterCount(s) <= limit
}
