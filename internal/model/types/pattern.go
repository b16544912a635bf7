package types

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v3"
)

// PatternRequest is the raw pattern payload accepted on create and update.
// Every field is checked by tb303.Validate before it reaches the store.
type PatternRequest struct {
	Name        string      `json:"name"`
	Author      null.String `json:"author"`
	Title       null.String `json:"title"`
	Description null.String `json:"description"`
	Tempo       null.Int    `json:"tempo"`
	Waveform    null.String `json:"waveform"`
	Triplets    null.Bool   `json:"triplets"`
	Tuning      null.Int    `json:"tuning"`
	CutOffFreq  null.Int    `json:"cut_off_freq"`
	Resonance   null.Int    `json:"resonance"`
	EnvMod      null.Int    `json:"env_mod"`
	Decay       null.Int    `json:"decay"`
	Accent      null.Int    `json:"accent"`
	IsPublic    null.Bool   `json:"is_public"`

	Steps []StepRequest `json:"steps"`
}

type StepRequest struct {
	Number    int64       `json:"number"`
	Note      null.String `json:"note"`
	Transpose null.String `json:"transpose"`
	Time      string      `json:"time"`
	Accent    null.Bool   `json:"accent"`
	Slide     null.Bool   `json:"slide"`
}

// PatternResponse is a full pattern with its steps in ascending order.
type PatternResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Author      null.String    `json:"author"`
	Title       null.String    `json:"title"`
	Description null.String    `json:"description"`
	Tempo       null.Int       `json:"tempo"`
	Waveform    null.String    `json:"waveform"`
	Triplets    bool           `json:"triplets"`
	Tuning      null.Int       `json:"tuning"`
	CutOffFreq  null.Int       `json:"cut_off_freq"`
	Resonance   null.Int       `json:"resonance"`
	EnvMod      null.Int       `json:"env_mod"`
	Decay       null.Int       `json:"decay"`
	Accent      null.Int       `json:"accent"`
	IsPublic    bool           `json:"is_public"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Steps       []StepResponse `json:"steps"`
}

type StepResponse struct {
	ID        uuid.UUID   `json:"id"`
	Number    int         `json:"number"`
	Note      null.String `json:"note"`
	Transpose null.String `json:"transpose"`
	Time      string      `json:"time"`
	Accent    bool        `json:"accent"`
	Slide     bool        `json:"slide"`
}

type PatternIDData struct {
	ID uuid.UUID `json:"id"`
}

// PatternIDResponse is returned by create and update.
type PatternIDResponse struct {
	Status string        `json:"status"`
	Data   PatternIDData `json:"data"`
}

func NewPatternIDResponse(id uuid.UUID) *PatternIDResponse {
	return &PatternIDResponse{
		Status: "success",
		Data:   PatternIDData{ID: id},
	}
}
