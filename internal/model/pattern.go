package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"
)

type Pattern struct {
	bun.BaseModel `bun:"patterns_tb303,alias:p"`

	ID          uuid.UUID   `bun:"pattern_id,pk,type:uuid" json:"id"`
	UserID      uuid.UUID   `bun:"user_id,notnull,type:uuid" json:"-"`
	Name        string      `bun:"name,notnull" json:"name"`
	Author      null.String `bun:"author,type:varchar(255)" json:"author"`
	Title       null.String `bun:"title,type:varchar(255)" json:"title"`
	Description null.String `bun:"description,type:text" json:"description"`
	Waveform    null.String `bun:"waveform,type:varchar(16)" json:"waveform"`
	Triplets    bool        `bun:"triplets,notnull" json:"triplets"`
	Tempo       null.Int    `bun:"tempo,type:integer" json:"tempo"`
	Tuning      null.Int    `bun:"tuning,type:integer" json:"tuning"`
	CutOffFreq  null.Int    `bun:"cut_off_freq,type:integer" json:"cut_off_freq"`
	Resonance   null.Int    `bun:"resonance,type:integer" json:"resonance"`
	EnvMod      null.Int    `bun:"env_mod,type:integer" json:"env_mod"`
	Decay       null.Int    `bun:"decay,type:integer" json:"decay"`
	Accent      null.Int    `bun:"accent,type:integer" json:"accent"`
	IsPublic    bool        `bun:"is_public,notnull" json:"is_public"`
	CreatedAt   time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull" json:"updated_at"`

	Steps []*Step `bun:"rel:has-many,join:pattern_id=pattern_id" json:"steps"`
}

type Step struct {
	bun.BaseModel `bun:"steps_tb303,alias:s"`

	ID        uuid.UUID   `bun:"step_id,pk,type:uuid" json:"id"`
	PatternID uuid.UUID   `bun:"pattern_id,notnull,type:uuid" json:"-"`
	Number    int         `bun:"number,notnull" json:"number"`
	Note      null.String `bun:"note,type:varchar(8)" json:"note"`
	Transpose null.String `bun:"transpose,type:varchar(8)" json:"transpose"`
	Time      string      `bun:"time,notnull" json:"time"`
	Accent    bool        `bun:"accent,notnull" json:"accent"`
	Slide     bool        `bun:"slide,notnull" json:"slide"`
	CreatedAt time.Time   `bun:"created_at,notnull" json:"created_at"`
}

// PatternSummary is the list projection of a pattern: no knobs, no steps.
type PatternSummary struct {
	bun.BaseModel `bun:"patterns_tb303,alias:p"`

	ID        uuid.UUID   `bun:"pattern_id,pk,type:uuid" json:"pattern_id"`
	Name      string      `bun:"name" json:"name"`
	Author    null.String `bun:"author" json:"author"`
	Title     null.String `bun:"title" json:"title"`
	IsPublic  bool        `bun:"is_public" json:"is_public"`
	CreatedAt time.Time   `bun:"created_at" json:"created_at"`
	UpdatedAt time.Time   `bun:"updated_at" json:"updated_at"`
}
