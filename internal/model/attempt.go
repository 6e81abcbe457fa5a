package model

import (
	"encoding/json"
	"time"
)

const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptExpired    = "expired"
)

// Attempt is one student's timed run through a variant. The presentation
// order chosen at start is persisted here so every later fetch renders the
// same ordering; nothing is ever inferred from answer state.
//
// The Active column is 1 while in progress and NULL once terminal, so the
// unique index (student_id, variant_id, active) allows at most one live
// attempt per pair without blocking re-attempts (MySQL unique indexes
// ignore NULLs).
//
// swagger:model Attempt
type Attempt struct {
	BaseModel

	PublicID  string `gorm:"size:36;uniqueIndex" json:"publicId"`
	VariantID uint   `gorm:"uniqueIndex:idx_one_active;index;type:bigint unsigned" json:"variantId"`
	StudentID uint   `gorm:"uniqueIndex:idx_one_active;index;type:bigint unsigned" json:"studentId"`
	Active    *bool  `gorm:"uniqueIndex:idx_one_active" json:"-"`

	Seq    int    `gorm:"default:1" json:"seq"` // 1..N per (student, variant)
	Status string `gorm:"type:enum('in_progress','submitted','expired');default:'in_progress'" json:"status"`

	StartedAt      time.Time  `json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	ElapsedSeconds int        `json:"elapsedSeconds"`

	Score        *int `json:"score,omitempty"` // percentage, nil until terminal
	CorrectCount int  `json:"correctCount"`
	TotalCount   int  `json:"totalCount"`
	Passed       bool `json:"passed"`

	QuestionOrder json.RawMessage `gorm:"type:json" json:"-"` // []uint question ids, display order
	OptionOrders  json.RawMessage `gorm:"type:json" json:"-"` // map[questionID][]optionID
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) Terminal() bool {
	return a.Status != AttemptInProgress
}

// DecodedQuestionOrder returns the persisted display order.
func (a *Attempt) DecodedQuestionOrder() ([]uint, error) {
	if len(a.QuestionOrder) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(a.QuestionOrder, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// DecodedOptionOrders returns the persisted per-question option orders.
// Keys are decimal question ids (JSON object keys are strings).
func (a *Attempt) DecodedOptionOrders() (map[string][]string, error) {
	if len(a.OptionOrders) == 0 {
		return nil, nil
	}
	var orders map[string][]string
	if err := json.Unmarshal(a.OptionOrders, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
