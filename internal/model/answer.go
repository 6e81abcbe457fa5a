package model

import "encoding/json"

// Answer is one student's response to one slot of their attempt. The
// unique index enforces at most one row per (attempt, question); writes go
// through an atomic upsert.
//
// swagger:model Answer
type Answer struct {
	BaseModel

	AttemptID  uint `gorm:"uniqueIndex:idx_attempt_question;index;type:bigint unsigned" json:"attemptId"`
	QuestionID uint `gorm:"uniqueIndex:idx_attempt_question;type:bigint unsigned" json:"questionId"`

	Value            json.RawMessage `gorm:"type:json" json:"value"` // tagged AnswerValue
	IsCorrect        bool            `json:"isCorrect"`
	TimeSpentSeconds int             `gorm:"default:0" json:"timeSpentSeconds"`
	Flagged          bool            `gorm:"default:false" json:"flagged"` // marked for review
}

func (Answer) TableName() string {
	return "answers"
}

// AnswerValue is the tagged payload stored in Answer.Value. Exactly one of
// the value fields is meaningful, keyed by Type, so scoring is a closed
// switch rather than a guess over an open blob.
type AnswerValue struct {
	Type        string   `json:"type"` // single_choice | multiple_choice | true_false
	Selected    string   `json:"selected,omitempty"`
	SelectedSet []string `json:"selectedSet,omitempty"`
}

// DecodedValue unmarshals the stored payload.
func (a *Answer) DecodedValue() (AnswerValue, error) {
	var v AnswerValue
	if len(a.Value) == 0 {
		return v, nil
	}
	err := json.Unmarshal(a.Value, &v)
	return v, err
}
