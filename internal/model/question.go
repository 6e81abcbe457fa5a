package model

import "encoding/json"

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
)

// Difficulties lists the tiers from easiest to hardest; the stratified
// sampler relies on this ordering when it assigns rounding remainders.
var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// swagger:model Question
type Question struct {
	BaseModel

	BankID       uint            `gorm:"index;type:bigint unsigned" json:"bankId"`
	QuestionType string          `gorm:"size:50;default:'single_choice'" json:"questionType"`
	Difficulty   string          `gorm:"type:enum('easy','medium','hard');default:'easy';index" json:"difficulty"`
	Content      string          `gorm:"type:text" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options"` // array of {id, text}
	CorrectIDs   json.RawMessage `gorm:"type:json" json:"-"`       // array of correct option ids, never sent to students
	Weight       int             `gorm:"default:1" json:"weight"`
	Active       bool            `gorm:"default:true;index" json:"active"`
	Explanation  string          `gorm:"type:text" json:"explanation"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionOption is the decoded shape of one entry in Question.Options.
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DecodedOptions unmarshals the stored options array. An empty column
// decodes to nil rather than erroring.
func (q *Question) DecodedOptions() ([]QuestionOption, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var opts []QuestionOption
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// DecodedCorrectIDs unmarshals the correct option id set.
func (q *Question) DecodedCorrectIDs() ([]string, error) {
	if len(q.CorrectIDs) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(q.CorrectIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
