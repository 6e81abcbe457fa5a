package model

// QuestionBank is the curated pool ("simulado") a teacher draws exam
// variants from. Bank CRUD and question import live outside this service;
// the generator only reads banks.
//
// swagger:model QuestionBank
type QuestionBank struct {
	BaseModel

	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CodePrefix  string `gorm:"size:20;not null" json:"codePrefix"` // used to build variant codes
}

func (QuestionBank) TableName() string {
	return "question_banks"
}
