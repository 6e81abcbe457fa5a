package repository

import (
	"simulado_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// AvailableQuestions returns the active questions of a bank that are not
// in excludeIDs, optionally filtered to one difficulty tier. Pure read.
func (r *QuestionRepository) AvailableQuestions(bankID uint, excludeIDs []uint, difficulty string) ([]model.Question, error) {
	q := r.DB.Where("bank_id = ? AND active = ?", bankID, true)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	var questions []model.Question
	err := q.Order("id").Find(&questions).Error
	return questions, err
}

// CommittedQuestionIDs returns every question id already attached to a
// non-draft variant of the bank. The generator excludes these so published
// exams never share questions with new batches.
func (r *QuestionRepository) CommittedQuestionIDs(bankID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.VariantSlot{}).
		Joins("JOIN exam_variants ON exam_variants.id = variant_slots.variant_id").
		Where("exam_variants.bank_id = ? AND exam_variants.status <> ?", bankID, model.VariantDraft).
		Pluck("variant_slots.question_id", &ids).Error
	return ids, err
}
