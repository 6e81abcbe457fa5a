package service

import (
	"time"

	"simulado_backend/internal/model"
)

// The services talk to storage through these narrow interfaces. The gorm
// repositories are the production implementations; tests substitute
// in-memory fakes.

type QuestionSource interface {
	AvailableQuestions(bankID uint, excludeIDs []uint, difficulty string) ([]model.Question, error)
	CommittedQuestionIDs(bankID uint) ([]uint, error)
}

type VariantStore interface {
	FindBank(bankID uint) (*model.QuestionBank, error)
	FindByID(id uint) (*model.ExamVariant, error)
	Slots(variantID uint) ([]model.VariantSlot, error)
	CountByBank(bankID uint) (int64, error)
	CreateBatch(variants []*model.ExamVariant) error
	Update(v *model.ExamVariant) error
	DeleteDraft(v *model.ExamVariant) error
	ListByBank(bankID uint, page, limit int) ([]model.ExamVariant, int64, error)
	DueForScheduledPublish(now time.Time) ([]model.ExamVariant, error)
}

type AttemptStore interface {
	Create(attempt *model.Attempt) error
	Update(attempt *model.Attempt) error
	FindByPublicID(publicID string) (*model.Attempt, error)
	Active(studentID, variantID uint) (*model.Attempt, error)
	CountByStudentAndVariant(studentID, variantID uint) (int64, error)
	CountTerminal(studentID, variantID uint) (int64, error)
	LatestTerminal(studentID, variantID uint) (*model.Attempt, error)
	ListByStudentAndVariant(studentID, variantID uint) ([]model.Attempt, error)
	UpsertAnswer(answer *model.Answer) error
	Answers(attemptID uint) ([]model.Answer, error)
}
