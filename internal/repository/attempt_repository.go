package repository

import (
	"errors"

	"simulado_backend/internal/model"
	"simulado_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateActiveAttempt surfaces the unique-index violation on
// (student_id, variant_id, active); the engine turns it into
// AttemptInProgress so a racing second start resumes the first.
var ErrDuplicateActiveAttempt = errors.New("an active attempt already exists")

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	if err := r.DB.Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateActiveAttempt
		}
		return err
	}
	return nil
}

func (r *AttemptRepository) Update(attempt *model.Attempt) error {
	return r.DB.Save(attempt).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindByPublicID(publicID string) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.Where("public_id = ?", publicID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Active returns the student's in-progress attempt on the variant, if any.
func (r *AttemptRepository) Active(studentID, variantID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("student_id = ? AND variant_id = ? AND status = ?",
		studentID, variantID, model.AttemptInProgress).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) CountByStudentAndVariant(studentID, variantID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("student_id = ? AND variant_id = ?", studentID, variantID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) CountTerminal(studentID, variantID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("student_id = ? AND variant_id = ? AND status <> ?",
			studentID, variantID, model.AttemptInProgress).
		Count(&count).Error
	return count, err
}

// LatestTerminal returns the most recently ended attempt for cooldown
// checks, nil when none exists.
func (r *AttemptRepository) LatestTerminal(studentID, variantID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("student_id = ? AND variant_id = ? AND status <> ?",
		studentID, variantID, model.AttemptInProgress).
		Order("ended_at DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListByStudentAndVariant(studentID, variantID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("student_id = ? AND variant_id = ?", studentID, variantID).
		Order("seq").Find(&attempts).Error
	return attempts, err
}

// UpsertAnswer atomically inserts or replaces the answer for one slot.
// Concurrent writes for the same slot serialize on the unique index
// instead of read-modify-write.
func (r *AttemptRepository) UpsertAnswer(answer *model.Answer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value", "is_correct", "time_spent_seconds", "flagged", "updated_at",
		}),
	}).Create(answer).Error
}

func (r *AttemptRepository) Answers(attemptID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}
