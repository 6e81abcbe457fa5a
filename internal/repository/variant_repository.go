package repository

import (
	"errors"
	"time"

	"simulado_backend/internal/model"
	"simulado_backend/internal/util"

	"gorm.io/gorm"
)

type VariantRepository struct {
	DB *gorm.DB
}

func NewVariantRepository(db *gorm.DB) *VariantRepository {
	return &VariantRepository{DB: db}
}

func (r *VariantRepository) FindBank(bankID uint) (*model.QuestionBank, error) {
	var bank model.QuestionBank
	if err := r.DB.First(&bank, bankID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrBankNotFound
		}
		return nil, err
	}
	return &bank, nil
}

func (r *VariantRepository) FindByID(id uint) (*model.ExamVariant, error) {
	var v model.ExamVariant
	if err := r.DB.First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVariantNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Slots returns a variant's slots in position order with questions
// preloaded.
func (r *VariantRepository) Slots(variantID uint) ([]model.VariantSlot, error) {
	var slots []model.VariantSlot
	err := r.DB.Preload("Question").
		Where("variant_id = ?", variantID).
		Order("position").
		Find(&slots).Error
	return slots, err
}

// CountByBank feeds the next human-readable code sequence. Soft-deleted
// drafts still count so codes are never reissued.
func (r *VariantRepository) CountByBank(bankID uint) (int64, error) {
	var count int64
	err := r.DB.Unscoped().Model(&model.ExamVariant{}).
		Where("bank_id = ?", bankID).Count(&count).Error
	return count, err
}

// CreateBatch persists a whole generated batch in one transaction. Either
// every variant and all of its slots commit, or nothing does.
func (r *VariantRepository) CreateBatch(variants []*model.ExamVariant) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for _, v := range variants {
			if err := tx.Create(v).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *VariantRepository) Update(v *model.ExamVariant) error {
	return r.DB.Save(v).Error
}

// DeleteDraft removes a draft variant and its slots. Published and closed
// variants are never deleted.
func (r *VariantRepository) DeleteDraft(v *model.ExamVariant) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("variant_id = ?", v.ID).Delete(&model.VariantSlot{}).Error; err != nil {
			return err
		}
		return tx.Delete(v).Error
	})
}

func (r *VariantRepository) ListByBank(bankID uint, page, limit int) ([]model.ExamVariant, int64, error) {
	var total int64
	q := r.DB.Model(&model.ExamVariant{}).Where("bank_id = ?", bankID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var variants []model.ExamVariant
	err := q.Order("id").Offset((page - 1) * limit).Limit(limit).Find(&variants).Error
	return variants, total, err
}

// DueForScheduledPublish returns drafts whose scheduled publish instant
// has passed.
func (r *VariantRepository) DueForScheduledPublish(now time.Time) ([]model.ExamVariant, error) {
	var variants []model.ExamVariant
	err := r.DB.Where("status = ? AND scheduled_publish_at IS NOT NULL AND scheduled_publish_at <= ?",
		model.VariantDraft, now).Find(&variants).Error
	return variants, err
}
