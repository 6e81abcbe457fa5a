package service

import (
	"errors"
	"fmt"
	"time"

	"simulado_backend/internal/model"
	"simulado_backend/internal/repository"
	"simulado_backend/internal/util"
)

// fakeStores backs in-memory implementations of QuestionSource,
// VariantStore and AttemptStore, mirroring the uniqueness constraints the
// gorm repositories get from MySQL indexes. fakeStores itself serves the
// question and variant sides; fakeAttemptStore is the attempt-side view
// over the same state (the two interfaces both declare Update).
type fakeStores struct {
	banks     map[uint]*model.QuestionBank
	questions []model.Question

	variants      map[uint]*model.ExamVariant
	nextVariantID uint

	attempts      map[uint]*model.Attempt
	nextAttemptID uint

	answers map[string]*model.Answer

	failCreateBatch bool
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		banks:    map[uint]*model.QuestionBank{},
		variants: map[uint]*model.ExamVariant{},
		attempts: map[uint]*model.Attempt{},
		answers:  map[string]*model.Answer{},
	}
}

// --- QuestionSource ---

func (f *fakeStores) AvailableQuestions(bankID uint, excludeIDs []uint, difficulty string) ([]model.Question, error) {
	excluded := make(map[uint]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []model.Question
	for _, q := range f.questions {
		if q.BankID != bankID || !q.Active || excluded[q.ID] {
			continue
		}
		if difficulty != "" && q.Difficulty != difficulty {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeStores) CommittedQuestionIDs(bankID uint) ([]uint, error) {
	var ids []uint
	for _, v := range f.variants {
		if v.BankID != bankID || v.Status == model.VariantDraft {
			continue
		}
		for _, slot := range v.Slots {
			ids = append(ids, slot.QuestionID)
		}
	}
	return ids, nil
}

// --- VariantStore ---

func (f *fakeStores) FindBank(bankID uint) (*model.QuestionBank, error) {
	bank, ok := f.banks[bankID]
	if !ok {
		return nil, util.ErrBankNotFound
	}
	return bank, nil
}

func (f *fakeStores) FindByID(id uint) (*model.ExamVariant, error) {
	v, ok := f.variants[id]
	if !ok {
		return nil, util.ErrVariantNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStores) Slots(variantID uint) ([]model.VariantSlot, error) {
	v, ok := f.variants[variantID]
	if !ok {
		return nil, util.ErrVariantNotFound
	}
	slots := make([]model.VariantSlot, len(v.Slots))
	copy(slots, v.Slots)
	for i := range slots {
		for j := range f.questions {
			if f.questions[j].ID == slots[i].QuestionID {
				q := f.questions[j]
				slots[i].Question = &q
				break
			}
		}
	}
	return slots, nil
}

func (f *fakeStores) CountByBank(bankID uint) (int64, error) {
	var count int64
	for _, v := range f.variants {
		if v.BankID == bankID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStores) CreateBatch(variants []*model.ExamVariant) error {
	if f.failCreateBatch {
		return errors.New("storage failure")
	}
	for _, v := range variants {
		f.nextVariantID++
		v.ID = f.nextVariantID
		for i := range v.Slots {
			v.Slots[i].VariantID = v.ID
		}
		cp := *v
		f.variants[v.ID] = &cp
	}
	return nil
}

func (f *fakeStores) Update(v *model.ExamVariant) error {
	if _, ok := f.variants[v.ID]; !ok {
		return util.ErrVariantNotFound
	}
	cp := *v
	f.variants[v.ID] = &cp
	return nil
}

func (f *fakeStores) DeleteDraft(v *model.ExamVariant) error {
	delete(f.variants, v.ID)
	return nil
}

func (f *fakeStores) ListByBank(bankID uint, page, limit int) ([]model.ExamVariant, int64, error) {
	var out []model.ExamVariant
	for _, v := range f.variants {
		if v.BankID == bankID {
			out = append(out, *v)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeStores) DueForScheduledPublish(now time.Time) ([]model.ExamVariant, error) {
	var out []model.ExamVariant
	for _, v := range f.variants {
		if v.Status == model.VariantDraft && v.ScheduledPublishAt != nil && !v.ScheduledPublishAt.After(now) {
			out = append(out, *v)
		}
	}
	return out, nil
}

// --- AttemptStore ---

type fakeAttemptStore struct {
	*fakeStores
}

func (f *fakeAttemptStore) Create(attempt *model.Attempt) error {
	if attempt.Active != nil {
		for _, a := range f.attempts {
			if a.StudentID == attempt.StudentID && a.VariantID == attempt.VariantID && a.Active != nil {
				return repository.ErrDuplicateActiveAttempt
			}
		}
	}
	f.nextAttemptID++
	attempt.ID = f.nextAttemptID
	cp := *attempt
	f.attempts[attempt.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) Update(attempt *model.Attempt) error {
	if _, ok := f.attempts[attempt.ID]; !ok {
		return util.ErrAttemptNotFound
	}
	cp := *attempt
	f.attempts[attempt.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) FindByPublicID(publicID string) (*model.Attempt, error) {
	for _, a := range f.attempts {
		if a.PublicID == publicID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, util.ErrAttemptNotFound
}

func (f *fakeAttemptStore) Active(studentID, variantID uint) (*model.Attempt, error) {
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.VariantID == variantID && a.Status == model.AttemptInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAttemptStore) CountByStudentAndVariant(studentID, variantID uint) (int64, error) {
	var count int64
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.VariantID == variantID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptStore) CountTerminal(studentID, variantID uint) (int64, error) {
	var count int64
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.VariantID == variantID && a.Status != model.AttemptInProgress {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptStore) LatestTerminal(studentID, variantID uint) (*model.Attempt, error) {
	var latest *model.Attempt
	for _, a := range f.attempts {
		if a.StudentID != studentID || a.VariantID != variantID || a.Status == model.AttemptInProgress || a.EndedAt == nil {
			continue
		}
		if latest == nil || a.EndedAt.After(*latest.EndedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeAttemptStore) ListByStudentAndVariant(studentID, variantID uint) ([]model.Attempt, error) {
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.VariantID == variantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) UpsertAnswer(answer *model.Answer) error {
	key := fmt.Sprintf("%d-%d", answer.AttemptID, answer.QuestionID)
	cp := *answer
	f.answers[key] = &cp
	return nil
}

func (f *fakeAttemptStore) Answers(attemptID uint) ([]model.Answer, error) {
	var out []model.Answer
	for _, a := range f.answers {
		if a.AttemptID == attemptID {
			out = append(out, *a)
		}
	}
	return out, nil
}
