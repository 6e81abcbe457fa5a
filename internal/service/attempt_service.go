package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"simulado_backend/internal/model"
	"simulado_backend/internal/repository"
	"simulado_backend/internal/util"

	"github.com/google/uuid"
)

// AttemptService governs the attempt state machine:
// IN_PROGRESS -> SUBMITTED or IN_PROGRESS -> EXPIRED, both terminal.
// Time limits are enforced lazily: there is no background timer, every
// read and write entry point runs the same expiry guard first.
type AttemptService struct {
	Attempts AttemptStore
	Variants VariantStore
	Events   *EventService

	now func() time.Time
}

func NewAttemptService(attempts AttemptStore, variants VariantStore, events *EventService) *AttemptService {
	return &AttemptService{
		Attempts: attempts,
		Variants: variants,
		Events:   events,
		now:      time.Now,
	}
}

// StartAttempt opens a new attempt, or reports the one already running.
// The double-start race is closed by the unique (student, variant,
// active) index: a concurrent duplicate insert loses and resumes the
// winner's attempt.
func (s *AttemptService) StartAttempt(studentID, variantID uint) (*model.Attempt, error) {
	variant, err := s.Variants.FindByID(variantID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !variant.AvailableAt(now) {
		return nil, util.ErrVariantUnavailable
	}

	if active, err := s.Attempts.Active(studentID, variantID); err != nil {
		return nil, err
	} else if active != nil {
		expired, err := s.expireIfOverdue(active, variant)
		if err != nil {
			return nil, err
		}
		if !expired {
			return nil, &util.AttemptInProgressError{AttemptID: active.ID, PublicID: active.PublicID}
		}
		// the stale attempt is now terminal; the limit and cooldown
		// checks below apply to the fresh start
	}

	terminal, err := s.Attempts.CountTerminal(studentID, variantID)
	if err != nil {
		return nil, err
	}
	if variant.MaxAttempts != nil && terminal >= int64(*variant.MaxAttempts) {
		return nil, util.ErrAttemptLimitReached
	}

	if variant.CooldownMinutes > 0 {
		last, err := s.Attempts.LatestTerminal(studentID, variantID)
		if err != nil {
			return nil, err
		}
		if last != nil && last.EndedAt != nil {
			retryAt := last.EndedAt.Add(time.Duration(variant.CooldownMinutes) * time.Minute)
			if now.Before(retryAt) {
				return nil, &util.CooldownActiveError{RetryAt: retryAt}
			}
		}
	}

	slots, err := s.Variants.Slots(variantID)
	if err != nil {
		return nil, err
	}
	order, optionOrders, err := buildPresentation(NewRand(0), slots, variant.ShuffleQuestions, variant.ShuffleOptions)
	if err != nil {
		return nil, err
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	optionsJSON, err := json.Marshal(optionOrders)
	if err != nil {
		return nil, err
	}

	prior, err := s.Attempts.CountByStudentAndVariant(studentID, variantID)
	if err != nil {
		return nil, err
	}

	active := true
	attempt := &model.Attempt{
		PublicID:      uuid.New().String(),
		VariantID:     variantID,
		StudentID:     studentID,
		Active:        &active,
		Seq:           int(prior) + 1,
		Status:        model.AttemptInProgress,
		StartedAt:     now,
		TotalCount:    len(slots),
		QuestionOrder: orderJSON,
		OptionOrders:  optionsJSON,
	}

	if err := s.Attempts.Create(attempt); err != nil {
		if errors.Is(err, repository.ErrDuplicateActiveAttempt) {
			if winner, ferr := s.Attempts.Active(studentID, variantID); ferr == nil && winner != nil {
				return nil, &util.AttemptInProgressError{AttemptID: winner.ID, PublicID: winner.PublicID}
			}
		}
		return nil, err
	}
	return attempt, nil
}

// expireIfOverdue is the shared lazy-expiry guard. When the variant is
// timed and the limit has passed, the attempt is finalized as EXPIRED as
// a side effect of whatever operation touched it.
func (s *AttemptService) expireIfOverdue(attempt *model.Attempt, variant *model.ExamVariant) (bool, error) {
	if attempt.Terminal() || variant.TimeLimitMinutes == nil {
		return false, nil
	}
	now := s.now()
	limit := time.Duration(*variant.TimeLimitMinutes) * time.Minute
	if now.Sub(attempt.StartedAt) <= limit {
		return false, nil
	}

	attempt.Status = model.AttemptExpired
	attempt.EndedAt = &now
	attempt.Active = nil
	attempt.ElapsedSeconds = int(now.Sub(attempt.StartedAt).Seconds())
	if err := s.Attempts.Update(attempt); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AttemptService) ownedAttempt(studentID uint, publicID string) (*model.Attempt, *model.ExamVariant, error) {
	attempt, err := s.Attempts.FindByPublicID(publicID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.StudentID != studentID {
		return nil, nil, util.ErrAttemptNotOwned
	}
	variant, err := s.Variants.FindByID(attempt.VariantID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, variant, nil
}

type RecordAnswerRequest struct {
	QuestionID       uint              `json:"questionId" binding:"required"`
	Value            model.AnswerValue `json:"value" binding:"required"`
	TimeSpentSeconds int               `json:"timeSpentSeconds"`
	Flagged          bool              `json:"flagged"`
}

// RecordAnswer upserts the answer for one slot, scoring it immediately so
// progress views can show partial state. The aggregate is not touched
// until submission.
func (s *AttemptService) RecordAnswer(studentID uint, attemptPublicID string, req RecordAnswerRequest) (*model.Answer, error) {
	attempt, variant, err := s.ownedAttempt(studentID, attemptPublicID)
	if err != nil {
		return nil, err
	}
	if attempt.Terminal() {
		return nil, util.ErrAttemptNotActive
	}
	expired, err := s.expireIfOverdue(attempt, variant)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, util.ErrTimeExpired
	}

	slots, err := s.Variants.Slots(attempt.VariantID)
	if err != nil {
		return nil, err
	}
	var question *model.Question
	for i := range slots {
		if slots[i].QuestionID == req.QuestionID {
			question = slots[i].Question
			break
		}
	}
	if question == nil {
		return nil, util.ErrSlotNotInVariant
	}

	if err := ValidateAnswerValue(question, req.Value); err != nil {
		return nil, err
	}
	isCorrect, err := ScoreAnswer(question, req.Value)
	if err != nil {
		return nil, err
	}

	value, err := json.Marshal(req.Value)
	if err != nil {
		return nil, err
	}
	answer := &model.Answer{
		AttemptID:        attempt.ID,
		QuestionID:       req.QuestionID,
		Value:            value,
		IsCorrect:        isCorrect,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Flagged:          req.Flagged,
	}
	if err := s.Attempts.UpsertAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// SubmitAttempt finalizes the attempt exactly once. A second call finds a
// terminal attempt and fails with AttemptNotActive; the stored score is
// never recomputed.
func (s *AttemptService) SubmitAttempt(ctx context.Context, studentID uint, attemptPublicID string) (*model.Attempt, error) {
	attempt, variant, err := s.ownedAttempt(studentID, attemptPublicID)
	if err != nil {
		return nil, err
	}
	if attempt.Terminal() {
		return nil, util.ErrAttemptNotActive
	}
	expired, err := s.expireIfOverdue(attempt, variant)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, util.ErrTimeExpired
	}

	slots, err := s.Variants.Slots(attempt.VariantID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Attempts.Answers(attempt.ID)
	if err != nil {
		return nil, err
	}

	result := ScoreAttempt(slots, answers)
	now := s.now()
	score := result.Percentage

	attempt.Status = model.AttemptSubmitted
	attempt.EndedAt = &now
	attempt.Active = nil
	attempt.ElapsedSeconds = int(now.Sub(attempt.StartedAt).Seconds())
	attempt.CorrectCount = result.CorrectCount
	attempt.TotalCount = result.TotalCount
	attempt.Score = &score
	attempt.Passed = Passed(score, variant.PassThreshold)

	if err := s.Attempts.Update(attempt); err != nil {
		return nil, err
	}
	s.Events.AttemptSubmitted(ctx, attempt)
	return attempt, nil
}

// SlotView is one question as the student sees it: options in the
// persisted presentation order, correctness only once the visibility
// policy allows it.
type SlotView struct {
	QuestionID   uint                   `json:"questionId"`
	QuestionType string                 `json:"questionType"`
	Content      string                 `json:"content"`
	Options      []model.QuestionOption `json:"options"`
	Answer       *model.AnswerValue     `json:"answer,omitempty"`
	Flagged      bool                   `json:"flagged"`
	TimeSpent    int                    `json:"timeSpentSeconds"`

	IsCorrect   *bool    `json:"isCorrect,omitempty"`
	CorrectIDs  []string `json:"correctIds,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

type AttemptView struct {
	AttemptID        string     `json:"attemptId"`
	VariantCode      string     `json:"variantCode"`
	Seq              int        `json:"seq"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
	RemainingSeconds *int       `json:"remainingSeconds,omitempty"`

	Score        *int  `json:"score,omitempty"`
	CorrectCount *int  `json:"correctCount,omitempty"`
	TotalCount   int   `json:"totalCount"`
	Passed       *bool `json:"passed,omitempty"`

	Slots []SlotView `json:"slots"`
}

// detailVisible applies the variant's result-visibility policy.
func detailVisible(variant *model.ExamVariant, now time.Time) bool {
	switch variant.ResultVisibility {
	case model.VisibilityImmediate:
		return true
	case model.VisibilityAtDate:
		return variant.ResultRevealAt != nil && !now.Before(*variant.ResultRevealAt)
	default: // never
		return false
	}
}

// GetAttemptView is the read path. It runs the same lazy-expiry guard as
// the mutators, so simply fetching an overdue attempt finalizes it as
// EXPIRED, then renders the persisted presentation order.
func (s *AttemptService) GetAttemptView(studentID uint, attemptPublicID string) (*AttemptView, error) {
	attempt, variant, err := s.ownedAttempt(studentID, attemptPublicID)
	if err != nil {
		return nil, err
	}
	if _, err := s.expireIfOverdue(attempt, variant); err != nil {
		return nil, err
	}

	slots, err := s.Variants.Slots(attempt.VariantID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Attempts.Answers(attempt.ID)
	if err != nil {
		return nil, err
	}
	answerByQuestion := make(map[uint]*model.Answer, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}
	slotByQuestion := make(map[uint]*model.VariantSlot, len(slots))
	for i := range slots {
		slotByQuestion[slots[i].QuestionID] = &slots[i]
	}

	order, err := attempt.DecodedQuestionOrder()
	if err != nil {
		return nil, fmt.Errorf("decode question order for attempt %d: %w", attempt.ID, err)
	}
	optionOrders, err := attempt.DecodedOptionOrders()
	if err != nil {
		return nil, fmt.Errorf("decode option orders for attempt %d: %w", attempt.ID, err)
	}

	now := s.now()
	revealDetail := attempt.Terminal() && detailVisible(variant, now)

	view := &AttemptView{
		AttemptID:   attempt.PublicID,
		VariantCode: variant.Code,
		Seq:         attempt.Seq,
		Status:      attempt.Status,
		StartedAt:   attempt.StartedAt,
		EndedAt:     attempt.EndedAt,
		TotalCount:  attempt.TotalCount,
	}
	if attempt.Terminal() {
		// aggregate score and pass/fail stay visible under every policy
		view.Score = attempt.Score
		view.Passed = &attempt.Passed
		if revealDetail {
			c := attempt.CorrectCount
			view.CorrectCount = &c
		}
	} else if variant.TimeLimitMinutes != nil {
		remaining := int((time.Duration(*variant.TimeLimitMinutes)*time.Minute - now.Sub(attempt.StartedAt)).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		view.RemainingSeconds = &remaining
	}

	for _, questionID := range order {
		slot := slotByQuestion[questionID]
		if slot == nil || slot.Question == nil {
			continue
		}
		q := slot.Question
		opts, err := q.DecodedOptions()
		if err != nil {
			return nil, err
		}
		sv := SlotView{
			QuestionID:   questionID,
			QuestionType: q.QuestionType,
			Content:      q.Content,
			Options:      orderedOptions(opts, optionOrders[strconv.FormatUint(uint64(questionID), 10)]),
		}
		if ans := answerByQuestion[questionID]; ans != nil {
			value, err := ans.DecodedValue()
			if err != nil {
				return nil, err
			}
			sv.Answer = &value
			sv.Flagged = ans.Flagged
			sv.TimeSpent = ans.TimeSpentSeconds
			if revealDetail {
				correct := ans.IsCorrect
				sv.IsCorrect = &correct
			}
		}
		if revealDetail {
			ids, err := q.DecodedCorrectIDs()
			if err != nil {
				return nil, err
			}
			sv.CorrectIDs = ids
			sv.Explanation = q.Explanation
		}
		view.Slots = append(view.Slots, sv)
	}

	return view, nil
}

// orderedOptions reorders the question's options to the persisted
// per-attempt permutation; options missing from the stored order keep
// their original position at the end.
func orderedOptions(opts []model.QuestionOption, order []string) []model.QuestionOption {
	if len(order) == 0 {
		return opts
	}
	byID := make(map[string]model.QuestionOption, len(opts))
	for _, o := range opts {
		byID[o.ID] = o
	}
	out := make([]model.QuestionOption, 0, len(opts))
	for _, id := range order {
		if o, ok := byID[id]; ok {
			out = append(out, o)
			delete(byID, id)
		}
	}
	for _, o := range opts {
		if _, ok := byID[o.ID]; ok {
			out = append(out, o)
		}
	}
	return out
}

// ListAttempts returns the student's attempt history for one variant.
func (s *AttemptService) ListAttempts(studentID, variantID uint) ([]model.Attempt, error) {
	return s.Attempts.ListByStudentAndVariant(studentID, variantID)
}
