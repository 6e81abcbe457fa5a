package service

import (
	"fmt"

	"simulado_backend/internal/model"
	"simulado_backend/internal/util"
)

// ScoreResult is the aggregate the attempt engine stores on submission.
type ScoreResult struct {
	CorrectCount int
	TotalCount   int
	Percentage   int
}

// ValidateAnswerValue rejects malformed payloads before anything is
// written. The payload type must match the question type and every
// selected option must exist on the question.
func ValidateAnswerValue(q *model.Question, v model.AnswerValue) error {
	if v.Type != q.QuestionType {
		return &util.ValidationError{
			Reason: fmt.Sprintf("payload type %q does not match question type %q", v.Type, q.QuestionType),
		}
	}

	opts, err := q.DecodedOptions()
	if err != nil {
		return fmt.Errorf("decode options for question %d: %w", q.ID, err)
	}
	valid := make(map[string]bool, len(opts))
	for _, o := range opts {
		valid[o.ID] = true
	}

	switch v.Type {
	case model.QuestionSingleChoice, model.QuestionTrueFalse:
		if v.Selected == "" {
			return &util.ValidationError{Reason: "selected option is required"}
		}
		if len(v.SelectedSet) > 0 {
			return &util.ValidationError{Reason: "selectedSet is not valid for a single-answer question"}
		}
		if !valid[v.Selected] {
			return &util.ValidationError{Reason: fmt.Sprintf("option %q is not part of this question", v.Selected)}
		}
	case model.QuestionMultipleChoice:
		if len(v.SelectedSet) == 0 {
			return &util.ValidationError{Reason: "selectedSet is required"}
		}
		seen := make(map[string]bool, len(v.SelectedSet))
		for _, id := range v.SelectedSet {
			if seen[id] {
				return &util.ValidationError{Reason: fmt.Sprintf("option %q selected twice", id)}
			}
			seen[id] = true
			if !valid[id] {
				return &util.ValidationError{Reason: fmt.Sprintf("option %q is not part of this question", id)}
			}
		}
	default:
		return &util.ValidationError{Reason: fmt.Sprintf("unsupported question type %q", v.Type)}
	}
	return nil
}

// ScoreAnswer computes per-item correctness. Single-answer items must
// match the unique correct option; multi-answer items must match the
// correct set exactly, with no partial credit.
func ScoreAnswer(q *model.Question, v model.AnswerValue) (bool, error) {
	correct, err := q.DecodedCorrectIDs()
	if err != nil {
		return false, fmt.Errorf("decode correct ids for question %d: %w", q.ID, err)
	}
	if len(correct) == 0 {
		return false, fmt.Errorf("question %d has no correct option configured", q.ID)
	}

	switch v.Type {
	case model.QuestionSingleChoice, model.QuestionTrueFalse:
		return len(correct) == 1 && v.Selected == correct[0], nil
	case model.QuestionMultipleChoice:
		if len(v.SelectedSet) != len(correct) {
			return false, nil
		}
		want := make(map[string]bool, len(correct))
		for _, id := range correct {
			want[id] = true
		}
		for _, id := range v.SelectedSet {
			if !want[id] {
				return false, nil
			}
		}
		return true, nil
	}
	return false, nil
}

// ScoreAttempt aggregates over every slot of the variant. Unanswered
// slots count as incorrect: the denominator is the slot count, not the
// answered count.
func ScoreAttempt(slots []model.VariantSlot, answers []model.Answer) ScoreResult {
	byQuestion := make(map[uint]*model.Answer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	result := ScoreResult{TotalCount: len(slots)}
	for _, slot := range slots {
		if ans, ok := byQuestion[slot.QuestionID]; ok && ans.IsCorrect {
			result.CorrectCount++
		}
	}
	result.Percentage = Percentage(result.CorrectCount, result.TotalCount)
	return result
}

// Percentage rounds half-up to the nearest integer.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

// Passed applies the variant's threshold to an aggregate percentage.
func Passed(percentage, threshold int) bool {
	return percentage >= threshold
}
