package util

import (
	"errors"
	"fmt"
	"time"
)

// Stable machine codes surfaced alongside every domain error so the
// frontend can render specific guidance instead of a generic failure.
const (
	CodeInsufficientQuestions    = "INSUFFICIENT_QUESTIONS"
	CodeInsufficientByDifficulty = "INSUFFICIENT_QUESTIONS_BY_DIFFICULTY"
	CodeVariantUnavailable       = "VARIANT_UNAVAILABLE"
	CodeVariantNotDraft          = "VARIANT_NOT_DRAFT"
	CodeAttemptInProgress        = "ATTEMPT_IN_PROGRESS"
	CodeAttemptLimitReached      = "ATTEMPT_LIMIT_REACHED"
	CodeCooldownActive           = "COOLDOWN_ACTIVE"
	CodeAttemptNotActive         = "ATTEMPT_NOT_ACTIVE"
	CodeAttemptNotOwned          = "ATTEMPT_NOT_OWNED"
	CodeTimeExpired              = "TIME_EXPIRED"
	CodeInvalidAnswer            = "INVALID_ANSWER"
	CodeSlotNotInVariant         = "SLOT_NOT_IN_VARIANT"
	CodeNotFound                 = "NOT_FOUND"
)

var (
	ErrBankNotFound        = errors.New("question bank not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrVariantNotDraft     = errors.New("variant is not a draft")
	ErrVariantUnavailable  = errors.New("variant not published or outside its availability window")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	ErrAttemptNotActive    = errors.New("attempt is no longer in progress")
	ErrAttemptNotOwned     = errors.New("attempt belongs to another student")
	ErrTimeExpired         = errors.New("attempt time limit expired")
	ErrSlotNotInVariant    = errors.New("question is not part of this variant")
)

// InsufficientQuestionsError reports an undersized pool before any variant
// is generated.
type InsufficientQuestionsError struct {
	Need int
	Have int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("insufficient questions in pool: need %d, have %d", e.Need, e.Have)
}

// InsufficientByDifficultyError names the tier and 1-based variant index
// that could not be filled. Nothing is generated when it is returned.
type InsufficientByDifficultyError struct {
	Tier         string
	VariantIndex int
	Need         int
	Have         int
}

func (e *InsufficientByDifficultyError) Error() string {
	return fmt.Sprintf("insufficient %s questions for variant %d: need %d, have %d",
		e.Tier, e.VariantIndex, e.Need, e.Have)
}

// AttemptInProgressError carries the live attempt so the caller can resume
// instead of duplicating it.
type AttemptInProgressError struct {
	AttemptID uint
	PublicID  string
}

func (e *AttemptInProgressError) Error() string {
	return fmt.Sprintf("an attempt is already in progress (id %d)", e.AttemptID)
}

// CooldownActiveError reports the earliest instant a retry will succeed.
type CooldownActiveError struct {
	RetryAt time.Time
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active, retry at %s", e.RetryAt.Format(time.RFC3339))
}

// ValidationError rejects a malformed payload before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid answer payload: " + e.Reason
}

func asError[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// ErrorCode maps any domain error to its stable code, or "" when the error
// is not part of the taxonomy (storage failures propagate as-is).
func ErrorCode(err error) string {
	var insufficient *InsufficientQuestionsError
	var byTier *InsufficientByDifficultyError
	var inProgress *AttemptInProgressError
	var cooldown *CooldownActiveError
	var validation *ValidationError

	switch {
	case errors.As(err, &insufficient):
		return CodeInsufficientQuestions
	case errors.As(err, &byTier):
		return CodeInsufficientByDifficulty
	case errors.As(err, &inProgress):
		return CodeAttemptInProgress
	case errors.As(err, &cooldown):
		return CodeCooldownActive
	case errors.As(err, &validation):
		return CodeInvalidAnswer
	case errors.Is(err, ErrVariantUnavailable):
		return CodeVariantUnavailable
	case errors.Is(err, ErrVariantNotDraft):
		return CodeVariantNotDraft
	case errors.Is(err, ErrAttemptLimitReached):
		return CodeAttemptLimitReached
	case errors.Is(err, ErrAttemptNotActive):
		return CodeAttemptNotActive
	case errors.Is(err, ErrAttemptNotOwned):
		return CodeAttemptNotOwned
	case errors.Is(err, ErrTimeExpired):
		return CodeTimeExpired
	case errors.Is(err, ErrSlotNotInVariant):
		return CodeSlotNotInVariant
	case errors.Is(err, ErrBankNotFound), errors.Is(err, ErrVariantNotFound), errors.Is(err, ErrAttemptNotFound):
		return CodeNotFound
	}
	return ""
}
