package service

import (
	"context"
	"testing"
	"time"

	"simulado_backend/internal/model"
	"simulado_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStudent = uint(7)

// publishedVariant seeds a bank with 10 single-choice questions (correct
// option "A") and one published variant over all of them.
func publishedVariant(t *testing.T, f *fakeStores, mutate func(v *model.ExamVariant)) *model.ExamVariant {
	t.Helper()
	seedBank(f)
	addQuestions(f, model.DifficultyEasy, 10)

	v := &model.ExamVariant{
		BankID:           1,
		Code:             "ENEM-2026-001",
		Status:           model.VariantPublished,
		PassThreshold:    60,
		ResultVisibility: model.VisibilityImmediate,
	}
	for pos, q := range f.questions {
		v.Slots = append(v.Slots, model.VariantSlot{QuestionID: q.ID, Position: pos})
	}
	if mutate != nil {
		mutate(v)
	}
	require.NoError(t, f.CreateBatch([]*model.ExamVariant{v}))
	stored, err := f.FindByID(v.ID)
	require.NoError(t, err)
	return stored
}

func newTestAttemptService(f *fakeStores, clock *time.Time) *AttemptService {
	svc := NewAttemptService(&fakeAttemptStore{f}, f, nil)
	svc.now = func() time.Time { return *clock }
	return svc
}

func answerSlots(t *testing.T, svc *AttemptService, publicID string, correct, wrong int) {
	t.Helper()
	for i := 0; i < correct+wrong; i++ {
		selected := "A"
		if i >= correct {
			selected = "B"
		}
		_, err := svc.RecordAnswer(testStudent, publicID, RecordAnswerRequest{
			QuestionID: uint(i + 1),
			Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: selected},
		})
		require.NoError(t, err)
	}
}

func TestStartAttempt_PersistsPresentation(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, nil)
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, attempt.PublicID)
	assert.Equal(t, 1, attempt.Seq)
	assert.Equal(t, model.AttemptInProgress, attempt.Status)
	assert.Equal(t, 10, attempt.TotalCount)
	require.NotNil(t, attempt.Active)

	order, err := attempt.DecodedQuestionOrder()
	require.NoError(t, err)
	require.Len(t, order, 10)
	// no shuffle: slot position order
	for i, qid := range order {
		assert.Equal(t, uint(i+1), qid)
	}

	optionOrders, err := attempt.DecodedOptionOrders()
	require.NoError(t, err)
	assert.Len(t, optionOrders, 10)
	assert.Equal(t, []string{"A", "B", "C", "D"}, optionOrders["1"])
}

func TestStartAttempt_ShuffledOrderIsStableAcrossReads(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) {
		v.ShuffleQuestions = true
		v.ShuffleOptions = true
	})
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	order, err := attempt.DecodedQuestionOrder()
	require.NoError(t, err)

	first, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)
	second, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)

	require.Len(t, first.Slots, 10)
	for i, sv := range first.Slots {
		assert.Equal(t, order[i], sv.QuestionID)
		assert.Equal(t, sv.QuestionID, second.Slots[i].QuestionID)
		assert.Equal(t, sv.Options, second.Slots[i].Options)
	}
}

func TestStartAttempt_VariantMustBeAvailable(t *testing.T) {
	clock := testNow

	t.Run("draft", func(t *testing.T) {
		f := newFakeStores()
		v := publishedVariant(t, f, func(v *model.ExamVariant) { v.Status = model.VariantDraft })
		svc := newTestAttemptService(f, &clock)
		_, err := svc.StartAttempt(testStudent, v.ID)
		assert.ErrorIs(t, err, util.ErrVariantUnavailable)
	})

	t.Run("window closed", func(t *testing.T) {
		f := newFakeStores()
		past := testNow.Add(-time.Hour)
		v := publishedVariant(t, f, func(v *model.ExamVariant) { v.AvailableTo = &past })
		svc := newTestAttemptService(f, &clock)
		_, err := svc.StartAttempt(testStudent, v.ID)
		assert.ErrorIs(t, err, util.ErrVariantUnavailable)
	})

	t.Run("window not yet open", func(t *testing.T) {
		f := newFakeStores()
		future := testNow.Add(time.Hour)
		v := publishedVariant(t, f, func(v *model.ExamVariant) { v.AvailableFrom = &future })
		svc := newTestAttemptService(f, &clock)
		_, err := svc.StartAttempt(testStudent, v.ID)
		assert.ErrorIs(t, err, util.ErrVariantUnavailable)
	})
}

func TestStartAttempt_SecondStartReportsRunningAttempt(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, nil)
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	first, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	_, err = svc.StartAttempt(testStudent, v.ID)
	var inProgress *util.AttemptInProgressError
	require.ErrorAs(t, err, &inProgress)
	assert.Equal(t, first.PublicID, inProgress.PublicID)

	// exactly one live attempt exists
	active, err := svc.Attempts.Active(testStudent, v.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.PublicID, active.PublicID)
}

func TestStartAttempt_EnforcesMaxAttempts(t *testing.T) {
	f := newFakeStores()
	max := 1
	v := publishedVariant(t, f, func(v *model.ExamVariant) { v.MaxAttempts = &max })
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	require.NoError(t, err)

	_, err = svc.StartAttempt(testStudent, v.ID)
	assert.ErrorIs(t, err, util.ErrAttemptLimitReached)
}

func TestStartAttempt_Cooldown(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) { v.CooldownMinutes = 30 })
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	require.NoError(t, err)

	clock = testNow.Add(10 * time.Minute)
	_, err = svc.StartAttempt(testStudent, v.ID)
	var cooldown *util.CooldownActiveError
	require.ErrorAs(t, err, &cooldown)
	assert.True(t, cooldown.RetryAt.Equal(testNow.Add(30*time.Minute)))

	clock = testNow.Add(31 * time.Minute)
	second, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seq)
}

func TestRecordAnswer_UpsertKeepsLastWrite(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, nil)
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	first, err := svc.RecordAnswer(testStudent, attempt.PublicID, RecordAnswerRequest{
		QuestionID: 1,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "B"},
	})
	require.NoError(t, err)
	assert.False(t, first.IsCorrect)

	second, err := svc.RecordAnswer(testStudent, attempt.PublicID, RecordAnswerRequest{
		QuestionID: 1,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "A"},
		Flagged:    true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsCorrect)

	answers, err := svc.Attempts.Answers(attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	value, err := answers[0].DecodedValue()
	require.NoError(t, err)
	assert.Equal(t, "A", value.Selected)
	assert.True(t, answers[0].Flagged)
}

func TestRecordAnswer_Rejections(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, nil)
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	_, err = svc.RecordAnswer(testStudent, attempt.PublicID, RecordAnswerRequest{
		QuestionID: 999,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "A"},
	})
	assert.ErrorIs(t, err, util.ErrSlotNotInVariant)

	_, err = svc.RecordAnswer(testStudent, attempt.PublicID, RecordAnswerRequest{
		QuestionID: 1,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "Z"},
	})
	var validation *util.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.RecordAnswer(uint(999), attempt.PublicID, RecordAnswerRequest{
		QuestionID: 1,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "A"},
	})
	assert.ErrorIs(t, err, util.ErrAttemptNotOwned)

	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	require.NoError(t, err)
	_, err = svc.RecordAnswer(testStudent, attempt.PublicID, RecordAnswerRequest{
		QuestionID: 1,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "A"},
	})
	assert.ErrorIs(t, err, util.ErrAttemptNotActive)
}

func TestLazyExpiry(t *testing.T) {
	limit := 30
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) { v.TimeLimitMinutes = &limit })
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	// inside the limit the attempt stays writable
	clock = testNow.Add(29 * time.Minute)
	_, err = svc.RecordAnswer(testStudent, attempt.PublicID, RecordAnswerRequest{
		QuestionID: 1,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "A"},
	})
	require.NoError(t, err)

	// past the limit the guard finalizes the attempt and rejects the write
	clock = testNow.Add(31 * time.Minute)
	_, err = svc.RecordAnswer(testStudent, attempt.PublicID, RecordAnswerRequest{
		QuestionID: 2,
		Value:      model.AnswerValue{Type: model.QuestionSingleChoice, Selected: "A"},
	})
	assert.ErrorIs(t, err, util.ErrTimeExpired)

	stored, err := svc.Attempts.FindByPublicID(attempt.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptExpired, stored.Status)
	assert.Nil(t, stored.Active)
	require.NotNil(t, stored.EndedAt)
	assert.Equal(t, 31*60, stored.ElapsedSeconds)

	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	assert.ErrorIs(t, err, util.ErrAttemptNotActive)
}

func TestLazyExpiry_StartFinalizesOverdueAttempt(t *testing.T) {
	limit := 30
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) { v.TimeLimitMinutes = &limit })
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	first, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	// restarting past the limit expires the stale attempt and opens a new
	// one instead of pointing the student at a dead run
	clock = testNow.Add(31 * time.Minute)
	second, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seq)
	assert.NotEqual(t, first.PublicID, second.PublicID)

	stale, err := svc.Attempts.FindByPublicID(first.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptExpired, stale.Status)
	assert.Nil(t, stale.Active)
}

func TestLazyExpiry_StartStillEnforcesLimitsAfterExpiry(t *testing.T) {
	limit := 30
	max := 1
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) {
		v.TimeLimitMinutes = &limit
		v.MaxAttempts = &max
	})
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	_, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	// the expired attempt consumes the only allowed attempt
	clock = testNow.Add(31 * time.Minute)
	_, err = svc.StartAttempt(testStudent, v.ID)
	assert.ErrorIs(t, err, util.ErrAttemptLimitReached)
}

func TestLazyExpiry_ReadPathFinalizesToo(t *testing.T) {
	limit := 30
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) { v.TimeLimitMinutes = &limit })
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	clock = testNow.Add(40 * time.Minute)
	view, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptExpired, view.Status)
	assert.Nil(t, view.RemainingSeconds)

	stored, err := svc.Attempts.FindByPublicID(attempt.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptExpired, stored.Status)
}

func TestSubmitAttempt_ScoresOnce(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, nil)
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	answerSlots(t, svc, attempt.PublicID, 7, 2) // one slot left unanswered

	clock = testNow.Add(12 * time.Minute)
	submitted, err := svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	require.NoError(t, err)

	assert.Equal(t, model.AttemptSubmitted, submitted.Status)
	require.NotNil(t, submitted.Score)
	assert.Equal(t, 70, *submitted.Score)
	assert.Equal(t, 7, submitted.CorrectCount)
	assert.Equal(t, 10, submitted.TotalCount)
	assert.True(t, submitted.Passed)
	assert.Equal(t, 12*60, submitted.ElapsedSeconds)
	assert.Nil(t, submitted.Active)

	// a second submission cannot rewrite the stored result
	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	assert.ErrorIs(t, err, util.ErrAttemptNotActive)

	stored, err := svc.Attempts.FindByPublicID(attempt.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 70, *stored.Score)
}

func TestGetAttemptView_RemainingSeconds(t *testing.T) {
	limit := 30
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) { v.TimeLimitMinutes = &limit })
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	clock = testNow.Add(10 * time.Minute)
	view, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)
	require.NotNil(t, view.RemainingSeconds)
	assert.Equal(t, 20*60, *view.RemainingSeconds)
	assert.Nil(t, view.Score)
}

func TestGetAttemptView_VisibilityImmediate(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, nil)
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	answerSlots(t, svc, attempt.PublicID, 6, 4)
	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	require.NoError(t, err)

	view, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)
	require.NotNil(t, view.Score)
	assert.Equal(t, 60, *view.Score)
	require.NotNil(t, view.CorrectCount)
	assert.Equal(t, 6, *view.CorrectCount)

	require.Len(t, view.Slots, 10)
	first := view.Slots[0]
	require.NotNil(t, first.IsCorrect)
	assert.True(t, *first.IsCorrect)
	assert.Equal(t, []string{"A"}, first.CorrectIDs)
}

func TestGetAttemptView_VisibilityNeverHidesDetail(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) {
		v.ResultVisibility = model.VisibilityNever
	})
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	answerSlots(t, svc, attempt.PublicID, 6, 4)
	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	require.NoError(t, err)

	view, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)

	// aggregate outcome always shows once terminal
	require.NotNil(t, view.Score)
	assert.Equal(t, 60, *view.Score)
	require.NotNil(t, view.Passed)
	assert.True(t, *view.Passed)

	// per-question detail never does
	assert.Nil(t, view.CorrectCount)
	for _, sv := range view.Slots {
		assert.Nil(t, sv.IsCorrect)
		assert.Empty(t, sv.CorrectIDs)
		assert.Empty(t, sv.Explanation)
	}
}

func TestGetAttemptView_VisibilityAtDate(t *testing.T) {
	reveal := testNow.Add(24 * time.Hour)
	f := newFakeStores()
	v := publishedVariant(t, f, func(v *model.ExamVariant) {
		v.ResultVisibility = model.VisibilityAtDate
		v.ResultRevealAt = &reveal
	})
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	attempt, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	answerSlots(t, svc, attempt.PublicID, 10, 0)
	_, err = svc.SubmitAttempt(context.Background(), testStudent, attempt.PublicID)
	require.NoError(t, err)

	before, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)
	assert.NotNil(t, before.Score)
	assert.Nil(t, before.CorrectCount)
	assert.Nil(t, before.Slots[0].IsCorrect)

	clock = reveal.Add(time.Minute)
	after, err := svc.GetAttemptView(testStudent, attempt.PublicID)
	require.NoError(t, err)
	require.NotNil(t, after.CorrectCount)
	assert.Equal(t, 10, *after.CorrectCount)
	require.NotNil(t, after.Slots[0].IsCorrect)
	assert.True(t, *after.Slots[0].IsCorrect)
}

func TestListAttempts(t *testing.T) {
	f := newFakeStores()
	v := publishedVariant(t, f, nil)
	clock := testNow
	svc := newTestAttemptService(f, &clock)

	first, err := svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAttempt(context.Background(), testStudent, first.PublicID)
	require.NoError(t, err)
	_, err = svc.StartAttempt(testStudent, v.ID)
	require.NoError(t, err)

	attempts, err := svc.ListAttempts(testStudent, v.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	other, err := svc.ListAttempts(uint(999), v.ID)
	require.NoError(t, err)
	assert.Empty(t, other)
}
