package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"simulado_backend/internal/model"
	"simulado_backend/internal/util"
	"simulado_backend/pkg/monitoring"
)

type GeneratorService struct {
	Questions QuestionSource
	Variants  VariantStore
	Events    *EventService

	now func() time.Time
}

func NewGeneratorService(questions QuestionSource, variants VariantStore, events *EventService) *GeneratorService {
	return &GeneratorService{
		Questions: questions,
		Variants:  variants,
		Events:    events,
		now:       time.Now,
	}
}

// DifficultyRatios are whole percentages per tier and must sum to 100.
// A missing request means "no stratification": the pool is shuffled once
// and sliced sequentially.
type DifficultyRatios struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

type GenerateBatchRequest struct {
	BankID              uint              `json:"bankId" binding:"required"`
	QuestionsPerVariant int               `json:"questionsPerVariant" binding:"required,min=1"`
	VariantCount        int               `json:"variantCount" binding:"required,min=1"`
	Ratios              *DifficultyRatios `json:"ratios,omitempty"`
	ShuffleQuestions    bool              `json:"shuffleQuestions"`
	ShuffleOptions      bool              `json:"shuffleOptions"`

	TimeLimitMinutes *int       `json:"timeLimitMinutes,omitempty"`
	MaxAttempts      *int       `json:"maxAttempts,omitempty"`
	CooldownMinutes  int        `json:"cooldownMinutes"`
	PassThreshold    int        `json:"passThreshold"`
	ResultVisibility string     `json:"resultVisibility"`
	ResultRevealAt   *time.Time `json:"resultRevealAt,omitempty"`
	AvailableFrom    *time.Time `json:"availableFrom,omitempty"`
	AvailableTo      *time.Time `json:"availableTo,omitempty"`

	// Seed makes a batch reproducible; 0 draws a time-based seed.
	Seed int64 `json:"seed,omitempty"`
}

// tierPlan is the per-variant draw count for each difficulty tier, in
// easiest-to-hardest order, covering only tiers with a nonzero ratio.
type tierPlan struct {
	tier  string
	count int
}

// planTiers turns percentage ratios into per-variant counts. Each tier
// gets floor(ratio*k/100); the rounding remainder goes to the hardest
// tier present.
func planTiers(ratios DifficultyRatios, questionsPerVariant int) ([]tierPlan, error) {
	byTier := map[string]int{
		model.DifficultyEasy:   ratios.Easy,
		model.DifficultyMedium: ratios.Medium,
		model.DifficultyHard:   ratios.Hard,
	}
	sum := 0
	for tier, pct := range byTier {
		if pct < 0 {
			return nil, fmt.Errorf("ratio for %s tier is negative", tier)
		}
		sum += pct
	}
	if sum != 100 {
		return nil, fmt.Errorf("difficulty ratios must sum to 100, got %d", sum)
	}

	var plan []tierPlan
	assigned := 0
	for _, tier := range model.Difficulties {
		pct := byTier[tier]
		if pct == 0 {
			continue
		}
		count := pct * questionsPerVariant / 100
		plan = append(plan, tierPlan{tier: tier, count: count})
		assigned += count
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("difficulty ratios select no tier")
	}
	// remainder to the hardest tier present
	plan[len(plan)-1].count += questionsPerVariant - assigned
	return plan, nil
}

// GenerateBatch materializes variantCount non-overlapping variants of
// questionsPerVariant questions each from the bank's available pool.
// All failure modes are pre-flight: either the whole batch commits in one
// transaction or nothing is persisted.
func (s *GeneratorService) GenerateBatch(ctx context.Context, req GenerateBatchRequest) ([]*model.ExamVariant, error) {
	bank, err := s.Variants.FindBank(req.BankID)
	if err != nil {
		return nil, err
	}

	committed, err := s.Questions.CommittedQuestionIDs(req.BankID)
	if err != nil {
		return nil, err
	}
	pool, err := s.Questions.AvailableQuestions(req.BankID, committed, "")
	if err != nil {
		return nil, err
	}

	k, n := req.QuestionsPerVariant, req.VariantCount
	if len(pool) < k*n {
		return nil, &util.InsufficientQuestionsError{Need: k * n, Have: len(pool)}
	}

	rng := NewRand(req.Seed)

	var draws [][]model.Question
	if req.Ratios != nil {
		draws, err = s.drawStratified(rng, pool, *req.Ratios, k, n)
		if err != nil {
			return nil, err
		}
	} else {
		shuffled := shuffledQuestions(rng, pool)
		draws = make([][]model.Question, n)
		for i := 0; i < n; i++ {
			draws[i] = shuffled[i*k : (i+1)*k]
		}
	}

	baseSeq, err := s.Variants.CountByBank(req.BankID)
	if err != nil {
		return nil, err
	}
	year := s.now().Year()

	variants := make([]*model.ExamVariant, n)
	for i, drawn := range draws {
		if req.ShuffleQuestions {
			drawn = shuffledQuestions(rng, drawn)
		}
		v := &model.ExamVariant{
			BankID:           req.BankID,
			Code:             fmt.Sprintf("%s-%d-%03d", bank.CodePrefix, year, int(baseSeq)+i+1),
			Status:           model.VariantDraft,
			TimeLimitMinutes: req.TimeLimitMinutes,
			MaxAttempts:      req.MaxAttempts,
			CooldownMinutes:  req.CooldownMinutes,
			PassThreshold:    req.PassThreshold,
			ResultVisibility: req.ResultVisibility,
			ResultRevealAt:   req.ResultRevealAt,
			ShuffleQuestions: req.ShuffleQuestions,
			ShuffleOptions:   req.ShuffleOptions,
			AvailableFrom:    req.AvailableFrom,
			AvailableTo:      req.AvailableTo,
		}
		if v.ResultVisibility == "" {
			v.ResultVisibility = model.VisibilityImmediate
		}
		if v.PassThreshold == 0 {
			v.PassThreshold = 60
		}
		for pos, q := range drawn {
			v.Slots = append(v.Slots, model.VariantSlot{QuestionID: q.ID, Position: pos})
		}
		variants[i] = v
	}

	if err := s.Variants.CreateBatch(variants); err != nil {
		return nil, err
	}

	monitoring.VariantsGenerated.Add(float64(n))
	return variants, nil
}

// drawStratified partitions the pool by tier, shuffles each partition
// independently, and deals per-variant hands according to the plan. A
// single consumed cursor per tier guarantees no question appears in two
// variants of the batch.
func (s *GeneratorService) drawStratified(rng *rand.Rand, pool []model.Question, ratios DifficultyRatios, k, n int) ([][]model.Question, error) {
	plan, err := planTiers(ratios, k)
	if err != nil {
		return nil, err
	}

	partitions := make(map[string][]model.Question)
	for _, q := range pool {
		partitions[q.Difficulty] = append(partitions[q.Difficulty], q)
	}

	// pre-flight: every tier must cover the whole batch, otherwise report
	// the first variant that cannot be filled and generate nothing
	for _, p := range plan {
		supply := len(partitions[p.tier])
		if supply < p.count*n {
			failing := supply/p.count + 1
			return nil, &util.InsufficientByDifficultyError{
				Tier:         p.tier,
				VariantIndex: failing,
				Need:         p.count,
				Have:         supply - (failing-1)*p.count,
			}
		}
	}

	for tier := range partitions {
		partitions[tier] = shuffledQuestions(rng, partitions[tier])
	}

	cursors := make(map[string]int, len(plan))
	draws := make([][]model.Question, n)
	for i := 0; i < n; i++ {
		hand := make([]model.Question, 0, k)
		for _, p := range plan {
			start := cursors[p.tier]
			hand = append(hand, partitions[p.tier][start:start+p.count]...)
			cursors[p.tier] = start + p.count
		}
		draws[i] = hand
	}
	return draws, nil
}

// PublishVariant freezes a draft's question list and opens it to
// students. Raises the "variant published" event.
func (s *GeneratorService) PublishVariant(ctx context.Context, variantID uint) (*model.ExamVariant, error) {
	v, err := s.Variants.FindByID(variantID)
	if err != nil {
		return nil, err
	}
	if v.Status != model.VariantDraft {
		return nil, util.ErrVariantNotDraft
	}
	now := s.now()
	v.Status = model.VariantPublished
	v.PublishedAt = &now
	v.ScheduledPublishAt = nil
	if err := s.Variants.Update(v); err != nil {
		return nil, err
	}
	s.Events.VariantPublished(ctx, v)
	return v, nil
}

// CloseVariant retires a published variant. Attempts already in progress
// keep running; no new ones can start.
func (s *GeneratorService) CloseVariant(variantID uint) (*model.ExamVariant, error) {
	v, err := s.Variants.FindByID(variantID)
	if err != nil {
		return nil, err
	}
	if v.Status != model.VariantPublished {
		return nil, util.ErrVariantNotDraft
	}
	v.Status = model.VariantClosed
	if err := s.Variants.Update(v); err != nil {
		return nil, err
	}
	return v, nil
}

type UpdateDraftRequest struct {
	TimeLimitMinutes   *int       `json:"timeLimitMinutes,omitempty"`
	MaxAttempts        *int       `json:"maxAttempts,omitempty"`
	CooldownMinutes    *int       `json:"cooldownMinutes,omitempty"`
	PassThreshold      *int       `json:"passThreshold,omitempty"`
	ResultVisibility   *string    `json:"resultVisibility,omitempty"`
	ResultRevealAt     *time.Time `json:"resultRevealAt,omitempty"`
	ShuffleQuestions   *bool      `json:"shuffleQuestions,omitempty"`
	ShuffleOptions     *bool      `json:"shuffleOptions,omitempty"`
	ScheduledPublishAt *time.Time `json:"scheduledPublishAt,omitempty"`
	AvailableFrom      *time.Time `json:"availableFrom,omitempty"`
	AvailableTo        *time.Time `json:"availableTo,omitempty"`
}

// UpdateDraft edits a draft's settings. The question list itself is only
// ever produced by GenerateBatch; published variants are immutable.
func (s *GeneratorService) UpdateDraft(variantID uint, req UpdateDraftRequest) (*model.ExamVariant, error) {
	v, err := s.Variants.FindByID(variantID)
	if err != nil {
		return nil, err
	}
	if v.Status != model.VariantDraft {
		return nil, util.ErrVariantNotDraft
	}

	if req.TimeLimitMinutes != nil {
		v.TimeLimitMinutes = req.TimeLimitMinutes
	}
	if req.MaxAttempts != nil {
		v.MaxAttempts = req.MaxAttempts
	}
	if req.CooldownMinutes != nil {
		v.CooldownMinutes = *req.CooldownMinutes
	}
	if req.PassThreshold != nil {
		v.PassThreshold = *req.PassThreshold
	}
	if req.ResultVisibility != nil {
		v.ResultVisibility = *req.ResultVisibility
	}
	if req.ResultRevealAt != nil {
		v.ResultRevealAt = req.ResultRevealAt
	}
	if req.ShuffleQuestions != nil {
		v.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		v.ShuffleOptions = *req.ShuffleOptions
	}
	if req.ScheduledPublishAt != nil {
		v.ScheduledPublishAt = req.ScheduledPublishAt
	}
	if req.AvailableFrom != nil {
		v.AvailableFrom = req.AvailableFrom
	}
	if req.AvailableTo != nil {
		v.AvailableTo = req.AvailableTo
	}

	if err := s.Variants.Update(v); err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteDraft removes a draft and its slots, returning its questions to
// the bank's available pool.
func (s *GeneratorService) DeleteDraft(variantID uint) error {
	v, err := s.Variants.FindByID(variantID)
	if err != nil {
		return err
	}
	if v.Status != model.VariantDraft {
		return util.ErrVariantNotDraft
	}
	return s.Variants.DeleteDraft(v)
}

func (s *GeneratorService) ListVariants(bankID uint, page, limit int) ([]model.ExamVariant, int64, error) {
	return s.Variants.ListByBank(bankID, page, limit)
}

func (s *GeneratorService) GetVariant(variantID uint) (*model.ExamVariant, []model.VariantSlot, error) {
	v, err := s.Variants.FindByID(variantID)
	if err != nil {
		return nil, nil, err
	}
	slots, err := s.Variants.Slots(variantID)
	if err != nil {
		return nil, nil, err
	}
	return v, slots, nil
}

// ProcessScheduledPublishes is invoked by the app's minute ticker and
// publishes every draft whose scheduled instant has passed.
func (s *GeneratorService) ProcessScheduledPublishes(ctx context.Context) error {
	due, err := s.Variants.DueForScheduledPublish(s.now())
	if err != nil {
		return err
	}
	for i := range due {
		if _, err := s.PublishVariant(ctx, due[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// VariantSummary is the teacher-facing projection of a generated variant.
type VariantSummary struct {
	ID            uint   `json:"id"`
	Code          string `json:"code"`
	Status        string `json:"status"`
	QuestionCount int    `json:"questionCount"`
}

func SummarizeVariants(variants []*model.ExamVariant) []VariantSummary {
	out := make([]VariantSummary, len(variants))
	for i, v := range variants {
		out[i] = VariantSummary{
			ID:            v.ID,
			Code:          v.Code,
			Status:        v.Status,
			QuestionCount: len(v.Slots),
		}
	}
	return out
}
