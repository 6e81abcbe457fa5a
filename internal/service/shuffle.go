package service

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"simulado_backend/internal/model"
)

// NewRand returns a seeded random source. Seed 0 means "not reproducible":
// the caller gets a time-seeded source, which is the production default.
// Tests and replayable generation pass an explicit seed.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func shuffledQuestions(r *rand.Rand, in []model.Question) []model.Question {
	out := make([]model.Question, len(in))
	copy(out, in)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func shuffledIDs(r *rand.Rand, in []uint) []uint {
	out := make([]uint, len(in))
	copy(out, in)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// buildPresentation fixes the display order for a new attempt: the
// question order and, independently, each question's option order are
// permuted once and the result is persisted on the attempt. Every later
// fetch reuses the stored order, so the rendering never shifts mid-run.
func buildPresentation(r *rand.Rand, slots []model.VariantSlot, shuffleQuestions, shuffleOptions bool) ([]uint, map[string][]string, error) {
	order := make([]uint, len(slots))
	for i, slot := range slots {
		order[i] = slot.QuestionID
	}
	if shuffleQuestions {
		order = shuffledIDs(r, order)
	}

	optionOrders := make(map[string][]string, len(slots))
	for _, slot := range slots {
		if slot.Question == nil {
			return nil, nil, fmt.Errorf("slot %d has no question loaded", slot.ID)
		}
		opts, err := slot.Question.DecodedOptions()
		if err != nil {
			return nil, nil, err
		}
		ids := make([]string, len(opts))
		for i, o := range opts {
			ids[i] = o.ID
		}
		if shuffleOptions {
			r.Shuffle(len(ids), func(i, j int) {
				ids[i], ids[j] = ids[j], ids[i]
			})
		}
		optionOrders[strconv.FormatUint(uint64(slot.QuestionID), 10)] = ids
	}

	return order, optionOrders, nil
}
