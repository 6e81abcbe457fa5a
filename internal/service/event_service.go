package service

import (
	"context"
	"encoding/json"
	"time"

	"simulado_backend/internal/model"
	"simulado_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EventChannel is the redis pub/sub channel downstream consumers
// (notifications, dashboards) subscribe to. Delivery is their problem;
// this service only raises the logical events.
const EventChannel = "simulado.events"

const (
	EventAttemptSubmitted = "attempt.submitted"
	EventVariantPublished = "variant.published"
)

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	StudentID  uint      `json:"studentId,omitempty"`
	VariantID  uint      `json:"variantId,omitempty"`
	AttemptID  string    `json:"attemptId,omitempty"`
	Score      *int      `json:"score,omitempty"`
	Passed     *bool     `json:"passed,omitempty"`
}

type EventService struct {
	Redis *redis.Client
}

func NewEventService(rdb *redis.Client) *EventService {
	return &EventService{Redis: rdb}
}

// publish is fire-and-forget: a notification outage must never fail the
// exam operation that raised the event.
func (s *EventService) publish(ctx context.Context, event Event) {
	if s == nil || s.Redis == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("marshal event", zap.Error(err))
		return
	}
	if err := s.Redis.Publish(ctx, EventChannel, payload).Err(); err != nil {
		logger.Log.Warn("publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *EventService) AttemptSubmitted(ctx context.Context, attempt *model.Attempt) {
	s.publish(ctx, Event{
		Type:       EventAttemptSubmitted,
		OccurredAt: time.Now(),
		StudentID:  attempt.StudentID,
		VariantID:  attempt.VariantID,
		AttemptID:  attempt.PublicID,
		Score:      attempt.Score,
		Passed:     &attempt.Passed,
	})
}

func (s *EventService) VariantPublished(ctx context.Context, variant *model.ExamVariant) {
	s.publish(ctx, Event{
		Type:       EventVariantPublished,
		OccurredAt: time.Now(),
		VariantID:  variant.ID,
	})
}
