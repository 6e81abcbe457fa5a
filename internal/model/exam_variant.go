package model

import "time"

const (
	VariantDraft     = "draft"
	VariantPublished = "published"
	VariantClosed    = "closed"
)

const (
	VisibilityImmediate = "immediate"
	VisibilityAtDate    = "at_date"
	VisibilityNever     = "never"
)

// ExamVariant is one materialized exam ("prova") drawn from a bank. Once
// published its question list is frozen; only drafts may be edited or
// deleted.
//
// swagger:model ExamVariant
type ExamVariant struct {
	BaseModel

	BankID uint   `gorm:"index;type:bigint unsigned" json:"bankId"`
	Code   string `gorm:"size:50;uniqueIndex" json:"code"`
	Status string `gorm:"type:enum('draft','published','closed');default:'draft';index" json:"status"`

	TimeLimitMinutes *int `json:"timeLimitMinutes,omitempty"` // nil = untimed
	MaxAttempts      *int `json:"maxAttempts,omitempty"`      // nil = unlimited
	CooldownMinutes  int  `gorm:"default:0" json:"cooldownMinutes"`
	PassThreshold    int  `gorm:"default:60" json:"passThreshold"` // percentage

	ResultVisibility string     `gorm:"size:20;default:'immediate'" json:"resultVisibility"`
	ResultRevealAt   *time.Time `json:"resultRevealAt,omitempty"` // required when visibility is at_date

	ShuffleQuestions bool `gorm:"default:false" json:"shuffleQuestions"`
	ShuffleOptions   bool `gorm:"default:false" json:"shuffleOptions"`

	PublishedAt        *time.Time `json:"publishedAt,omitempty"`
	ScheduledPublishAt *time.Time `json:"scheduledPublishAt,omitempty"`
	AvailableFrom      *time.Time `json:"availableFrom,omitempty"`
	AvailableTo        *time.Time `json:"availableTo,omitempty"`

	Slots []VariantSlot `gorm:"foreignKey:VariantID" json:"slots,omitempty"`
}

func (ExamVariant) TableName() string {
	return "exam_variants"
}

// AvailableAt reports whether the variant can be attempted at the given
// instant: it must be published and inside its availability window.
func (v *ExamVariant) AvailableAt(now time.Time) bool {
	if v.Status != VariantPublished {
		return false
	}
	if v.AvailableFrom != nil && now.Before(*v.AvailableFrom) {
		return false
	}
	if v.AvailableTo != nil && now.After(*v.AvailableTo) {
		return false
	}
	return true
}

// VariantSlot pins one question to one position of a variant. The
// (variant, question) pair is the unit an Answer attaches to.
//
// swagger:model VariantSlot
type VariantSlot struct {
	BaseModel

	VariantID  uint `gorm:"uniqueIndex:idx_variant_question;index;type:bigint unsigned" json:"variantId"`
	QuestionID uint `gorm:"uniqueIndex:idx_variant_question;type:bigint unsigned" json:"questionId"`
	Position   int  `gorm:"default:0" json:"position"`

	Question *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (VariantSlot) TableName() string {
	return "variant_slots"
}
