package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// swagger:model Attempt
type Attempt struct {
	UUIDBase
	UserID     string        `gorm:"size:36;index;not null" json:"userId"`
	ScenarioID string        `gorm:"size:36;index;not null" json:"scenarioId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
	Score      int           `gorm:"default:0" json:"score"`
	Status     AttemptStatus `gorm:"size:20;default:in_progress;index" json:"status"`
	Steps      []AttemptStep `gorm:"foreignKey:AttemptID" json:"steps,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AttemptStep 固化在开始时刻的答题记录，场景步骤后续变更不影响已开始的尝试
type AttemptStep struct {
	UUIDBase
	AttemptID    string     `gorm:"size:36;index;not null" json:"attemptId"`
	StepID       string     `gorm:"size:36;index;not null" json:"stepId"`
	Ordinal      int        `gorm:"default:0" json:"ordinal"` // 开始时刻的步骤顺序快照
	MaxScore     int        `gorm:"default:0" json:"maxScore"`
	Answer       string     `gorm:"type:json;default:'{}'" json:"answer"`
	IsCorrect    *bool      `json:"isCorrect"` // NULL = 未评分（待人工审核）
	ScoreAwarded int        `gorm:"default:0" json:"scoreAwarded"`
	ReviewedBy   string     `gorm:"size:36" json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
}

func (AttemptStep) TableName() string {
	return "attempt_steps"
}
