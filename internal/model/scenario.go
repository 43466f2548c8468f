package model

// StepType 步骤类型，闭集：新增类型必须同时扩展评分逻辑
type StepType string

const (
	StepText        StepType = "text"
	StepSingle      StepType = "single_choice"
	StepMulti       StepType = "multi_choice"
	StepShortAnswer StepType = "short_answer"
)

// swagger:model Scenario
type Scenario struct {
	UUIDBase
	Title       string         `gorm:"size:200;not null" json:"title"`
	Slug        string         `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Tags        string         `gorm:"size:255" json:"tags"`
	Difficulty  int            `gorm:"default:1" json:"difficulty"`
	IsPublished bool           `gorm:"default:false;index" json:"isPublished"`
	AuthorID    string         `gorm:"size:36;index" json:"authorId"`
	Steps       []ScenarioStep `gorm:"foreignKey:ScenarioID" json:"steps,omitempty"`
}

func (Scenario) TableName() string {
	return "scenarios"
}

// swagger:model ScenarioStep
type ScenarioStep struct {
	UUIDBase
	ScenarioID string   `gorm:"size:36;index" json:"scenarioId"`
	Order      int      `gorm:"column:step_order;default:0" json:"order"`
	StepType   StepType `gorm:"size:30;not null" json:"stepType"`
	Title      string   `gorm:"size:200" json:"title"`
	Content    string   `gorm:"type:json" json:"content"` // 类型相关的 JSON 内容（题干、选项、答案）
	MaxScore   int      `gorm:"default:0" json:"maxScore"`
}

func (ScenarioStep) TableName() string {
	return "scenario_steps"
}
