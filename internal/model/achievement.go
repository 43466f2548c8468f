package model

import "time"

// 成就规则类型，闭集：未知类型一律不满足
const (
	RuleFirstCompletion   = "FirstCompletion"
	RuleCompleteScenarios = "CompleteScenarios"
	RulePerfectTest       = "PerfectTest"
)

// AchievementRule 规则谓词，持久化为 RuleJSON
type AchievementRule struct {
	Type  string `json:"type"`
	Count int    `json:"count,omitempty"`
}

// swagger:model Achievement
type Achievement struct {
	UUIDBase
	Code        string `gorm:"size:100;uniqueIndex;not null" json:"code"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	IconURL     string `gorm:"size:255" json:"iconUrl,omitempty"`
	RuleJSON    string `gorm:"type:json;not null" json:"rule"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement 授予记录，(user_id, achievement_id) 唯一约束保证至多授予一次
type UserAchievement struct {
	UUIDBase
	UserID        string    `gorm:"size:36;not null;uniqueIndex:idx_user_achievement" json:"userId"`
	AchievementID string    `gorm:"size:36;not null;uniqueIndex:idx_user_achievement" json:"achievementId"`
	AwardedAt     time.Time `json:"awardedAt"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
