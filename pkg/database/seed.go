package database

import (
	"encoding/json"

	"questor_backend/internal/model"

	"gorm.io/gorm"
)

// Seed 首次启动时写入示例场景与内置成就，表非空则跳过
func Seed(db *gorm.DB) error {
	var count int64
	db.Model(&model.Scenario{}).Count(&count)
	if count == 0 {
		if err := seedScenarios(db); err != nil {
			return err
		}
	}

	db.Model(&model.Achievement{}).Count(&count)
	if count == 0 {
		if err := seedAchievements(db); err != nil {
			return err
		}
	}
	return nil
}

func seedScenarios(db *gorm.DB) error {
	solid := &model.Scenario{
		Title:       "SOLID 入门",
		Slug:        "solid-intro",
		Description: "理论阅读 + 核心原则检测。",
		Tags:        "oop,solid",
		Difficulty:  1,
		IsPublished: true,
		Steps: []model.ScenarioStep{
			{
				Order:    1,
				StepType: model.StepText,
				Title:    "理论",
				Content:  mustJSON(map[string]interface{}{"md": "## SOLID 原则"}),
			},
			{
				Order:    2,
				StepType: model.StepSingle,
				Title:    "单选",
				Content: mustJSON(map[string]interface{}{
					"question": "S 代表什么？",
					"options":  []string{"Single", "Simple", "Solid"},
					"correct":  "Single",
				}),
				MaxScore: 5,
			},
			{
				Order:    3,
				StepType: model.StepShortAnswer,
				Title:    "简答",
				Content: mustJSON(map[string]interface{}{
					"prompt":   "描述单一职责原则",
					"keywords": []string{"responsibility", "职责"},
				}),
				MaxScore: 5,
			},
			{
				Order:    4,
				StepType: model.StepMulti,
				Title:    "多选",
				Content: mustJSON(map[string]interface{}{
					"question": "以下哪些属于 SOLID 原则？",
					"options":  []string{"SRP", "DRY", "LSP"},
					"correct":  []string{"SRP", "LSP"},
				}),
				MaxScore: 5,
			},
		},
	}

	git := &model.Scenario{
		Title:       "Git 测验",
		Slug:        "git-quiz",
		Description: "Git 基础快测。",
		Tags:        "git",
		Difficulty:  1,
		IsPublished: true,
		Steps: []model.ScenarioStep{
			{
				Order:    1,
				StepType: model.StepSingle,
				Title:    "Commit",
				Content: mustJSON(map[string]interface{}{
					"question": "提交变更用哪条命令？",
					"options":  []string{"git push", "git commit", "git log"},
					"correct":  "git commit",
				}),
				MaxScore: 5,
			},
			{
				Order:    2,
				StepType: model.StepShortAnswer,
				Title:    "Branch",
				Content: mustJSON(map[string]interface{}{
					"prompt":   "如何创建分支？",
					"keywords": []string{"git", "branch"},
				}),
				MaxScore: 5,
			},
		},
	}

	if err := db.Create(solid).Error; err != nil {
		return err
	}
	return db.Create(git).Error
}

func seedAchievements(db *gorm.DB) error {
	achievements := []model.Achievement{
		{
			Code:        "first_complete",
			Title:       "第一步",
			Description: "首次完成场景",
			RuleJSON:    mustJSON(model.AchievementRule{Type: model.RuleFirstCompletion}),
		},
		{
			Code:        "three_completes",
			Title:       "三连击",
			Description: "完成 3 次场景",
			RuleJSON:    mustJSON(model.AchievementRule{Type: model.RuleCompleteScenarios, Count: 3}),
		},
		{
			Code:        "perfect_test",
			Title:       "完美主义",
			Description: "零错误通过测验",
			RuleJSON:    mustJSON(model.AchievementRule{Type: model.RulePerfectTest}),
		},
	}

	for i := range achievements {
		if err := db.Create(&achievements[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
