package repository

import (
	"errors"

	"questor_backend/internal/model"
	"questor_backend/internal/util"

	"gorm.io/gorm"
)

type ScenarioRepository struct {
	DB *gorm.DB
}

func NewScenarioRepository(db *gorm.DB) *ScenarioRepository {
	return &ScenarioRepository{DB: db}
}

// FindPublishedByID 带步骤（按顺序）加载已发布场景
func (r *ScenarioRepository) FindPublishedByID(id string) (*model.Scenario, error) {
	var scenario model.Scenario
	err := r.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order asc")
	}).Where("id = ? AND is_published = ?", id, true).First(&scenario).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrScenarioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (r *ScenarioRepository) FindByID(id string) (*model.Scenario, error) {
	var scenario model.Scenario
	err := r.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order asc")
	}).Where("id = ?", id).First(&scenario).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrScenarioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scenario, nil
}

type ScenarioFilter struct {
	Tag        string
	Difficulty int
	AuthorID   string
}

func (r *ScenarioRepository) ListPublished(f ScenarioFilter) ([]model.Scenario, error) {
	q := r.DB.Where("is_published = ?", true)
	if f.Tag != "" {
		q = q.Where("tags LIKE ?", "%"+f.Tag+"%")
	}
	if f.Difficulty > 0 {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.AuthorID != "" {
		q = q.Where("author_id = ?", f.AuthorID)
	}

	var scenarios []model.Scenario
	err := q.Order("created_at desc").Find(&scenarios).Error
	if err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (r *ScenarioRepository) Create(scenario *model.Scenario) error {
	return r.DB.Create(scenario).Error
}

func (r *ScenarioRepository) SetPublished(id string, published bool) error {
	res := r.DB.Model(&model.Scenario{}).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrScenarioNotFound
	}
	return nil
}

// ReplaceSteps 整组替换步骤。已开始的尝试持有自己的 AttemptStep 快照，不受影响
func (r *ScenarioRepository) ReplaceSteps(scenarioID string, steps []model.ScenarioStep) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Scenario{}).Where("id = ?", scenarioID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return util.ErrScenarioNotFound
		}
		if err := tx.Where("scenario_id = ?", scenarioID).Delete(&model.ScenarioStep{}).Error; err != nil {
			return err
		}
		for i := range steps {
			steps[i].ScenarioID = scenarioID
			if err := tx.Create(&steps[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ScenarioRepository) FindStepByID(stepID string) (*model.ScenarioStep, error) {
	var step model.ScenarioStep
	err := r.DB.Where("id = ?", stepID).First(&step).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}
