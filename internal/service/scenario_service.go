package service

import (
	"encoding/json"

	"questor_backend/internal/model"
	"questor_backend/internal/repository"
	"questor_backend/internal/util"
)

type ScenarioService struct {
	ScenarioRepo    *repository.ScenarioRepository
	AchievementRepo *repository.AchievementRepository
}

func NewScenarioService(
	scenarioRepo *repository.ScenarioRepository,
	achievementRepo *repository.AchievementRepository,
) *ScenarioService {
	return &ScenarioService{
		ScenarioRepo:    scenarioRepo,
		AchievementRepo: achievementRepo,
	}
}

type ScenarioListItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Tags        string `json:"tags"`
	Difficulty  int    `json:"difficulty"`
	IsPublished bool   `json:"isPublished"`
}

func (s *ScenarioService) ListPublished(f repository.ScenarioFilter) ([]ScenarioListItem, error) {
	scenarios, err := s.ScenarioRepo.ListPublished(f)
	if err != nil {
		return nil, err
	}
	items := make([]ScenarioListItem, 0, len(scenarios))
	for _, sc := range scenarios {
		items = append(items, ScenarioListItem{
			ID:          sc.ID,
			Title:       sc.Title,
			Slug:        sc.Slug,
			Tags:        sc.Tags,
			Difficulty:  sc.Difficulty,
			IsPublished: sc.IsPublished,
		})
	}
	return items, nil
}

func (s *ScenarioService) GetPublished(id string) (*model.Scenario, error) {
	return s.ScenarioRepo.FindPublishedByID(id)
}

type ScenarioReq struct {
	Title       string `json:"title" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Difficulty  int    `json:"difficulty"`
}

func (s *ScenarioService) Create(authorID string, req ScenarioReq) (*model.Scenario, error) {
	difficulty := req.Difficulty
	if difficulty <= 0 {
		difficulty = 1
	}
	scenario := &model.Scenario{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Tags:        req.Tags,
		Difficulty:  difficulty,
		AuthorID:    authorID,
	}
	if err := s.ScenarioRepo.Create(scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

func (s *ScenarioService) SetPublished(id string, published bool) error {
	return s.ScenarioRepo.SetPublished(id, published)
}

type ScenarioStepReq struct {
	Order    int             `json:"order"`
	StepType model.StepType  `json:"stepType" binding:"required"`
	Title    string          `json:"title"`
	Content  json.RawMessage `json:"content" binding:"required"`
	MaxScore int             `json:"maxScore"`
}

// ReplaceSteps 整组替换场景步骤。步骤类型必须属于已知闭集
func (s *ScenarioService) ReplaceSteps(scenarioID string, reqs []ScenarioStepReq) error {
	steps := make([]model.ScenarioStep, 0, len(reqs))
	for _, req := range reqs {
		switch req.StepType {
		case model.StepText, model.StepSingle, model.StepMulti, model.StepShortAnswer:
		default:
			return util.ErrUnknownStepType
		}
		if req.MaxScore < 0 {
			return util.ErrMalformedContent
		}
		steps = append(steps, model.ScenarioStep{
			Order:    req.Order,
			StepType: req.StepType,
			Title:    req.Title,
			Content:  string(req.Content),
			MaxScore: req.MaxScore,
		})
	}
	return s.ScenarioRepo.ReplaceSteps(scenarioID, steps)
}

type AchievementReq struct {
	Code        string          `json:"code" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Rule        json.RawMessage `json:"rule" binding:"required"`
}

func (s *ScenarioService) CreateAchievement(req AchievementReq) (*model.Achievement, error) {
	// 规则必须可解析出类型标签，未知类型在评估时一律不满足
	var rule model.AchievementRule
	if err := json.Unmarshal(req.Rule, &rule); err != nil || rule.Type == "" {
		return nil, util.ErrMalformedContent
	}

	achievement := &model.Achievement{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		RuleJSON:    string(req.Rule),
	}
	if err := s.AchievementRepo.Create(achievement); err != nil {
		return nil, err
	}
	return achievement, nil
}
