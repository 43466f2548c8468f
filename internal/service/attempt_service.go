package service

import (
	"time"

	"questor_backend/internal/grading"
	"questor_backend/internal/model"
	"questor_backend/internal/repository"
	"questor_backend/internal/util"
	"questor_backend/pkg/logger"

	"go.uber.org/zap"
)

// 答案负载上限（字节）
const MaxAnswerBytes = 4000

// AttemptCompletedEvent 完成事件，Finish 同步交给成就引擎
type AttemptCompletedEvent struct {
	AttemptID  string
	UserID     string
	ScenarioID string
	Score      int
	FinishedAt time.Time
}

// CompletionListener 完成事件的唯一订阅方（成就引擎）。
// 静态类型直连，不走容器动态解析
type CompletionListener interface {
	AttemptCompleted(evt AttemptCompletedEvent) ([]string, error)
}

type AttemptService struct {
	AttemptRepo  *repository.AttemptRepository
	ScenarioRepo *repository.ScenarioRepository
	Listener     CompletionListener
	Clock        util.Clock
}

func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	scenarioRepo *repository.ScenarioRepository,
	listener CompletionListener,
	clock util.Clock,
) *AttemptService {
	return &AttemptService{
		AttemptRepo:  attemptRepo,
		ScenarioRepo: scenarioRepo,
		Listener:     listener,
		Clock:        clock,
	}
}

// Start 为已发布场景创建尝试，按当前步骤定义一次性固化全部答题记录
func (s *AttemptService) Start(userID, scenarioID string) (string, error) {
	scenario, err := s.ScenarioRepo.FindPublishedByID(scenarioID)
	if err != nil {
		return "", err
	}

	attempt := &model.Attempt{
		UserID:     userID,
		ScenarioID: scenario.ID,
		StartedAt:  s.Clock.Now(),
		Status:     model.AttemptInProgress,
	}
	for i, step := range scenario.Steps {
		attempt.Steps = append(attempt.Steps, model.AttemptStep{
			StepID:   step.ID,
			Ordinal:  i + 1,
			MaxScore: step.MaxScore,
			Answer:   "{}",
		})
	}

	if err := s.AttemptRepo.CreateWithSteps(attempt); err != nil {
		return "", err
	}
	return attempt.ID, nil
}

type SubmitAnswerResult struct {
	IsCorrect    bool `json:"isCorrect"`
	ScoreAwarded int  `json:"scoreAwarded"`
}

// SubmitAnswer 对进行中的尝试提交某一步的答案并自动评分。
// 评分用步骤定义的当前内容；答案字段 last-write-wins，总分只加不减
func (s *AttemptService) SubmitAnswer(userID, attemptID, stepID, answer string) (*SubmitAnswerResult, error) {
	if len(answer) > MaxAnswerBytes {
		return nil, util.ErrAnswerTooLarge
	}

	attempt, err := s.AttemptRepo.FindByIDAndUser(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrAttemptFinished
	}

	var attemptStep *model.AttemptStep
	for i := range attempt.Steps {
		if attempt.Steps[i].StepID == stepID {
			attemptStep = &attempt.Steps[i]
			break
		}
	}
	if attemptStep == nil {
		return nil, util.ErrStepNotInAttempt
	}

	definition, err := s.ScenarioRepo.FindStepByID(stepID)
	if err != nil {
		// 定义已被作者删除：答案保留待人工处理，不评分
		if err := s.AttemptRepo.SaveAnswer(attempt.ID, attemptStep.ID, answer, nil, 0); err != nil {
			return nil, err
		}
		return &SubmitAnswerResult{}, nil
	}

	res, err := grading.Grade(definition.StepType, definition.Content, answer, definition.MaxScore)
	if err != nil {
		return nil, err
	}

	if res.AutoGradable {
		correct := res.Correct
		if err := s.AttemptRepo.SaveAnswer(attempt.ID, attemptStep.ID, answer, &correct, res.Score); err != nil {
			return nil, err
		}
		return &SubmitAnswerResult{IsCorrect: res.Correct, ScoreAwarded: res.Score}, nil
	}

	// 不可自动评分：记录答案，等待人工审核
	if err := s.AttemptRepo.SaveAnswer(attempt.ID, attemptStep.ID, answer, nil, 0); err != nil {
		return nil, err
	}
	return &SubmitAnswerResult{}, nil
}

type FinishResult struct {
	AttemptID       string   `json:"attemptId"`
	TotalScore      int      `json:"totalScore"`
	NewAchievements []string `json:"newAchievements"`
}

// Finish 结束尝试并触发成就评估。重复调用是幂等的无操作；
// 成就引擎的错误只记日志，绝不影响 Finish 本身成功
func (s *AttemptService) Finish(userID, attemptID string) (*FinishResult, error) {
	attempt, err := s.AttemptRepo.FindByIDAndUser(attemptID, userID)
	if err != nil {
		return nil, err
	}

	result := &FinishResult{AttemptID: attempt.ID, NewAchievements: []string{}}

	if attempt.Status == model.AttemptCompleted {
		result.TotalScore = attempt.Score
		return result, nil
	}

	finishedAt := s.Clock.Now()
	transitioned, err := s.AttemptRepo.MarkFinished(attempt.ID, finishedAt)
	if err != nil {
		return nil, err
	}

	// 并发 Finish 只有一方真正完成转移，事件只发一次
	fresh, err := s.AttemptRepo.Reload(attempt.ID)
	if err != nil {
		return nil, err
	}
	result.TotalScore = fresh.Score

	if transitioned && s.Listener != nil {
		codes, err := s.Listener.AttemptCompleted(AttemptCompletedEvent{
			AttemptID:  attempt.ID,
			UserID:     userID,
			ScenarioID: attempt.ScenarioID,
			Score:      fresh.Score,
			FinishedAt: finishedAt,
		})
		if err != nil {
			logger.Log.Error("achievement evaluation failed",
				zap.String("attemptId", attempt.ID),
				zap.String("userId", userID),
				zap.Error(err))
		} else {
			result.NewAchievements = codes
		}
	}

	return result, nil
}

type AttemptStepView struct {
	StepID       string `json:"stepId"`
	Ordinal      int    `json:"ordinal"`
	Answer       string `json:"answer"`
	IsCorrect    *bool  `json:"isCorrect"`
	ScoreAwarded int    `json:"scoreAwarded"`
	MaxScore     int    `json:"maxScore"`
}

type AttemptView struct {
	ID         string            `json:"id"`
	ScenarioID string            `json:"scenarioId"`
	Status     string            `json:"status"`
	Score      int               `json:"score"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
	Steps      []AttemptStepView `json:"steps"`
}

// GetView 限定本人可见的尝试投影
func (s *AttemptService) GetView(userID, attemptID string) (*AttemptView, error) {
	attempt, err := s.AttemptRepo.FindByIDAndUser(attemptID, userID)
	if err != nil {
		return nil, err
	}

	view := &AttemptView{
		ID:         attempt.ID,
		ScenarioID: attempt.ScenarioID,
		Status:     string(attempt.Status),
		Score:      attempt.Score,
		StartedAt:  attempt.StartedAt,
		FinishedAt: attempt.FinishedAt,
		Steps:      make([]AttemptStepView, 0, len(attempt.Steps)),
	}
	for _, step := range attempt.Steps {
		view.Steps = append(view.Steps, AttemptStepView{
			StepID:       step.StepID,
			Ordinal:      step.Ordinal,
			Answer:       step.Answer,
			IsCorrect:    step.IsCorrect,
			ScoreAwarded: step.ScoreAwarded,
			MaxScore:     step.MaxScore,
		})
	}
	return view, nil
}

func (s *AttemptService) ListMine(userID string) ([]model.Attempt, error) {
	return s.AttemptRepo.ListByUser(userID)
}
