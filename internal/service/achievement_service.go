package service

import (
	"context"
	"encoding/json"
	"time"

	"questor_backend/internal/model"
	"questor_backend/internal/repository"
	"questor_backend/internal/util"
	"questor_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const leaderboardCacheKey = "questor:leaderboard"
const leaderboardCacheTTL = time.Minute

type AchievementService struct {
	AchievementRepo *repository.AchievementRepository
	AttemptRepo     *repository.AttemptRepository
	Redis           *redis.Client
	Clock           util.Clock
}

func NewAchievementService(
	achievementRepo *repository.AchievementRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	clock util.Clock,
) *AchievementService {
	return &AchievementService{
		AchievementRepo: achievementRepo,
		AttemptRepo:     attemptRepo,
		Redis:           rdb,
		Clock:           clock,
	}
}

// AttemptCompleted 完成事件入口（AttemptService 静态直连）
func (s *AchievementService) AttemptCompleted(evt AttemptCompletedEvent) ([]string, error) {
	return s.EvaluateAndAward(evt.UserID, evt.AttemptID)
}

// EvaluateAndAward 对用户尚未获得的每个成就评估规则谓词，
// 满足即授予。授予以唯一索引为准：重复插入按已授予处理，
// 并发完成下同一成就至多出现一条记录。返回本次新授予的成就码
func (s *AchievementService) EvaluateAndAward(userID, attemptID string) ([]string, error) {
	achievements, err := s.AchievementRepo.ListAll()
	if err != nil {
		return nil, err
	}
	awarded, err := s.AchievementRepo.AwardedIDs(userID)
	if err != nil {
		return nil, err
	}

	// 完成数只查一次，多条规则共用
	completedCount := int64(-1)
	completed := func() (int64, error) {
		if completedCount < 0 {
			c, err := s.AttemptRepo.CountCompletedByUser(userID)
			if err != nil {
				return 0, err
			}
			completedCount = c
		}
		return completedCount, nil
	}

	newCodes := []string{}
	for _, ach := range achievements {
		if awarded[ach.ID] {
			continue
		}

		var rule model.AchievementRule
		if err := json.Unmarshal([]byte(ach.RuleJSON), &rule); err != nil {
			logger.Log.Warn("unparseable achievement rule",
				zap.String("code", ach.Code), zap.Error(err))
			continue
		}

		satisfied := false
		switch rule.Type {
		case model.RuleFirstCompletion:
			count, err := completed()
			if err != nil {
				return newCodes, err
			}
			satisfied = count == 1

		case model.RuleCompleteScenarios:
			count, err := completed()
			if err != nil {
				return newCodes, err
			}
			satisfied = rule.Count > 0 && count >= int64(rule.Count)

		case model.RulePerfectTest:
			ok, err := s.attemptIsPerfect(attemptID)
			if err != nil {
				return newCodes, err
			}
			satisfied = ok

		default:
			// 未知规则类型一律不满足
		}

		if !satisfied {
			continue
		}

		created, err := s.AchievementRepo.Award(userID, ach.ID, s.Clock.Now())
		if err != nil {
			return newCodes, err
		}
		if created {
			newCodes = append(newCodes, ach.Code)
		}
	}

	return newCodes, nil
}

// attemptIsPerfect 所有步骤均判定正确才算完美；无步骤或存在待审核步骤不算
func (s *AchievementService) attemptIsPerfect(attemptID string) (bool, error) {
	steps, err := s.AttemptRepo.FindStepsByAttempt(attemptID)
	if err != nil {
		return false, err
	}
	if len(steps) == 0 {
		return false, nil
	}
	for _, step := range steps {
		if step.IsCorrect == nil || !*step.IsCorrect {
			return false, nil
		}
	}
	return true, nil
}

func (s *AchievementService) ListDefinitions() ([]model.Achievement, error) {
	return s.AchievementRepo.ListAll()
}

func (s *AchievementService) GetUserAwards(userID string) ([]repository.UserAwardRow, error) {
	return s.AchievementRepo.FindAwardsByUser(userID)
}

// GetLeaderboard 按完成尝试总分排名，结果在 Redis 缓存一分钟
func (s *AchievementService) GetLeaderboard(ctx context.Context, limit int) ([]repository.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, leaderboardCacheKey).Result()
		if err == nil {
			var rows []repository.LeaderboardRow
			if json.Unmarshal([]byte(cached), &rows) == nil && len(rows) >= limit {
				return rows[:limit], nil
			}
		}
	}

	rows, err := s.AttemptRepo.TopScores(100)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(rows); err == nil {
			if err := s.Redis.Set(ctx, leaderboardCacheKey, payload, leaderboardCacheTTL).Err(); err != nil {
				logger.Log.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
