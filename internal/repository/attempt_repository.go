package repository

import (
	"errors"
	"time"

	"questor_backend/internal/model"
	"questor_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// CreateWithSteps 原子创建尝试及其全部步骤记录
func (r *AttemptRepository) CreateWithSteps(attempt *model.Attempt) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(attempt).Error
	})
}

func (r *AttemptRepository) FindByIDAndUser(attemptID, userID string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordinal asc")
	}).
		Where("id = ? AND user_id = ?", attemptID, userID).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) ListByUser(userID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("user_id = ?", userID).Order("started_at desc").Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// SaveAnswer 更新步骤答案并累计总分。
// 步骤字段 last-write-wins；总分只加不减：增量为正时才写入，
// 且用 SQL 侧自增表达式在同一事务里完成，避免并发答题丢失累计分。
func (r *AttemptRepository) SaveAnswer(attemptID, stepRowID, answer string, isCorrect *bool, score int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var step model.AttemptStep
		if err := tx.Where("id = ? AND attempt_id = ?", stepRowID, attemptID).First(&step).Error; err != nil {
			return err
		}

		delta := score - step.ScoreAwarded

		updates := map[string]interface{}{
			"answer":        answer,
			"is_correct":    isCorrect,
			"score_awarded": score,
		}
		if err := tx.Model(&model.AttemptStep{}).Where("id = ?", stepRowID).Updates(updates).Error; err != nil {
			return err
		}

		if delta > 0 {
			if err := tx.Model(&model.Attempt{}).Where("id = ?", attemptID).
				UpdateColumn("score", gorm.Expr("score + ?", delta)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkFinished 置为已完成。已完成的尝试不再改动（幂等），返回是否本次生效
func (r *AttemptRepository) MarkFinished(attemptID string, finishedAt time.Time) (bool, error) {
	res := r.DB.Model(&model.Attempt{}).
		Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":      model.AttemptCompleted,
			"finished_at": finishedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AttemptRepository) CountCompletedByUser(userID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND status = ?", userID, model.AttemptCompleted).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) FindStepsByAttempt(attemptID string) ([]model.AttemptStep, error) {
	var steps []model.AttemptStep
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

type LeaderboardRow struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	TotalScore int    `json:"totalScore"`
	Completed  int    `json:"completed"`
}

// TopScores 按完成尝试累计得分排名
func (r *AttemptRepository) TopScores(limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.DB.Model(&model.Attempt{}).
		Select("attempts.user_id, users.name, SUM(attempts.score) AS total_score, COUNT(*) AS completed").
		Joins("JOIN users ON users.id = attempts.user_id").
		Where("attempts.status = ?", model.AttemptCompleted).
		Group("attempts.user_id, users.name").
		Order("total_score desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Reload 读取最新总分（Finish 返回值用）
func (r *AttemptRepository) Reload(attemptID string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.Where("id = ?", attemptID).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
