package repository

import (
	"errors"
	"time"

	"questor_backend/internal/model"

	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) ListAll() ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.Order("created_at asc").Find(&achievements).Error
	if err != nil {
		return nil, err
	}
	return achievements, nil
}

// AwardedIDs 用户已获得的成就 ID 集合
func (r *AchievementRepository) AwardedIDs(userID string) (map[string]bool, error) {
	var ids []string
	err := r.DB.Model(&model.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &ids).Error
	if err != nil {
		return nil, err
	}
	awarded := make(map[string]bool, len(ids))
	for _, id := range ids {
		awarded[id] = true
	}
	return awarded, nil
}

// Award 插入授予记录。(user_id, achievement_id) 唯一索引是最终仲裁：
// 并发授予触发重复键时视为已授予，返回 false 而非错误
func (r *AchievementRepository) Award(userID, achievementID string, awardedAt time.Time) (bool, error) {
	ua := &model.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		AwardedAt:     awardedAt,
	}
	err := r.DB.Create(ua).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type UserAwardRow struct {
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IconURL     string    `json:"iconUrl,omitempty"`
	AwardedAt   time.Time `json:"awardedAt"`
}

func (r *AchievementRepository) FindAwardsByUser(userID string) ([]UserAwardRow, error) {
	var rows []UserAwardRow
	err := r.DB.Model(&model.UserAchievement{}).
		Select("achievements.code, achievements.title, achievements.description, achievements.icon_url, user_achievements.awarded_at").
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Order("user_achievements.awarded_at desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AchievementRepository) CountAwardsByUser(userID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserAchievement{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *AchievementRepository) Create(achievement *model.Achievement) error {
	return r.DB.Create(achievement).Error
}

func (r *AchievementRepository) FindByID(id string) (*model.Achievement, error) {
	var achievement model.Achievement
	err := r.DB.Where("id = ?", id).First(&achievement).Error
	if err != nil {
		return nil, err
	}
	return &achievement, nil
}

func (r *AchievementRepository) UpdateIconURL(id, iconURL string) error {
	return r.DB.Model(&model.Achievement{}).Where("id = ?", id).Update("icon_url", iconURL).Error
}
