package repository

import (
	"errors"
	"time"

	"questor_backend/internal/model"
	"questor_backend/internal/util"

	"gorm.io/gorm"
)

type TelegramRepository struct {
	DB *gorm.DB
}

func NewTelegramRepository(db *gorm.DB) *TelegramRepository {
	return &TelegramRepository{DB: db}
}

func (r *TelegramRepository) CreateLink(link *model.TelegramLink) error {
	return r.DB.Create(link).Error
}

// ConsumeLink 原子消费一次性绑定码：未消费且未过期时置 consumed_at
func (r *TelegramRepository) ConsumeLink(code string, now time.Time) (*model.TelegramLink, error) {
	var link model.TelegramLink
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("one_time_code = ?", code).First(&link).Error; err != nil {
			return err
		}
		if link.ConsumedAt != nil || now.After(link.ExpiresAt) {
			return util.ErrLinkCodeNotFound
		}
		return tx.Model(&model.TelegramLink{}).Where("id = ? AND consumed_at IS NULL", link.ID).
			Update("consumed_at", now).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLinkCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// LogUpdate 记录 webhook 更新，UpdateID 唯一索引保证重放去重。
// 已记录过返回 false
func (r *TelegramRepository) LogUpdate(updateID int64, updateType, payloadJSON string) (bool, error) {
	entry := &model.BotUpdateLog{
		UpdateID:    updateID,
		Type:        updateType,
		PayloadJSON: payloadJSON,
	}
	err := r.DB.Create(entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *TelegramRepository) MarkProcessed(updateID int64, at time.Time) error {
	return r.DB.Model(&model.BotUpdateLog{}).Where("update_id = ?", updateID).
		Update("processed_at", at).Error
}
