package model

import "time"

// TelegramLink 一次性绑定码，用户在网页生成后发给机器人完成绑定
type TelegramLink struct {
	UUIDBase
	UserID      string     `gorm:"size:36;index;not null" json:"userId"`
	OneTimeCode string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	ConsumedAt  *time.Time `json:"consumedAt,omitempty"`
}

func (TelegramLink) TableName() string {
	return "telegram_links"
}

// BotUpdateLog webhook 更新审计与去重
type BotUpdateLog struct {
	UUIDBase
	UpdateID    int64      `gorm:"uniqueIndex;not null" json:"updateId"`
	Type        string     `gorm:"size:50" json:"type"`
	PayloadJSON string     `gorm:"type:json" json:"-"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

func (BotUpdateLog) TableName() string {
	return "bot_update_logs"
}
