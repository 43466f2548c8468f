package model

import "time"

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	UUIDBase
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"size:255;not null" json:"-"`
	Name             string     `gorm:"size:100" json:"name"`
	Role             UserRole   `gorm:"size:20;default:student" json:"role"`
	TelegramID       string     `gorm:"size:64;index" json:"-"`
	TelegramUsername string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}
