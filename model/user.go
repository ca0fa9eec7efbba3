package model

import "time"

// User 用户结构体 (用于登录认证)
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"` // 用户名唯一且不为空
	Password  string    `json:"-" gorm:"not null"`                    // 加密后的密码
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
