package models

import "time"

// SessionType 会话记录类型
type SessionType string

const (
	SessionLogin  SessionType = "login"
	SessionLogout SessionType = "logout"
)

// SessionHistory 记录用户的登录与登出
type SessionHistory struct {
	BaseModel
	UserID      uint        `gorm:"index;not null" json:"userId"`
	Username    string      `gorm:"type:varchar(50)" json:"username"`
	SessionType SessionType `gorm:"type:varchar(10);not null" json:"sessionType"`
	IPAddress   string      `gorm:"type:varchar(64)" json:"ipAddress"`
	DeviceInfo  string      `gorm:"type:varchar(255)" json:"deviceInfo"`
	Timestamp   time.Time   `gorm:"index" json:"timestamp"`
}
