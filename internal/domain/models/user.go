package models

import "time"

// Role 用户角色
type Role string

const (
	RoleUser       Role = "User"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "Super Admin"
)

// IsAdmin 管理员或超级管理员
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AuthProvider 登录方式
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

// User represents a dashboard account
type User struct {
	BaseModel
	Username        string       `gorm:"type:varchar(50);not null" json:"username"`
	Email           string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Password        string       `gorm:"type:varchar(100)" json:"-"`
	Role            Role         `gorm:"type:varchar(20);default:'User';not null" json:"role"`
	IsVerified      bool         `gorm:"not null;default:false" json:"isVerified"`
	DeviceID        *string      `gorm:"type:varchar(64);index" json:"deviceId"`
	EstablishmentID *uint        `json:"establishmentId"`
	AuthProvider    AuthProvider `gorm:"type:varchar(20);default:'local'" json:"authProvider"`
	EmailConfirmed  bool         `gorm:"not null;default:false" json:"emailConfirmed"`
	LastLoginAt     *time.Time   `json:"lastLoginAt,omitempty"`
}

// CanViewDeviceData 只有已验证且绑定了设备的用户才能查看设备数据
func (u *User) CanViewDeviceData() bool {
	return u != nil && u.IsVerified && u.DeviceID != nil && *u.DeviceID != ""
}

// DeviceIDValue 返回设备ID，未绑定时为空字符串
func (u *User) DeviceIDValue() string {
	if u == nil || u.DeviceID == nil {
		return ""
	}
	return *u.DeviceID
}
