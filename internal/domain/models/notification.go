package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationSensor   NotificationType = "sensor"
	NotificationRequest  NotificationType = "request"
	NotificationNewUser  NotificationType = "new_user"
	NotificationSchedule NotificationType = "schedule"
	NotificationSuccess  NotificationType = "success"
	NotificationWarning  NotificationType = "warning"
	NotificationError    NotificationType = "error"
	NotificationInfo     NotificationType = "info"
)

var notificationTypes = []NotificationType{
	NotificationSensor, NotificationRequest, NotificationNewUser, NotificationSchedule,
	NotificationSuccess, NotificationWarning, NotificationError, NotificationInfo,
}

// Valid 是否为已知通知类型
func (t NotificationType) Valid() bool {
	for _, known := range notificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequestStatus 访问申请状态，仅 request 类型通知使用
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDeclined RequestStatus = "declined"
)

// Valid 是否为已知申请状态
func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestApproved || s == RequestDeclined
}

// Audience 通知的接收范围
type Audience string

const (
	AudienceAdmin Audience = "admin"
	AudienceUser  Audience = "user"
)

// Notification 通知记录；type=request 的通知同时就是访问申请
type Notification struct {
	BaseModel
	Type        NotificationType `gorm:"type:varchar(20);index;not null" json:"type"`
	Message     string           `gorm:"type:varchar(500)" json:"message"`
	Read        bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	Status      RequestStatus    `gorm:"type:varchar(20);index" json:"status,omitempty"`
	Audience    Audience         `gorm:"type:varchar(10);index;not null" json:"audience"`
	RecipientID *uint            `gorm:"index" json:"userId,omitempty"` // 为空表示广播给所有管理员
	FromUserID  *uint            `gorm:"index" json:"fromUserId,omitempty"`
	FromUser    string           `gorm:"type:varchar(50)" json:"fromUser,omitempty"`
	DeviceID    *string          `gorm:"type:varchar(64)" json:"deviceId,omitempty"`
	PendingKey  *string          `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	Metadata    datatypes.JSON   `json:"metadata,omitempty"`
	DecidedBy   *uint            `json:"decidedBy,omitempty"`
	DecidedAt   *time.Time       `json:"decidedAt,omitempty"`
}

// IsPendingRequest 是否为待审批的访问申请
func (n *Notification) IsPendingRequest() bool {
	return n.Type == NotificationRequest && n.Status == RequestPending
}

// PendingRequestKey 同一用户对同一设备只能有一个待审批申请
func PendingRequestKey(userID uint, deviceID string) string {
	return fmt.Sprintf("%d:%s", userID, deviceID)
}

// 通知列表的过滤条件
const (
	FilterAll     = "all"
	FilterUnread  = "unread"
	FilterPending = "pending"
)

var ErrInvalidFilter = errors.New("invalid notification filter")

// ValidateFilter 过滤条件只能是 all、unread、pending 或通知类型；空值视为 all
func ValidateFilter(filter string) (string, error) {
	switch filter {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUnread, FilterPending:
		return filter, nil
	}
	if NotificationType(filter).Valid() {
		return filter, nil
	}
	return "", ErrInvalidFilter
}

// MatchesFilter 判断通知是否满足过滤条件，服务端查询与客户端缓存使用同一语义
func MatchesFilter(n Notification, filter string) bool {
	switch filter {
	case "", FilterAll:
		return true
	case FilterUnread:
		return !n.Read
	case FilterPending:
		return n.IsPendingRequest()
	default:
		return string(n.Type) == filter
	}
}

// FilterNotifications 返回满足过滤条件的通知，保持原有顺序
func FilterNotifications(list []Notification, filter string) []Notification {
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		if MatchesFilter(n, filter) {
			out = append(out, n)
		}
	}
	return out
}
