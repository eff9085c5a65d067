package services

import (
	"errors"
	"fmt"
	"time"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/config"
	"aquasense-http-service/internal/infrastructure/metrics"
	"aquasense-http-service/internal/infrastructure/mqtt"
	Logger "aquasense-http-service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const unreadCountTTL = 5 * time.Minute

// Scope 当前操作者，决定可见的通知范围
type Scope struct {
	UserID uint
	Role   models.Role
}

// IsAdmin 管理员范围
func (s Scope) IsAdmin() bool {
	return s.Role.IsAdmin()
}

// key 用于未读数缓存
func (s Scope) key() string {
	switch s.Role {
	case models.RoleSuperAdmin:
		return "super"
	case models.RoleAdmin:
		return fmt.Sprintf("admin:%d", s.UserID)
	}
	return fmt.Sprintf("user:%d", s.UserID)
}

// InterfaceNotificationService 通知服务接口
type InterfaceNotificationService interface {
	Create(n *models.Notification) error
	CreateTx(tx *gorm.DB, n *models.Notification) error
	List(scope Scope, filter string) ([]models.Notification, error)
	Get(scope Scope, id uint) (*models.Notification, error)
	MarkRead(scope Scope, ids []uint) (int64, error)
	MarkAllRead(scope Scope) (int64, error)
	Delete(scope Scope, id uint) error
	DeleteAll(scope Scope) (int64, error)
	UnreadCount(scope Scope) (int64, error)
	Published(n *models.Notification)
	Changed()
}

// NotificationService 通知服务
type NotificationService struct {
	DB      *gorm.DB
	Config  *config.Config
	Redis   InterfaceRedisService
	Bus     mqtt.Bus
	Metrics *metrics.Metrics
}

// NewNotificationService 创建通知服务
func NewNotificationService(db *gorm.DB, cfg *config.Config, redis InterfaceRedisService, bus mqtt.Bus, m *metrics.Metrics) InterfaceNotificationService {
	return &NotificationService{
		DB:      db,
		Config:  cfg,
		Redis:   redis,
		Bus:     bus,
		Metrics: m,
	}
}

// 按可见范围过滤：
// 超级管理员看到所有管理员通知；管理员看到广播和发给自己的管理员通知；普通用户只看到发给自己的用户通知
func visible(db *gorm.DB, scope Scope) *gorm.DB {
	switch scope.Role {
	case models.RoleSuperAdmin:
		return db.Where("audience = ?", models.AudienceAdmin)
	case models.RoleAdmin:
		return db.Where("audience = ? AND (recipient_id IS NULL OR recipient_id = ?)", models.AudienceAdmin, scope.UserID)
	default:
		return db.Where("audience = ? AND recipient_id = ?", models.AudienceUser, scope.UserID)
	}
}

// 与 models.MatchesFilter 语义一致的查询条件
func applyFilter(db *gorm.DB, filter string) *gorm.DB {
	switch filter {
	case "", models.FilterAll:
		return db
	case models.FilterUnread:
		return db.Where("is_read = ?", false)
	case models.FilterPending:
		return db.Where("type = ? AND status = ?", models.NotificationRequest, models.RequestPending)
	default:
		return db.Where("type = ?", filter)
	}
}

// 1 Create 创建通知并在提交后广播
func (s *NotificationService) Create(n *models.Notification) error {
	if err := s.CreateTx(s.DB, n); err != nil {
		return err
	}
	s.Published(n)
	return nil
}

// 2 CreateTx 在给定事务中创建通知，调用方负责提交后调用 Published
func (s *NotificationService) CreateTx(tx *gorm.DB, n *models.Notification) error {
	if !n.Type.Valid() {
		return ErrNotificationTypeInvalid
	}
	if n.Audience == "" {
		n.Audience = models.AudienceAdmin
	}
	if n.Audience == models.AudienceUser && n.RecipientID == nil {
		return fmt.Errorf("%w: user notification needs a recipient", ErrValidation)
	}
	if n.Type != models.NotificationRequest {
		n.Status = ""
	}
	return tx.Create(n).Error
}

// Published 通知已持久化：清除未读缓存、计数并推送给管理员
func (s *NotificationService) Published(n *models.Notification) {
	s.Changed()
	if s.Metrics != nil {
		s.Metrics.Notifications.WithLabelValues(string(n.Type)).Inc()
	}
	if s.Bus != nil && n.Audience == models.AudienceAdmin {
		if err := s.Bus.Publish(mqtt.TopicAdminNotifications, n); err != nil {
			Logger.Warning("推送管理员通知%d失败: %v", n.ID, err)
			if s.Metrics != nil {
				s.Metrics.MQTTPublishErrors.Inc()
			}
		}
	}
}

// 3 List 按过滤条件列出可见通知，最新的在前
func (s *NotificationService) List(scope Scope, filter string) ([]models.Notification, error) {
	filter, err := models.ValidateFilter(filter)
	if err != nil {
		return nil, err
	}

	var list []models.Notification
	query := applyFilter(visible(s.DB.Model(&models.Notification{}), scope), filter)
	if err := query.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// 4 Get 获取一条可见通知
func (s *NotificationService) Get(scope Scope, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := visible(s.DB.Model(&models.Notification{}), scope).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

// 5 MarkRead 标记指定通知为已读，不可见的ID被忽略
func (s *NotificationService) MarkRead(scope Scope, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := visible(s.DB.Model(&models.Notification{}), scope).
		Where("id IN ?", ids).
		Update("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	s.Changed()
	return result.RowsAffected, nil
}

// 6 MarkAllRead 标记所有可见通知为已读
func (s *NotificationService) MarkAllRead(scope Scope) (int64, error) {
	result := visible(s.DB.Model(&models.Notification{}), scope).
		Where("is_read = ?", false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	s.Changed()
	return result.RowsAffected, nil
}

// 7 Delete 删除一条可见通知
func (s *NotificationService) Delete(scope Scope, id uint) error {
	result := visible(s.DB, scope).Where("id = ?", id).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	s.Changed()
	return nil
}

// 8 DeleteAll 删除所有可见通知
func (s *NotificationService) DeleteAll(scope Scope) (int64, error) {
	result := visible(s.DB, scope).Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	s.Changed()
	return result.RowsAffected, nil
}

// 9 UnreadCount 未读通知数，优先读取Redis缓存
func (s *NotificationService) UnreadCount(scope Scope) (int64, error) {
	if s.Redis != nil && s.Redis.Available() {
		count, err := s.Redis.GetUnreadCount(scope.key())
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, redis.Nil) {
			Logger.Warning("读取未读数缓存失败: %v", err)
		}
	}

	var count int64
	if err := visible(s.DB.Model(&models.Notification{}), scope).Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, err
	}

	if s.Redis != nil && s.Redis.Available() {
		if err := s.Redis.CacheUnreadCount(scope.key(), count, unreadCountTTL); err != nil {
			Logger.Warning("缓存未读数失败: %v", err)
		}
	}
	return count, nil
}

// Changed 通知发生变化，清除未读数缓存
func (s *NotificationService) Changed() {
	if s.Redis == nil || !s.Redis.Available() {
		return
	}
	if err := s.Redis.InvalidateUnreadCounts(); err != nil {
		Logger.Warning("清除未读数缓存失败: %v", err)
	}
}
