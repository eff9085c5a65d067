package reconcile

import (
	"context"

	"aquasense-http-service/internal/client"
	"aquasense-http-service/internal/domain/models"
	Logger "aquasense-http-service/pkg/logger"
)

// NotificationAPI 服务端通知接口
type NotificationAPI interface {
	Notifications(ctx context.Context, feed client.Feed, filter string) ([]models.Notification, error)
	MarkRead(ctx context.Context, feed client.Feed, ids ...uint) error
	MarkAllRead(ctx context.Context, feed client.Feed) error
	DeleteNotification(ctx context.Context, feed client.Feed, id uint) error
	DeleteAllNotifications(ctx context.Context) error
}

// NotificationCache 本地通知缓存
type NotificationCache interface {
	SaveNotifications(scope string, list []models.Notification) error
	LoadNotifications(scope string) ([]models.Notification, error)
}

// 缓存范围
const (
	ScopeAdmin      = "admin"
	ScopeSuperAdmin = "super_admin"
	ScopeUser       = "user"
)

// ScopeForRole 按角色选择通知来源和缓存范围
func ScopeForRole(role models.Role) (client.Feed, string) {
	switch role {
	case models.RoleSuperAdmin:
		return client.FeedAdmin, ScopeSuperAdmin
	case models.RoleAdmin:
		return client.FeedAdmin, ScopeAdmin
	default:
		return client.FeedUser, ScopeUser
	}
}

// NotificationMirror 以服务端为准的通知列表，本地缓存用于离线显示。
// 读取时先请求服务端并写回缓存，失败时返回缓存；修改时先修改服务端再更新缓存
type NotificationMirror struct {
	api   NotificationAPI
	cache NotificationCache
	feed  client.Feed
	scope string
}

// NewNotificationMirror 创建通知镜像
func NewNotificationMirror(api NotificationAPI, cache NotificationCache, feed client.Feed, scope string) *NotificationMirror {
	return &NotificationMirror{api: api, cache: cache, feed: feed, scope: scope}
}

// 1 List 返回满足过滤条件的通知；stale 为 true 表示来自本地缓存
func (m *NotificationMirror) List(ctx context.Context, filter string) (list []models.Notification, stale bool, err error) {
	filter, err = models.ValidateFilter(filter)
	if err != nil {
		return nil, false, &client.Error{Kind: client.KindInvalidInput, Message: "invalid filter", Err: err}
	}

	all, err := m.api.Notifications(ctx, m.feed, models.FilterAll)
	if err != nil {
		cached, cacheErr := m.cache.LoadNotifications(m.scope)
		if cacheErr != nil {
			return nil, false, err
		}
		Logger.Warning("[Notifications] 获取通知失败，使用本地缓存: %v", err)
		return models.FilterNotifications(cached, filter), true, nil
	}

	if err := m.cache.SaveNotifications(m.scope, all); err != nil {
		Logger.Warning("[Notifications] 写入通知缓存失败: %v", err)
	}
	return models.FilterNotifications(all, filter), false, nil
}

// update 修改缓存中的通知，fn 返回 false 的通知被删除
func (m *NotificationMirror) update(fn func(*models.Notification) bool) {
	cached, err := m.cache.LoadNotifications(m.scope)
	if err != nil {
		Logger.Warning("[Notifications] 读取通知缓存失败: %v", err)
		return
	}
	kept := cached[:0]
	for i := range cached {
		if fn(&cached[i]) {
			kept = append(kept, cached[i])
		}
	}
	if err := m.cache.SaveNotifications(m.scope, kept); err != nil {
		Logger.Warning("[Notifications] 写入通知缓存失败: %v", err)
	}
}

// 2 MarkRead 标记通知为已读
func (m *NotificationMirror) MarkRead(ctx context.Context, ids ...uint) error {
	if err := m.api.MarkRead(ctx, m.feed, ids...); err != nil {
		return err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	m.update(func(n *models.Notification) bool {
		if set[n.ID] {
			n.Read = true
		}
		return true
	})
	return nil
}

// 3 MarkAllRead 标记全部通知为已读
func (m *NotificationMirror) MarkAllRead(ctx context.Context) error {
	if err := m.api.MarkAllRead(ctx, m.feed); err != nil {
		return err
	}
	m.update(func(n *models.Notification) bool {
		n.Read = true
		return true
	})
	return nil
}

// 4 Delete 删除一条通知
func (m *NotificationMirror) Delete(ctx context.Context, id uint) error {
	if err := m.api.DeleteNotification(ctx, m.feed, id); err != nil {
		return err
	}
	m.update(func(n *models.Notification) bool { return n.ID != id })
	return nil
}

// 5 DeleteAll 清空通知，只有管理员可以使用
func (m *NotificationMirror) DeleteAll(ctx context.Context) error {
	if m.feed != client.FeedAdmin {
		return &client.Error{Kind: client.KindInvalidInput, Message: "only admins can delete all notifications"}
	}
	if err := m.api.DeleteAllNotifications(ctx); err != nil {
		return err
	}
	if err := m.cache.SaveNotifications(m.scope, nil); err != nil {
		Logger.Warning("[Notifications] 清空通知缓存失败: %v", err)
	}
	return nil
}
