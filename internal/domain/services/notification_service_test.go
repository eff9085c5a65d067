package services

import (
	"errors"
	"testing"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/mqtt"
)

func seedNotifications(t *testing.T, env *testEnv, admin, user *models.User) {
	t.Helper()
	adminID, userID := admin.ID, user.ID
	list := []*models.Notification{
		{Type: models.NotificationSensor, Message: "pH out of range", Audience: models.AudienceAdmin},
		{Type: models.NotificationSchedule, Message: "Maintenance tomorrow", Audience: models.AudienceAdmin, RecipientID: &adminID},
		{Type: models.NotificationNewUser, Message: "New user", Audience: models.AudienceAdmin, Read: true},
		{Type: models.NotificationInfo, Message: "Welcome", Audience: models.AudienceUser, RecipientID: &userID},
	}
	for _, n := range list {
		if err := env.notifications.Create(n); err != nil {
			t.Fatalf("seed notification: %v", err)
		}
	}
}

func TestNotificationVisibility(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	other := env.createUser(t, "other", models.RoleAdmin)
	user := env.createUser(t, "alice", models.RoleUser)
	seedNotifications(t, env, admin, user)

	adminList, _ := env.notifications.List(adminScope(admin), models.FilterAll)
	if len(adminList) != 3 {
		t.Fatalf("admin should see broadcasts and own notifications, got %d", len(adminList))
	}
	otherList, _ := env.notifications.List(adminScope(other), models.FilterAll)
	if len(otherList) != 2 {
		t.Fatalf("other admin should only see broadcasts, got %d", len(otherList))
	}
	userList, _ := env.notifications.List(Scope{UserID: user.ID, Role: models.RoleUser}, models.FilterAll)
	if len(userList) != 1 || userList[0].Type != models.NotificationInfo {
		t.Fatalf("user should only see own notifications, got %+v", userList)
	}

	// 管理员通知推送到 notifications/admin
	count := 0
	for _, msg := range env.bus.Published() {
		if msg.Topic == mqtt.TopicAdminNotifications {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 admin notification events, got %d", count)
	}
}

func TestNotificationFilters(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	user := env.createUser(t, "alice", models.RoleUser)
	seedNotifications(t, env, admin, user)
	env.access.SubmitRequest(SubmitInput{UserID: user.ID, DeviceID: "P-1"})

	scope := adminScope(admin)
	cases := map[string]int{
		models.FilterAll:     4,
		models.FilterUnread:  3,
		models.FilterPending: 1,
		"sensor":             1,
		"new_user":           1,
		"warning":            0,
	}
	for filter, want := range cases {
		list, err := env.notifications.List(scope, filter)
		if err != nil {
			t.Fatalf("filter %s: %v", filter, err)
		}
		if len(list) != want {
			t.Errorf("filter %s: got %d, want %d", filter, len(list), want)
		}
		// 服务端查询与共享的过滤语义一致
		if len(models.FilterNotifications(list, filter)) != len(list) {
			t.Errorf("filter %s: server result disagrees with MatchesFilter", filter)
		}
	}

	if _, err := env.notifications.List(scope, "bogus"); !errors.Is(err, models.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestMarkAllReadThenUnreadIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	user := env.createUser(t, "alice", models.RoleUser)
	seedNotifications(t, env, admin, user)
	scope := adminScope(admin)

	count, err := env.notifications.UnreadCount(scope)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 unread, got %d %v", count, err)
	}

	if _, err := env.notifications.MarkAllRead(scope); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	unread, _ := env.notifications.List(scope, models.FilterUnread)
	if len(unread) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(unread))
	}
	// 缓存的未读数已失效
	if count, _ := env.notifications.UnreadCount(scope); count != 0 {
		t.Fatalf("expected cached unread count to be refreshed, got %d", count)
	}

	// 用户的通知不受管理员操作影响
	userUnread, _ := env.notifications.List(Scope{UserID: user.ID, Role: models.RoleUser}, models.FilterUnread)
	if len(userUnread) != 1 {
		t.Fatalf("user notifications must stay unread, got %d", len(userUnread))
	}
}

func TestMarkReadIgnoresInvisibleIDs(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	user := env.createUser(t, "alice", models.RoleUser)
	seedNotifications(t, env, admin, user)

	userList, _ := env.notifications.List(Scope{UserID: user.ID, Role: models.RoleUser}, models.FilterAll)
	adminList, _ := env.notifications.List(adminScope(admin), models.FilterUnread)

	ids := []uint{userList[0].ID, adminList[0].ID}
	n, err := env.notifications.MarkRead(adminScope(admin), ids)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n != 1 {
		t.Fatalf("only the visible notification should be marked, got %d", n)
	}
	got, _ := env.notifications.Get(Scope{UserID: user.ID, Role: models.RoleUser}, userList[0].ID)
	if got.Read {
		t.Fatal("admin must not mark user notifications")
	}
}

func TestDeleteAndDeleteAll(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	other := env.createUser(t, "other", models.RoleAdmin)
	user := env.createUser(t, "alice", models.RoleUser)
	seedNotifications(t, env, admin, user)

	list, _ := env.notifications.List(adminScope(admin), "schedule")
	if err := env.notifications.Delete(adminScope(other), list[0].ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("other admin cannot delete a targeted notification, got %v", err)
	}
	if err := env.notifications.Delete(adminScope(admin), list[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.notifications.Delete(adminScope(admin), list[0].ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}

	n, err := env.notifications.DeleteAll(adminScope(admin))
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted, got %d %v", n, err)
	}
	rest, _ := env.notifications.List(adminScope(admin), models.FilterAll)
	if len(rest) != 0 {
		t.Fatalf("expected empty admin list, got %d", len(rest))
	}
	userList, _ := env.notifications.List(Scope{UserID: user.ID, Role: models.RoleUser}, models.FilterAll)
	if len(userList) != 1 {
		t.Fatal("deleteAll must stay inside the caller's scope")
	}
}

func TestCreateValidatesNotifications(t *testing.T) {
	env := newTestEnv(t)
	if err := env.notifications.Create(&models.Notification{Type: "gossip"}); !errors.Is(err, ErrNotificationTypeInvalid) {
		t.Fatalf("expected ErrNotificationTypeInvalid, got %v", err)
	}
	if err := env.notifications.Create(&models.Notification{Type: models.NotificationInfo, Audience: models.AudienceUser}); !errors.Is(err, ErrValidation) {
		t.Fatalf("user notifications need a recipient, got %v", err)
	}
	n := &models.Notification{Type: models.NotificationInfo, Status: models.RequestPending}
	if err := env.notifications.Create(n); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.Status != "" || n.Audience != models.AudienceAdmin {
		t.Fatalf("status is only kept for requests and audience defaults to admin, got %+v", n)
	}
}
