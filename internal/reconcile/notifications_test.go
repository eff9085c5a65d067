package reconcile

import (
	"context"
	"testing"

	"aquasense-http-service/internal/client"
	"aquasense-http-service/internal/domain/models"
)

// fakeNotificationAPI 内存中的服务端通知
type fakeNotificationAPI struct {
	list    []models.Notification
	offline bool
	calls   []string
}

func (f *fakeNotificationAPI) Notifications(ctx context.Context, feed client.Feed, filter string) ([]models.Notification, error) {
	f.calls = append(f.calls, "list "+string(feed)+" "+filter)
	if f.offline {
		return nil, errOffline
	}
	out := make([]models.Notification, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeNotificationAPI) MarkRead(ctx context.Context, feed client.Feed, ids ...uint) error {
	if f.offline {
		return errOffline
	}
	for i := range f.list {
		for _, id := range ids {
			if f.list[i].ID == id {
				f.list[i].Read = true
			}
		}
	}
	return nil
}

func (f *fakeNotificationAPI) MarkAllRead(ctx context.Context, feed client.Feed) error {
	if f.offline {
		return errOffline
	}
	for i := range f.list {
		f.list[i].Read = true
	}
	return nil
}

func (f *fakeNotificationAPI) DeleteNotification(ctx context.Context, feed client.Feed, id uint) error {
	if f.offline {
		return errOffline
	}
	kept := f.list[:0]
	for _, n := range f.list {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	f.list = kept
	return nil
}

func (f *fakeNotificationAPI) DeleteAllNotifications(ctx context.Context) error {
	if f.offline {
		return errOffline
	}
	f.list = nil
	return nil
}

func sampleNotifications() []models.Notification {
	return []models.Notification{
		{BaseModel: models.BaseModel{ID: 1}, Type: models.NotificationRequest, Status: models.RequestPending},
		{BaseModel: models.BaseModel{ID: 2}, Type: models.NotificationNewUser},
		{BaseModel: models.BaseModel{ID: 3}, Type: models.NotificationSensor, Read: true},
		{BaseModel: models.BaseModel{ID: 4}, Type: models.NotificationRequest, Status: models.RequestApproved, Read: true},
	}
}

func TestMirrorFiltersAndWritesBack(t *testing.T) {
	store := openStore(t)
	api := &fakeNotificationAPI{list: sampleNotifications()}
	feed, scope := ScopeForRole(models.RoleAdmin)
	mirror := NewNotificationMirror(api, store, feed, scope)
	ctx := context.Background()

	cases := map[string]int{"": 4, "all": 4, "unread": 2, "pending": 1, "sensor": 1, "request": 2}
	for filter, want := range cases {
		list, stale, err := mirror.List(ctx, filter)
		if err != nil || stale || len(list) != want {
			t.Errorf("filter %q: len %d stale %v err %v, want %d", filter, len(list), stale, err, want)
		}
	}
	if _, _, err := mirror.List(ctx, "bogus"); !client.IsKind(err, client.KindInvalidInput) {
		t.Errorf("bogus filter: err = %v", err)
	}

	if err := mirror.MarkAllRead(ctx); err != nil {
		t.Fatal(err)
	}
	unread, _, _ := mirror.List(ctx, models.FilterUnread)
	if len(unread) != 0 {
		t.Fatalf("unread after mark-all-read: %v", unread)
	}
	cached, _ := store.LoadNotifications(ScopeAdmin)
	for _, n := range cached {
		if !n.Read {
			t.Fatalf("cache not written back: %+v", n)
		}
	}
	// 已读不影响待审批
	if pending, _, _ := mirror.List(ctx, models.FilterPending); len(pending) != 1 {
		t.Fatalf("pending after mark-all-read: %v", pending)
	}
}

func TestMirrorFallsBackToCache(t *testing.T) {
	store := openStore(t)
	api := &fakeNotificationAPI{list: sampleNotifications()}
	mirror := NewNotificationMirror(api, store, client.FeedAdmin, ScopeSuperAdmin)
	ctx := context.Background()

	if _, _, err := mirror.List(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := mirror.MarkRead(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := mirror.Delete(ctx, 2); err != nil {
		t.Fatal(err)
	}

	api.offline = true
	list, stale, err := mirror.List(ctx, models.FilterUnread)
	if err != nil || !stale {
		t.Fatalf("offline list: stale %v err %v", stale, err)
	}
	if len(list) != 0 {
		t.Fatalf("cached unread = %+v", list)
	}
	all, _, _ := mirror.List(ctx, models.FilterAll)
	if len(all) != 3 {
		t.Fatalf("cached all = %+v", all)
	}

	// 服务端失败时不修改缓存
	if err := mirror.DeleteAll(ctx); !client.IsKind(err, client.KindNetwork) {
		t.Fatalf("offline delete-all: err = %v", err)
	}
	if cached, _ := store.LoadNotifications(ScopeSuperAdmin); len(cached) != 3 {
		t.Fatalf("cache changed after failed delete-all: %d", len(cached))
	}

	api.offline = false
	if err := mirror.DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	if cached, _ := store.LoadNotifications(ScopeSuperAdmin); len(cached) != 0 {
		t.Fatalf("cache after delete-all: %v", cached)
	}
}

func TestUserMirrorCannotDeleteAll(t *testing.T) {
	store := openStore(t)
	api := &fakeNotificationAPI{}
	feed, scope := ScopeForRole(models.RoleUser)
	if feed != client.FeedUser || scope != ScopeUser {
		t.Fatalf("user scope = %s %s", feed, scope)
	}
	mirror := NewNotificationMirror(api, store, feed, scope)
	if err := mirror.DeleteAll(context.Background()); !client.IsKind(err, client.KindInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}
