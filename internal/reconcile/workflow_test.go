package reconcile

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"aquasense-http-service/internal/app/routes"
	"aquasense-http-service/internal/client"
	"aquasense-http-service/internal/client/localstore"
	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/infrastructure/mailer"
	"aquasense-http-service/internal/infrastructure/mqtt"
	"aquasense-http-service/internal/test/testutil"

	"github.com/gin-gonic/gin"
)

// startServer 启动完整的HTTP服务，返回 /api 地址
func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	redisClient, _ := testutil.NewRedis(t)
	c := container.NewServiceContainer(testutil.NewDB(t), testutil.Config(), redisClient,
		container.WithBus(mqtt.NewMemoryBus()),
		container.WithMailer(&mailer.LogMailer{}),
	)
	t.Cleanup(c.Close)
	if err := c.GetService("user").(services.InterfaceUserService).EnsureSuperAdmin(); err != nil {
		t.Fatalf("ensure super admin: %v", err)
	}

	srv := httptest.NewServer(routes.SetupRouter(c))
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDeviceAccessScenario(t *testing.T) {
	ctx := context.Background()
	baseURL := startServer(t)

	userAPI := client.New(baseURL)
	auth, err := userAPI.Register(ctx, "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	store := openStore(t)
	if err := store.SaveSession(&localstore.Session{
		User:         auth.User,
		Token:        auth.Token,
		State:        models.AdmissionNoDevice,
		AuthProvider: models.AuthProviderLocal,
	}); err != nil {
		t.Fatal(err)
	}

	var verifiedUser *client.User
	// 间隔足够长，由测试手动驱动轮询
	wf := NewWorkflow(userAPI, store, Options{
		Interval:   time.Hour,
		OnVerified: func(u *client.User) { verifiedUser = u },
	})
	t.Cleanup(wf.CloseModal)

	if !wf.ShowAccessModal() {
		t.Fatal("new user should see the access modal")
	}
	if _, err := wf.Submit(ctx, "  "); !client.IsKind(err, client.KindInvalidInput) {
		t.Fatalf("blank device: err = %v", err)
	}
	if wf.State() != models.AdmissionNoDevice {
		t.Fatalf("blank submit changed state to %s", wf.State())
	}

	if _, err := wf.Submit(ctx, "12345"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if wf.State() != models.AdmissionPending || !wf.ShowAccessModal() {
		t.Fatalf("after submit: state %s", wf.State())
	}

	admin := client.New(baseURL)
	if _, err := admin.Login(ctx, "root@aquasense.test", "root-password"); err != nil {
		t.Fatalf("admin login: %v", err)
	}
	pending, err := admin.AdminNotifications(ctx, models.FilterPending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, err = %v", pending, err)
	}
	request := pending[0]
	if request.DeviceID == nil || *request.DeviceID != "12345" || request.FromUserID == nil {
		t.Fatalf("request = %+v", request)
	}

	if got := wf.Loop().Tick(ctx); got != OutcomePending {
		t.Fatalf("tick before approval = %s", got)
	}

	decision, err := admin.Approve(ctx, request.ID, *request.FromUserID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decision.Message != "Access request approved" || !decision.User.IsVerified {
		t.Fatalf("decision = %+v", decision)
	}
	if _, err := admin.Approve(ctx, request.ID, *request.FromUserID); client.CodeOf(err) != 106001 {
		t.Fatalf("re-approve: err = %v", err)
	}

	if got := wf.Loop().Tick(ctx); got != OutcomeVerified {
		t.Fatalf("tick after approval = %s", got)
	}
	if wf.ShowAccessModal() {
		t.Fatal("access modal still shown after verification")
	}
	if verifiedUser == nil || verifiedUser.DeviceIDValue() != "12345" {
		t.Fatalf("OnVerified user = %+v", verifiedUser)
	}
	sess, _ := store.LoadSession()
	if sess.State != models.AdmissionApproved || !sess.User.CanViewDeviceData() {
		t.Fatalf("session = %+v", sess)
	}

	if err := wf.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := store.LoadSession(); err == nil {
		t.Fatal("session kept after logout")
	}
	if _, err := userAPI.Me(ctx); !client.IsKind(err, client.KindUnauthorized) {
		t.Fatalf("me after logout: err = %v", err)
	}
}

func TestDeclinedUserCanResubmit(t *testing.T) {
	ctx := context.Background()
	baseURL := startServer(t)

	userAPI := client.New(baseURL)
	auth, err := userAPI.Register(ctx, "bob", "bob@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	store := openStore(t)
	store.SaveSession(&localstore.Session{User: auth.User, Token: auth.Token})

	wf := NewWorkflow(userAPI, store, Options{Interval: time.Hour})
	t.Cleanup(wf.CloseModal)
	if _, err := wf.Submit(ctx, "12345"); err != nil {
		t.Fatal(err)
	}

	admin := client.New(baseURL)
	if _, err := admin.Login(ctx, "root@aquasense.test", "root-password"); err != nil {
		t.Fatal(err)
	}
	pending, _ := admin.AdminNotifications(ctx, models.FilterPending)
	if len(pending) != 1 {
		t.Fatalf("pending = %v", pending)
	}
	if _, err := admin.Decline(ctx, pending[0].ID, auth.User.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	if got := wf.Loop().Tick(ctx); got != OutcomePending {
		t.Fatalf("tick after decline = %s", got)
	}
	me, err := userAPI.Me(ctx)
	if err != nil || me.IsVerified || me.DeviceID != nil {
		t.Fatalf("declined user = %+v, err = %v", me, err)
	}

	status, err := userAPI.AccessStatus(ctx)
	if err != nil || status.State != models.AdmissionDeclined || !status.ShowAccessModal {
		t.Fatalf("status = %+v, err = %v", status, err)
	}
	if _, err := wf.Submit(ctx, "12345"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
}

func TestResumeOnlyWhenPending(t *testing.T) {
	store := openStore(t)
	fetcher := &scriptedFetcher{script: []step{{verified: true}}}
	api := &fakeAccessAPI{scriptedFetcher: fetcher}
	wf := NewWorkflow(api, store, Options{Interval: 2 * time.Millisecond})

	// 没有会话
	if err := wf.Resume(context.Background()); err != nil {
		t.Fatalf("resume without session: %v", err)
	}
	store.SaveSession(&localstore.Session{Token: "tok", State: models.AdmissionDeclined})
	if err := wf.Resume(context.Background()); err != nil {
		t.Fatalf("resume declined: %v", err)
	}
	if fetcher.count() != 0 {
		t.Fatalf("resume polled a non-pending session")
	}

	store.UpdateSession(func(s *localstore.Session) error {
		s.State = models.AdmissionPending
		return nil
	})
	if err := wf.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-wf.Loop().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("resumed loop did not finish")
	}
	if wf.State() != models.AdmissionApproved {
		t.Fatalf("state = %s", wf.State())
	}
}

type fakeAccessAPI struct {
	*scriptedFetcher
	loggedOut bool
}

func (f *fakeAccessAPI) SubmitAccessRequest(ctx context.Context, input client.AccessRequestInput) (*client.SubmitResult, error) {
	return &client.SubmitResult{State: models.AdmissionPending}, nil
}

func (f *fakeAccessAPI) Logout(ctx context.Context) error {
	f.loggedOut = true
	return errOffline
}

func TestLogoutClearsSessionEvenWhenServerFails(t *testing.T) {
	store := openStore(t)
	store.SaveSession(&localstore.Session{Token: "tok", State: models.AdmissionPending})
	api := &fakeAccessAPI{scriptedFetcher: &scriptedFetcher{script: []step{{}}}}
	wf := NewWorkflow(api, store, Options{Interval: time.Millisecond})

	if err := wf.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := wf.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !api.loggedOut {
		t.Error("server logout not attempted")
	}
	if wf.ShowAccessModal() || wf.State() != "" {
		t.Errorf("session not cleared")
	}
	select {
	case <-wf.Loop().Done():
	default:
		t.Error("loop still running after logout")
	}
}
