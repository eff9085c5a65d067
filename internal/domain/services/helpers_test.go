package services

import (
	"testing"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/config"
	"aquasense-http-service/internal/infrastructure/mailer"
	"aquasense-http-service/internal/infrastructure/metrics"
	"aquasense-http-service/internal/infrastructure/mqtt"
	"aquasense-http-service/internal/test/testutil"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	mr      *miniredis.Miniredis
	redis   InterfaceRedisService
	bus     *mqtt.MemoryBus
	mail    *mailer.LogMailer
	metrics *metrics.Metrics

	jwt           InterfaceJWTService
	users         InterfaceUserService
	notifications InterfaceNotificationService
	access        InterfaceAccessService
	devices       InterfaceDeviceService
	otp           InterfaceOTPService
	history       InterfaceSessionHistoryService
	alerts        InterfaceSensorAlertService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	client, mr := testutil.NewRedis(t)
	env := &testEnv{
		db:      testutil.NewDB(t),
		cfg:     testutil.Config(),
		mr:      mr,
		redis:   NewRedisService(client),
		bus:     mqtt.NewMemoryBus(),
		mail:    &mailer.LogMailer{},
		metrics: metrics.New(),
	}
	env.jwt = NewJWTService(env.cfg, env.db, env.redis)
	env.notifications = NewNotificationService(env.db, env.cfg, env.redis, env.bus, env.metrics)
	env.users = NewUserService(env.db, env.cfg, env.notifications)
	env.access = NewAccessService(env.db, env.cfg, env.notifications, env.bus, env.mail, env.metrics)
	env.devices = NewDeviceService(env.db, env.cfg)
	env.otp = NewOTPService(env.cfg, env.redis, env.mail)
	env.history = NewSessionHistoryService(env.db, env.cfg)
	env.alerts = NewSensorAlertService(env.db, env.notifications)
	return env
}

func (e *testEnv) createUser(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	user, err := e.users.CreateUser(RegisterInput{
		Username: name,
		Email:    name + "@aquasense.test",
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func (e *testEnv) createDevice(t *testing.T, deviceID string, admin *models.User) *models.Device {
	t.Helper()
	input := DeviceInput{DeviceID: deviceID}
	if admin != nil {
		input.AdminID = &admin.ID
	}
	device, err := e.devices.CreateDevice(input)
	if err != nil {
		t.Fatalf("create device %s: %v", deviceID, err)
	}
	return device
}

func (e *testEnv) reloadUser(t *testing.T, id uint) *models.User {
	t.Helper()
	user, err := e.users.GetUserByID(id)
	if err != nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return user
}

func adminScope(u *models.User) Scope {
	return Scope{UserID: u.ID, Role: u.Role}
}
