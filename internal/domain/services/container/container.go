package container

import (
	"context"
	"sync"
	"time"

	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/infrastructure/config"
	"aquasense-http-service/internal/infrastructure/mailer"
	"aquasense-http-service/internal/infrastructure/metrics"
	"aquasense-http-service/internal/infrastructure/mqtt"
	Logger "aquasense-http-service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Option 替换容器中的基础设施，测试中注入进程内总线和日志邮件
type Option func(*ServiceContainer)

// WithBus 使用指定的消息总线
func WithBus(bus mqtt.Bus) Option {
	return func(c *ServiceContainer) { c.bus = bus }
}

// WithMailer 使用指定的邮件发送器
func WithMailer(m mailer.Mailer) Option {
	return func(c *ServiceContainer) { c.mailer = m }
}

// WithMetrics 使用指定的指标集合
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ServiceContainer) { c.metrics = m }
}

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client

	// 基础设施
	bus     mqtt.Bus
	mailer  mailer.Mailer
	metrics *metrics.Metrics

	// 基础服务
	jwtService   services.InterfaceJWTService
	redisService services.InterfaceRedisService

	// 业务服务
	userService           services.InterfaceUserService
	notificationService   services.InterfaceNotificationService
	accessService         services.InterfaceAccessService
	deviceService         services.InterfaceDeviceService
	otpService            services.InterfaceOTPService
	sessionHistoryService services.InterfaceSessionHistoryService
	sensorAlertService    services.InterfaceSensorAlertService

	// Close 时依次执行
	closers []func()

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器；redisClient 为空时不使用Redis
func NewServiceContainer(db *gorm.DB, cfg *config.Config, redisClient *redis.Client, opts ...Option) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}

	if cfg == nil {
		panic("配置为空")
	}

	// 测试Redis连接
	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			Logger.Warning("Redis连接测试失败: %v，将不使用Redis缓存", err)
			redisClient = nil
		}
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
		redis:  redisClient,
	}
	for _, opt := range opts {
		opt(container)
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 初始化基础设施
	if c.bus == nil {
		c.bus = mqtt.New(c.config)
	}
	if c.mailer == nil {
		c.mailer = mailer.New(c.config)
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}

	// 初始化基础服务
	c.redisService = services.NewRedisService(c.redis)
	c.jwtService = services.NewJWTService(c.config, c.db, c.redisService)

	// 初始化业务服务
	c.notificationService = services.NewNotificationService(c.db, c.config, c.redisService, c.bus, c.metrics)
	c.userService = services.NewUserService(c.db, c.config, c.notificationService)
	c.accessService = services.NewAccessService(c.db, c.config, c.notificationService, c.bus, c.mailer, c.metrics)
	c.deviceService = services.NewDeviceService(c.db, c.config)
	c.otpService = services.NewOTPService(c.config, c.redisService, c.mailer)
	c.sessionHistoryService = services.NewSessionHistoryService(c.db, c.config)
	c.sensorAlertService = services.NewSensorAlertService(c.db, c.notificationService)

	// 订阅传感器告警
	if err := c.bus.Subscribe(mqtt.TopicSensorAlerts, c.sensorAlertService.HandleMessage); err != nil {
		Logger.Error("[MQTT] 订阅传感器告警失败: %v", err)
	}
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "user":
		return c.userService
	case "notification":
		return c.notificationService
	case "access":
		return c.accessService
	case "device":
		return c.deviceService
	case "otp":
		return c.otpService
	case "session_history":
		return c.sessionHistoryService
	case "sensor_alert":
		return c.sensorAlertService
	case "bus":
		return c.bus
	case "mailer":
		return c.mailer
	case "metrics":
		return c.metrics
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Metrics 获取指标集合
func (c *ServiceContainer) Metrics() *metrics.Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}

// OnClose 注册随容器一起释放的资源，例如路由层的响应缓存
func (c *ServiceContainer) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

// Close 释放消息总线等资源
func (c *ServiceContainer) Close() {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	bus := c.bus
	c.mu.Unlock()

	for _, fn := range closers {
		fn()
	}
	if bus != nil {
		bus.Close()
	}
}
