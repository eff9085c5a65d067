package routes

import (
	"time"

	_ "aquasense-http-service/docs"
	"aquasense-http-service/internal/app/controllers"
	"aquasense-http-service/internal/app/middleware"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/error/response"
	"aquasense-http-service/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(container *container.ServiceContainer) *gin.Engine {
	cfg := container.GetService("config").(*config.Config)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(middleware.Metrics(container.Metrics()))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	// Swagger 文档与 Prometheus 指标
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(container.Metrics().Handler()))

	registerRoutes(r, container, cfg)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
	cfg *config.Config,
) {
	api := r.Group("/api")
	// 按IP限流
	api.Use(middleware.IPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	jwtService := container.GetService("jwt").(services.InterfaceJWTService)
	cache := middleware.NewResponseCache(30 * time.Second)
	container.OnClose(cache.Close)

	registerPublicRoutes(api, container, cfg)
	registerUserRoutes(api, container, cfg, jwtService)
	registerAdminRoutes(api, container, jwtService, cache)
	registerSuperAdminRoutes(api, container, jwtService)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	cfg *config.Config,
) {
	// 健康检查路由
	api.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	api.GET("/health", controllers.HandleHealthFunc(container, "status"))

	// 认证路由，额外按IP+路径限流防止暴力尝试
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.CombinedRateLimiter(cfg.RateLimitRPS/10, cfg.RateLimitBurst/2))
	authGroup.POST("/register", controllers.HandleAuthFunc(container, "register"))
	authGroup.POST("/login", controllers.HandleAuthFunc(container, "login"))
	authGroup.POST("/otp/send", controllers.HandleAuthFunc(container, "sendOTP"))
	authGroup.POST("/otp/verify", controllers.HandleAuthFunc(container, "verifyOTP"))
	authGroup.POST("/password/reset", controllers.HandleAuthFunc(container, "resetPassword"))
}

// registerUserRoutes 注册任意已登录用户可访问的路由
func registerUserRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	cfg *config.Config,
	jwtService services.InterfaceJWTService,
) {
	auth := api.Group("")
	auth.Use(middleware.AuthenticateUser(jwtService))

	auth.POST("/auth/logout", controllers.HandleAuthFunc(container, "logout"))

	// 当前用户
	userGroup := auth.Group("/user")
	userGroup.GET("/me", controllers.HandleUserFunc(container, "getMe"))
	userGroup.PUT("/profile", controllers.HandleUserFunc(container, "updateProfile"))
	userGroup.PUT("/password", controllers.HandleUserFunc(container, "changePassword"))
	userGroup.GET("/session-history", controllers.HandleUserFunc(container, "getSessionHistory"))

	// 设备访问申请
	accessGroup := auth.Group("/access-requests")
	accessGroup.Use(middleware.UserRateLimiter(cfg.RateLimitRPS/5, cfg.RateLimitBurst/2))
	accessGroup.POST("", controllers.HandleAccessRequestFunc(container, "submitRequest"))
	accessGroup.GET("/status", controllers.HandleAccessRequestFunc(container, "getStatus"))

	// 用户通知
	notificationGroup := auth.Group("/notifications")
	notificationGroup.GET("", controllers.HandleNotificationFunc(container, "getNotifications"))
	notificationGroup.GET("/unread-count", controllers.HandleNotificationFunc(container, "getUnreadCount"))
	notificationGroup.POST("/mark-read", controllers.HandleNotificationFunc(container, "markRead"))
	notificationGroup.POST("/mark-all-read", controllers.HandleNotificationFunc(container, "markAllRead"))
	notificationGroup.DELETE("/:id", controllers.HandleNotificationFunc(container, "deleteNotification"))
}

// registerAdminRoutes 注册管理员（含超级管理员）路由
func registerAdminRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	jwtService services.InterfaceJWTService,
	cache *middleware.ResponseCache,
) {
	adminAuth := middleware.AuthenticateAdmin(jwtService)
	adminGroup := api.Group("/admin")
	adminGroup.Use(adminAuth)

	adminGroup.GET("/cache-stats", func(c *gin.Context) {
		response.Success(c, cache.Stats())
	})

	// 访问申请审批
	accessGroup := adminGroup.Group("/access-requests")
	accessGroup.GET("", controllers.HandleAccessRequestFunc(container, "listRequests"))
	accessGroup.GET("/:id", controllers.HandleAccessRequestFunc(container, "getRequest"))
	accessGroup.PUT("/:id/approve", cache.PurgeOnWrite(), controllers.HandleAccessRequestFunc(container, "approveRequest"))
	accessGroup.PUT("/:id/decline", controllers.HandleAccessRequestFunc(container, "declineRequest"))

	// 管理员通知
	notificationGroup := adminGroup.Group("/notifications")
	notificationGroup.GET("", controllers.HandleNotificationFunc(container, "getNotifications"))
	notificationGroup.POST("", controllers.HandleNotificationFunc(container, "createNotification"))
	notificationGroup.GET("/unread-count", controllers.HandleNotificationFunc(container, "getUnreadCount"))
	notificationGroup.POST("/mark-read", controllers.HandleNotificationFunc(container, "markRead"))
	notificationGroup.POST("/mark-all-read", controllers.HandleNotificationFunc(container, "markAllRead"))
	notificationGroup.DELETE("/delete-all", controllers.HandleNotificationFunc(container, "deleteAllNotifications"))
	notificationGroup.DELETE("/all", controllers.HandleNotificationFunc(container, "deleteAllNotifications"))
	notificationGroup.DELETE("/:id", controllers.HandleNotificationFunc(container, "deleteNotification"))

	// 用户列表
	adminGroup.GET("/users", controllers.HandleAdminFunc(container, "getUsers"))

	// 设备与机构，读接口按用户缓存，写接口成功后清空缓存
	deviceGroup := adminGroup.Group("/devices")
	deviceGroup.GET("", cache.Middleware(), controllers.HandleDeviceFunc(container, "getDevices"))
	deviceGroup.POST("", cache.PurgeOnWrite(), controllers.HandleDeviceFunc(container, "createDevice"))
	deviceGroup.PUT("/:deviceId", cache.PurgeOnWrite(), controllers.HandleDeviceFunc(container, "updateDevice"))
	deviceGroup.DELETE("/:deviceId", cache.PurgeOnWrite(), controllers.HandleDeviceFunc(container, "deleteDevice"))

	adminGroup.GET("/assigned-establishments", cache.Middleware(), controllers.HandleDeviceFunc(container, "getAssignedEstablishments"))
	adminGroup.POST("/establishments", cache.PurgeOnWrite(), controllers.HandleDeviceFunc(container, "createEstablishment"))

	// 仪表盘统计
	dashboard := api.Group("")
	dashboard.Use(adminAuth)
	dashboard.GET("/establishments/:id", cache.Middleware(), controllers.HandleDeviceFunc(container, "getEstablishment"))
	dashboard.GET("/total-users-by-device/:deviceId", cache.Middleware(), controllers.HandleDeviceFunc(container, "getTotalUsersByDevice"))
	dashboard.GET("/total-establishments", cache.Middleware(), controllers.HandleDeviceFunc(container, "getTotalEstablishments"))
}

// registerSuperAdminRoutes 注册超级管理员路由
func registerSuperAdminRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
	jwtService services.InterfaceJWTService,
) {
	superGroup := api.Group("/admin")
	superGroup.Use(middleware.AuthenticateSuperAdmin(jwtService))

	superGroup.POST("/users", controllers.HandleAdminFunc(container, "createAdmin"))

	historyGroup := superGroup.Group("/session-history")
	historyGroup.GET("", controllers.HandleAdminFunc(container, "getSessionHistory"))
	historyGroup.GET("/export", controllers.HandleAdminFunc(container, "exportSessionHistory"))
	historyGroup.DELETE("/users/:id", controllers.HandleAdminFunc(container, "clearUserSessionHistory"))
}
