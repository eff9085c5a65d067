package controllers

import (
	"time"

	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/error/response"
	"aquasense-http-service/internal/infrastructure/database"

	"github.com/gin-gonic/gin"
)

// HealthCheckController 健康检查控制器
type HealthCheckController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthCheckController 创建健康检查控制器实例
func NewHealthCheckController(ctx *gin.Context, container *container.ServiceContainer) *HealthCheckController {
	return &HealthCheckController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleHealthFunc 返回一个处理健康检查请求的Gin处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthCheckController(ctx, container)

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// Ping 健康检查端点
// @Summary Ping
// @Tags Health
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /ping [get]
func (h *HealthCheckController) Ping() {
	response.Success(h.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// Status 检查数据库与Redis状态
// @Summary 服务状态
// @Tags Health
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 500 {object} ErrorResponse
// @Router /health [get]
func (h *HealthCheckController) Status() {
	start := time.Now()
	dbStatus := "up"
	if err := database.Ping(h.Container.GetDB()); err != nil {
		dbStatus = "down: " + err.Error()
	}

	redisStatus := "disabled"
	if redis, ok := h.Container.GetService("redis").(services.InterfaceRedisService); ok && redis.Available() {
		redisStatus = "up"
	}

	payload := gin.H{
		"database": dbStatus,
		"redis":    redisStatus,
		"latency":  time.Since(start).String(),
	}
	if dbStatus != "up" {
		response.FailWithMessage(h.Ctx, code.ErrDatabase, "数据库不可用", payload)
		return
	}
	payload["status"] = "healthy"
	response.Success(h.Ctx, payload)
}
