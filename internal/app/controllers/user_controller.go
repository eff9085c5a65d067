package controllers

import (
	"aquasense-http-service/internal/app/middleware"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/error/response"
	Logger "aquasense-http-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// InterfaceUserController 定义用户控制器接口
type InterfaceUserController interface {
	GetMe()
	UpdateProfile()
	ChangePassword()
	GetSessionHistory()
}

// UserController 处理当前登录用户相关的请求
type UserController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewUserController 创建一个新的用户控制器
func NewUserController(ctx *gin.Context, container *container.ServiceContainer) *UserController {
	return &UserController{
		Ctx:       ctx,
		Container: container,
	}
}

// UpdateProfileRequest 更新个人资料请求，省略的字段不修改
type UpdateProfileRequest struct {
	Username        *string `json:"username" example:"alice"`
	Email           *string `json:"email" example:"alice@example.com"`
	EstablishmentID *uint   `json:"establishmentId" example:"1"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required" example:"secret123"`
	NewPassword string `json:"newPassword" binding:"required" example:"newsecret123"`
}

// HandleUserFunc 返回一个处理用户请求的Gin处理函数
func HandleUserFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewUserController(ctx, container)

		switch method {
		case "getMe":
			controller.GetMe()
		case "updateProfile":
			controller.UpdateProfile()
		case "changePassword":
			controller.ChangePassword()
		case "getSessionHistory":
			controller.GetSessionHistory()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. GetMe 获取当前用户的最新记录，客户端轮询该接口确认审批结果
// @Summary      当前用户
// @Description  返回服务端保存的用户记录（isVerified、deviceId 以服务端为准）和访问申请状态
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /user/me [get]
func (c *UserController) GetMe() {
	if m := c.Container.Metrics(); m != nil {
		m.StatusPolls.Inc()
	}

	userID := middleware.GetUserID(c.Ctx)
	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.GetUserByID(userID)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}

	payload := gin.H{"user": user}
	accessService := c.Container.GetService("access").(services.InterfaceAccessService)
	if state, _, err := accessService.Status(userID); err == nil {
		payload["accessState"] = state
	} else {
		Logger.Warning("获取用户%d访问申请状态失败: %v", userID, err)
	}
	response.Success(c.Ctx, payload)
}

// 2. UpdateProfile 更新个人资料
// @Summary      更新个人资料
// @Tags         User
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "个人资料"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /user/profile [put]
func (c *UserController) UpdateProfile() {
	var req UpdateProfileRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.UpdateProfile(middleware.GetUserID(c.Ctx), services.ProfileInput{
		Username:        req.Username,
		Email:           req.Email,
		EstablishmentID: req.EstablishmentID,
	})
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "个人资料已更新", gin.H{"user": user})
}

// 3. ChangePassword 修改密码
// @Summary      修改密码
// @Tags         User
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "新旧密码"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /user/password [put]
func (c *UserController) ChangePassword() {
	var req ChangePasswordRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	if err := userService.ChangePassword(middleware.GetUserID(c.Ctx), req.OldPassword, req.NewPassword); err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "密码已修改", nil)
}

// 4. GetSessionHistory 当前用户最近的登录记录
// @Summary      登录历史
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /user/session-history [get]
func (c *UserController) GetSessionHistory() {
	history := c.Container.GetService("session_history").(services.InterfaceSessionHistoryService)
	records, err := history.ListByUser(middleware.GetUserID(c.Ctx))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"history": records})
}
