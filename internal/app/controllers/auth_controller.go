package controllers

import (
	"errors"
	"strings"

	"aquasense-http-service/internal/app/middleware"
	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/error/response"
	Logger "aquasense-http-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// InterfaceAuthController 定义认证控制器接口
type InterfaceAuthController interface {
	Register()
	Login()
	Logout()
	SendOTP()
	VerifyOTP()
	ResetPassword()
}

// AuthController 处理身份验证请求
type AuthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAuthController 创建一个新的认证控制器
func NewAuthController(ctx *gin.Context, container *container.ServiceContainer) *AuthController {
	return &AuthController{
		Ctx:       ctx,
		Container: container,
	}
}

// RegisterRequest 表示注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// LoginRequest 表示登录请求，identifier 可以是邮箱或用户名
type LoginRequest struct {
	Identifier string `json:"identifier" example:"alice@example.com"`
	Email      string `json:"email" example:"alice@example.com"`
	Password   string `json:"password" binding:"required" example:"secret123"`
}

// OTPRequest 表示发送验证码请求
type OTPRequest struct {
	Email   string `json:"email" binding:"required" example:"alice@example.com"`
	Purpose string `json:"purpose" example:"signup"`
}

// OTPVerifyRequest 表示校验验证码请求
type OTPVerifyRequest struct {
	Email   string `json:"email" binding:"required" example:"alice@example.com"`
	Purpose string `json:"purpose" example:"signup"`
	Code    string `json:"code" binding:"required" example:"123456"`
}

// ResetPasswordRequest 表示重置密码请求
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required" example:"alice@example.com"`
	Code        string `json:"code" binding:"required" example:"123456"`
	NewPassword string `json:"newPassword" binding:"required" example:"newsecret123"`
}

// LoginData 表示登录成功后返回的数据
type LoginData struct {
	Token string       `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User  *models.User `json:"user"`
}

// HandleAuthFunc 返回一个处理认证请求的Gin处理函数
func HandleAuthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAuthController(ctx, container)

		switch method {
		case "register":
			controller.Register()
		case "login":
			controller.Login()
		case "logout":
			controller.Logout()
		case "sendOTP":
			controller.SendOTP()
		case "verifyOTP":
			controller.VerifyOTP()
		case "resetPassword":
			controller.ResetPassword()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func otpPurpose(raw string) services.OTPPurpose {
	if raw == "" {
		return services.OTPSignup
	}
	return services.OTPPurpose(raw)
}

// 1. Register 注册普通用户
// @Summary      用户注册
// @Description  注册普通用户账号，注册成功后通知管理员
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "注册信息"
// @Success      201  {object}  LoginData
// @Failure      400  {object}  ErrorResponse
// @Router       /auth/register [post]
func (c *AuthController) Register() {
	var req RegisterRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.Register(services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	token, err := jwtService.GenerateToken(user)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrUnknown, "生成令牌失败", nil)
		return
	}

	response.Created(c.Ctx, "注册成功", gin.H{"token": token, "user": user})
}

// 2. Login 处理用户登录
// @Summary      用户登录
// @Description  使用邮箱或用户名登录，返回JWT令牌和用户信息
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "登录参数"
// @Success      200  {object}  LoginData
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/login [post]
func (c *AuthController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	result, err := jwtService.Login(identifier, req.Password)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}

	history := c.Container.GetService("session_history").(services.InterfaceSessionHistoryService)
	if err := history.Record(result.User, models.SessionLogin, c.Ctx.ClientIP(), c.Ctx.Request.UserAgent()); err != nil {
		Logger.Warning("记录登录历史失败: %v", err)
	}

	response.SuccessWithMessage(c.Ctx, "登录成功", gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

// 3. Logout 注销当前令牌
// @Summary      退出登录
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SuccessResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/logout [post]
func (c *AuthController) Logout() {
	claims := middleware.GetClaims(c.Ctx)
	if claims == nil {
		response.Unauthorized(c.Ctx)
		return
	}

	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	if err := jwtService.Revoke(claims); err != nil {
		Logger.Warning("注销令牌失败: %v", err)
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	if user, err := userService.GetUserByID(claims.UserID); err == nil {
		history := c.Container.GetService("session_history").(services.InterfaceSessionHistoryService)
		if err := history.Record(user, models.SessionLogout, c.Ctx.ClientIP(), c.Ctx.Request.UserAgent()); err != nil {
			Logger.Warning("记录退出历史失败: %v", err)
		}
	}

	response.SuccessWithMessage(c.Ctx, "已退出登录", nil)
}

// 4. SendOTP 发送邮箱验证码
// @Summary      发送验证码
// @Description  purpose 为 signup 或 password_reset
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body OTPRequest true "邮箱与用途"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/otp/send [post]
func (c *AuthController) SendOTP() {
	var req OTPRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}
	purpose := otpPurpose(req.Purpose)

	// 重置密码时不暴露邮箱是否注册
	if purpose == services.OTPPasswordReset {
		userService := c.Container.GetService("user").(services.InterfaceUserService)
		if _, err := userService.GetUserByEmail(req.Email); errors.Is(err, services.ErrUserNotFound) {
			Logger.Info("重置密码验证码请求的邮箱未注册: %s", req.Email)
			response.SuccessWithMessage(c.Ctx, "验证码已发送", nil)
			return
		}
	}

	otpService := c.Container.GetService("otp").(services.InterfaceOTPService)
	if err := otpService.Send(req.Email, purpose); err != nil {
		failWithError(c.Ctx, err, code.ErrOTPSendFailed)
		return
	}
	response.SuccessWithMessage(c.Ctx, "验证码已发送", nil)
}

// 5. VerifyOTP 校验验证码；注册验证码通过后确认邮箱
// @Summary      校验验证码
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body OTPVerifyRequest true "验证码"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /auth/otp/verify [post]
func (c *AuthController) VerifyOTP() {
	var req OTPVerifyRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}
	purpose := otpPurpose(req.Purpose)

	otpService := c.Container.GetService("otp").(services.InterfaceOTPService)
	if err := otpService.Verify(req.Email, purpose, req.Code); err != nil {
		failWithError(c.Ctx, err, code.ErrOTPInvalid)
		return
	}

	if purpose == services.OTPSignup {
		userService := c.Container.GetService("user").(services.InterfaceUserService)
		if err := userService.ConfirmEmail(strings.TrimSpace(req.Email)); err != nil && !errors.Is(err, services.ErrUserNotFound) {
			failWithError(c.Ctx, err, code.ErrDatabase)
			return
		}
	}
	response.SuccessWithMessage(c.Ctx, "验证成功", gin.H{"verified": true})
}

// 6. ResetPassword 使用验证码重置密码
// @Summary      重置密码
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "重置参数"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /auth/password/reset [post]
func (c *AuthController) ResetPassword() {
	var req ResetPasswordRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	otpService := c.Container.GetService("otp").(services.InterfaceOTPService)
	if err := otpService.Verify(req.Email, services.OTPPasswordReset, req.Code); err != nil {
		failWithError(c.Ctx, err, code.ErrOTPInvalid)
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	if err := userService.ResetPassword(req.Email, req.NewPassword); err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "密码已重置", nil)
}
