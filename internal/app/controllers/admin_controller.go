package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceAdminController 定义管理员控制器接口
type InterfaceAdminController interface {
	GetUsers()
	CreateAdmin()
	GetSessionHistory()
	ExportSessionHistory()
	ClearUserSessionHistory()
}

// AdminController 管理员控制器
type AdminController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAdminController 创建一个新的管理员控制器
func NewAdminController(ctx *gin.Context, container *container.ServiceContainer) *AdminController {
	return &AdminController{
		Ctx:       ctx,
		Container: container,
	}
}

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required" example:"plant-admin"`
	Email    string `json:"email" binding:"required,email" example:"admin@example.com"`
	Password string `json:"password" binding:"required" example:"Admin@123"`
	Role     string `json:"role" example:"Admin"`
}

// HandleAdminFunc 返回一个处理管理员请求的Gin处理函数
func HandleAdminFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAdminController(ctx, container)

		switch method {
		case "getUsers":
			controller.GetUsers()
		case "createAdmin":
			controller.CreateAdmin()
		case "getSessionHistory":
			controller.GetSessionHistory()
		case "exportSessionHistory":
			controller.ExportSessionHistory()
		case "clearUserSessionHistory":
			controller.ClearUserSessionHistory()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. GetUsers 获取用户列表
// @Summary      获取用户列表
// @Description  分页获取用户，支持按用户名、邮箱、设备编号搜索
// @Tags         Admin
// @Produce      json
// @Param        pageNum query int false "页码, 默认为1"
// @Param        pageSize query int false "每页条数, 默认为10"
// @Param        search query string false "搜索关键词"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  ErrorResponse
// @Router       /admin/users [get]
// @Security     BearerAuth
func (c *AdminController) GetUsers() {
	var q models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&q); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的分页参数", nil)
		return
	}
	q = q.Normalize()

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	users, total, err := userService.GetAllUsers(q)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}

	response.Success(c.Ctx, gin.H{
		"users":      users,
		"pagination": models.NewPaginationResult(total, q.PageNum, q.PageSize),
	})
}

// 2. CreateAdmin 超级管理员创建管理员账户
// @Summary      创建管理员
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body CreateAdminRequest true "管理员信息"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/users [post]
// @Security     BearerAuth
func (c *AdminController) CreateAdmin() {
	var req CreateAdminRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleAdmin
	}
	if !role.IsAdmin() {
		response.ParamError(c.Ctx, "role 只能是 Admin 或 Super Admin")
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.CreateUser(services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Created(c.Ctx, "管理员已创建", gin.H{"user": user})
}

// 3. GetSessionHistory 全部登录历史
// @Summary      登录历史
// @Tags         SessionHistory
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/session-history [get]
// @Security     BearerAuth
func (c *AdminController) GetSessionHistory() {
	history := c.Container.GetService("session_history").(services.InterfaceSessionHistoryService)
	list, err := history.ListAll()
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"history": list, "total": len(list)})
}

// 4. ExportSessionHistory 导出登录历史为Excel
// @Summary      导出登录历史
// @Tags         SessionHistory
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}  file
// @Failure      500  {object}  ErrorResponse
// @Router       /admin/session-history/export [get]
// @Security     BearerAuth
func (c *AdminController) ExportSessionHistory() {
	history := c.Container.GetService("session_history").(services.InterfaceSessionHistoryService)

	var buf bytes.Buffer
	if err := history.ExportXLSX(&buf); err != nil {
		failWithError(c.Ctx, err, code.ErrUnknown)
		return
	}

	filename := fmt.Sprintf("session-history-%s.xlsx", time.Now().Format("20060102"))
	c.Ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// 5. ClearUserSessionHistory 清除某个用户的登录历史
// @Summary      清除用户登录历史
// @Tags         SessionHistory
// @Produce      json
// @Param        id path int true "用户ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/session-history/users/{id} [delete]
// @Security     BearerAuth
func (c *AdminController) ClearUserSessionHistory() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}
	history := c.Container.GetService("session_history").(services.InterfaceSessionHistoryService)
	deleted, err := history.ClearUser(id)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "登录历史已清除", gin.H{"deleted": deleted})
}
