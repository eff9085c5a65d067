package controllers

import (
	"strings"

	"aquasense-http-service/internal/app/middleware"
	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceNotificationController 定义通知控制器接口
type InterfaceNotificationController interface {
	GetNotifications()
	GetUnreadCount()
	CreateNotification()
	MarkRead()
	MarkAllRead()
	DeleteNotification()
	DeleteAllNotifications()
}

// NotificationController 处理通知相关请求，可见范围由当前登录用户决定
type NotificationController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewNotificationController 创建一个新的通知控制器
func NewNotificationController(ctx *gin.Context, container *container.ServiceContainer) *NotificationController {
	return &NotificationController{
		Ctx:       ctx,
		Container: container,
	}
}

// MarkReadRequest 标记已读请求
type MarkReadRequest struct {
	IDs []uint `json:"ids" example:"1,2,3"`
	ID  uint   `json:"id" example:"1"`
}

// CreateNotificationRequest 管理员创建通知请求，userId 为空时发给管理员
type CreateNotificationRequest struct {
	Type     string  `json:"type" binding:"required" example:"schedule"`
	Message  string  `json:"message" binding:"required" example:"Filter maintenance on Friday"`
	UserID   *uint   `json:"userId" example:"3"`
	DeviceID *string `json:"deviceId" example:"12345"`
}

// HandleNotificationFunc 返回一个处理通知请求的Gin处理函数
func HandleNotificationFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewNotificationController(ctx, container)

		switch method {
		case "getNotifications":
			controller.GetNotifications()
		case "getUnreadCount":
			controller.GetUnreadCount()
		case "createNotification":
			controller.CreateNotification()
		case "markRead":
			controller.MarkRead()
		case "markAllRead":
			controller.MarkAllRead()
		case "deleteNotification":
			controller.DeleteNotification()
		case "deleteAllNotifications":
			controller.DeleteAllNotifications()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *NotificationController) service() services.InterfaceNotificationService {
	return c.Container.GetService("notification").(services.InterfaceNotificationService)
}

// 1. GetNotifications 获取通知列表
// @Summary      通知列表
// @Description  filter 可选 all、unread、pending 或通知类型 (sensor/request/new_user/schedule/success/warning/error/info)
// @Tags         Notification
// @Produce      json
// @Security     BearerAuth
// @Param        filter query string false "过滤条件"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/notifications [get]
// @Router       /notifications [get]
func (c *NotificationController) GetNotifications() {
	scope := middleware.GetScope(c.Ctx)
	list, err := c.service().List(scope, c.Ctx.Query("filter"))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}

	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	response.Success(c.Ctx, gin.H{
		"notifications": list,
		"total":         len(list),
		"unread":        unread,
	})
}

// 2. GetUnreadCount 未读通知数
// @Summary      未读通知数
// @Tags         Notification
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/unread-count [get]
func (c *NotificationController) GetUnreadCount() {
	count, err := c.service().UnreadCount(middleware.GetScope(c.Ctx))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"count": count})
}

// 3. CreateNotification 管理员创建通知
// @Summary      创建通知
// @Description  管理员发布计划或一般通知；指定 userId 时发给该用户
// @Tags         Notification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateNotificationRequest true "通知内容"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/notifications [post]
func (c *NotificationController) CreateNotification() {
	var req CreateNotificationRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	nType := models.NotificationType(strings.TrimSpace(req.Type))
	// 访问申请只能由用户提交
	if nType == models.NotificationRequest {
		response.Fail(c.Ctx, code.ErrNotificationTypeInvalid, nil)
		return
	}

	sender := middleware.GetUserID(c.Ctx)
	n := &models.Notification{
		Type:       nType,
		Message:    strings.TrimSpace(req.Message),
		Audience:   models.AudienceAdmin,
		FromUserID: &sender,
		DeviceID:   req.DeviceID,
	}
	if req.UserID != nil {
		n.Audience = models.AudienceUser
		n.RecipientID = req.UserID
	}

	if err := c.service().Create(n); err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Created(c.Ctx, "通知已创建", gin.H{"notification": n})
}

// 4. MarkRead 标记通知为已读
// @Summary      标记已读
// @Tags         Notification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body MarkReadRequest true "通知ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/notifications/mark-read [post]
// @Router       /notifications/mark-read [post]
func (c *NotificationController) MarkRead() {
	var req MarkReadRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}
	ids := req.IDs
	if req.ID != 0 {
		ids = append(ids, req.ID)
	}
	if len(ids) == 0 {
		response.ParamError(c.Ctx, "ids 不能为空")
		return
	}

	updated, err := c.service().MarkRead(middleware.GetScope(c.Ctx), ids)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"updated": updated})
}

// 5. MarkAllRead 标记全部通知为已读
// @Summary      全部已读
// @Tags         Notification
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/notifications/mark-all-read [post]
// @Router       /notifications/mark-all-read [post]
func (c *NotificationController) MarkAllRead() {
	updated, err := c.service().MarkAllRead(middleware.GetScope(c.Ctx))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"updated": updated})
}

// 6. DeleteNotification 删除一条通知
// @Summary      删除通知
// @Tags         Notification
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "通知ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/notifications/{id} [delete]
// @Router       /notifications/{id} [delete]
func (c *NotificationController) DeleteNotification() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}
	if err := c.service().Delete(middleware.GetScope(c.Ctx), id); err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "通知已删除", nil)
}

// 7. DeleteAllNotifications 删除全部可见通知
// @Summary      清空通知
// @Tags         Notification
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/notifications/delete-all [delete]
func (c *NotificationController) DeleteAllNotifications() {
	deleted, err := c.service().DeleteAll(middleware.GetScope(c.Ctx))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "通知已清空", gin.H{"deleted": deleted})
}
