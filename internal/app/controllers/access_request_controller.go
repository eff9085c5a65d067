package controllers

import (
	"fmt"
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

// InterfaceAccessRequestController 定义设备访问申请控制器接口
type InterfaceAccessRequestController interface {
	SubmitRequest()
	GetStatus()
	ListRequests()
	GetRequest()
	ApproveRequest()
	DeclineRequest()
}

// AccessRequestController 处理设备访问申请
type AccessRequestController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAccessRequestController 创建一个新的访问申请控制器
func NewAccessRequestController(ctx *gin.Context, container *container.ServiceContainer) *AccessRequestController {
	return &AccessRequestController{
		Ctx:       ctx,
		Container: container,
	}
}

// SubmitAccessRequest 提交访问申请请求，fromUser/fromUserId 必须与令牌一致
type SubmitAccessRequest struct {
	FromUser   string `json:"fromUser" example:"alice"`
	FromUserID *uint  `json:"fromUserId" example:"3"`
	DeviceID   string `json:"deviceId" example:"12345"`
}

// DecisionRequest 审批请求，userId 为申请人
type DecisionRequest struct {
	UserID uint `json:"userId" binding:"required" example:"3"`
}

// HandleAccessRequestFunc 返回一个处理访问申请的Gin处理函数
func HandleAccessRequestFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAccessRequestController(ctx, container)

		switch method {
		case "submitRequest":
			controller.SubmitRequest()
		case "getStatus":
			controller.GetStatus()
		case "listRequests":
			controller.ListRequests()
		case "getRequest":
			controller.GetRequest()
		case "approveRequest":
			controller.ApproveRequest()
		case "declineRequest":
			controller.DeclineRequest()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. SubmitRequest 提交设备访问申请
// @Summary      提交设备访问申请
// @Description  为当前用户创建一个待审批的访问申请，发给设备所属管理员；不改变用户的验证状态
// @Tags         AccessRequest
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SubmitAccessRequest true "申请信息"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /access-requests [post]
func (c *AccessRequestController) SubmitRequest() {
	var req SubmitAccessRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		response.Fail(c.Ctx, code.ErrDeviceIDRequired, nil)
		return
	}

	userID := middleware.GetUserID(c.Ctx)
	if req.FromUserID != nil && *req.FromUserID != userID {
		response.Fail(c.Ctx, code.ErrUserMismatch, nil)
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.GetUserByID(userID)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	if req.FromUser != "" && req.FromUser != user.Username && !strings.EqualFold(req.FromUser, user.Email) {
		response.Fail(c.Ctx, code.ErrUserMismatch, nil)
		return
	}

	accessService := c.Container.GetService("access").(services.InterfaceAccessService)
	request, err := accessService.SubmitRequest(services.SubmitInput{UserID: userID, DeviceID: req.DeviceID})
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}

	// 返回最新的用户记录与令牌，客户端用它们覆盖本地状态
	payload := gin.H{"request": request, "user": user, "state": models.AdmissionPending}
	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)
	if token, err := jwtService.GenerateToken(user); err == nil {
		payload["token"] = token
	} else {
		Logger.Warning("为用户%d生成令牌失败: %v", userID, err)
	}
	response.Created(c.Ctx, "访问申请已提交，请等待管理员审批", payload)
}

// 2. GetStatus 当前用户的准入状态
// @Summary      访问申请状态
// @Tags         AccessRequest
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /access-requests/status [get]
func (c *AccessRequestController) GetStatus() {
	accessService := c.Container.GetService("access").(services.InterfaceAccessService)
	state, latest, err := accessService.Status(middleware.GetUserID(c.Ctx))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{
		"state":           state,
		"request":         latest,
		"showAccessModal": state.ShowAccessModal(),
	})
}

// 3. ListRequests 管理员查看访问申请
// @Summary      访问申请列表
// @Tags         AccessRequest
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "pending/approved/declined"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/access-requests [get]
func (c *AccessRequestController) ListRequests() {
	status := models.RequestStatus(c.Ctx.Query("status"))

	accessService := c.Container.GetService("access").(services.InterfaceAccessService)
	list, err := accessService.ListRequests(middleware.GetScope(c.Ctx), status)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"requests": list, "total": len(list)})
}

// 4. GetRequest 查看单个访问申请
// @Summary      访问申请详情
// @Tags         AccessRequest
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "申请ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/access-requests/{id} [get]
func (c *AccessRequestController) GetRequest() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}

	accessService := c.Container.GetService("access").(services.InterfaceAccessService)
	request, err := accessService.GetRequest(middleware.GetScope(c.Ctx), id)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"request": request})
}

// 5. ApproveRequest 批准访问申请
// @Summary      批准访问申请
// @Description  申请必须处于待审批状态；在同一事务中设置用户 isVerified=true 与 deviceId，并通知用户。已处理的申请返回 409
// @Tags         AccessRequest
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "申请ID"
// @Param        request body DecisionRequest true "申请人"
// @Success      200  {object}  SuccessResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/access-requests/{id}/approve [put]
func (c *AccessRequestController) ApproveRequest() {
	c.decide(models.RequestApproved)
}

// 6. DeclineRequest 拒绝访问申请
// @Summary      拒绝访问申请
// @Description  用户的验证状态不变，可以重新提交申请
// @Tags         AccessRequest
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "申请ID"
// @Param        request body DecisionRequest true "申请人"
// @Success      200  {object}  SuccessResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/access-requests/{id}/decline [put]
func (c *AccessRequestController) DeclineRequest() {
	c.decide(models.RequestDeclined)
}

func (c *AccessRequestController) decide(status models.RequestStatus) {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: userId 不能为空", nil)
		return
	}

	accessService := c.Container.GetService("access").(services.InterfaceAccessService)
	scope := middleware.GetScope(c.Ctx)

	var (
		result *services.DecisionResult
		err    error
	)
	if status == models.RequestApproved {
		result, err = accessService.Approve(scope, id, req.UserID)
	} else {
		result, err = accessService.Decline(scope, id, req.UserID)
	}
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}

	message := fmt.Sprintf("Access request %s", status)
	response.SuccessWithMessage(c.Ctx, message, gin.H{
		"request": result.Request,
		"user":    result.User,
	})
}
