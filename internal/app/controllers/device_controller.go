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

// InterfaceDeviceController 定义设备控制器接口
type InterfaceDeviceController interface {
	GetDevices()
	CreateDevice()
	UpdateDevice()
	DeleteDevice()
	GetAssignedEstablishments()
	GetEstablishment()
	CreateEstablishment()
	GetTotalUsersByDevice()
	GetTotalEstablishments()
}

// DeviceController 处理设备与机构相关的请求
type DeviceController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDeviceController 创建一个新的设备控制器
func NewDeviceController(ctx *gin.Context, container *container.ServiceContainer) *DeviceController {
	return &DeviceController{
		Ctx:       ctx,
		Container: container,
	}
}

// DeviceRequest 创建或更新设备请求
type DeviceRequest struct {
	DeviceID        string  `json:"deviceId" example:"12345"`
	Name            *string `json:"name" example:"Tank A"`
	Location        *string `json:"location" example:"Building 2 roof"`
	EstablishmentID *uint   `json:"establishmentId" example:"1"`
	AdminID         *uint   `json:"adminId" example:"2"`
}

// EstablishmentRequest 创建机构请求
type EstablishmentRequest struct {
	Name     string `json:"name" binding:"required" example:"North Water Plant"`
	Location string `json:"location" example:"Cebu City"`
	AdminID  *uint  `json:"adminId" example:"2"`
}

// HandleDeviceFunc 返回一个处理设备请求的Gin处理函数
func HandleDeviceFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDeviceController(ctx, container)

		switch method {
		case "getDevices":
			controller.GetDevices()
		case "createDevice":
			controller.CreateDevice()
		case "updateDevice":
			controller.UpdateDevice()
		case "deleteDevice":
			controller.DeleteDevice()
		case "getAssignedEstablishments":
			controller.GetAssignedEstablishments()
		case "getEstablishment":
			controller.GetEstablishment()
		case "createEstablishment":
			controller.CreateEstablishment()
		case "getTotalUsersByDevice":
			controller.GetTotalUsersByDevice()
		case "getTotalEstablishments":
			controller.GetTotalEstablishments()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

func (c *DeviceController) service() services.InterfaceDeviceService {
	return c.Container.GetService("device").(services.InterfaceDeviceService)
}

// ownedDevice 获取设备并检查当前管理员是否负责该设备
func (c *DeviceController) ownedDevice(deviceID string) (*models.Device, bool) {
	device, err := c.service().GetDeviceByDeviceID(deviceID)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return nil, false
	}
	scope := middleware.GetScope(c.Ctx)
	if scope.Role != models.RoleSuperAdmin && (device.AdminID == nil || *device.AdminID != scope.UserID) {
		response.Fail(c.Ctx, code.ErrPermissionDenied, nil)
		return nil, false
	}
	return device, true
}

// 1. GetDevices 获取设备列表
// @Summary      设备列表
// @Description  管理员只能看到自己负责的设备，超级管理员看到全部
// @Tags         Device
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/devices [get]
func (c *DeviceController) GetDevices() {
	devices, err := c.service().GetAllDevices(middleware.GetScope(c.Ctx))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"devices": devices, "total": len(devices)})
}

// 2. CreateDevice 登记新设备
// @Summary      创建设备
// @Description  未指定管理员时，普通管理员创建的设备归自己负责
// @Tags         Device
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DeviceRequest true "设备信息"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/devices [post]
func (c *DeviceController) CreateDevice() {
	var req DeviceRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	scope := middleware.GetScope(c.Ctx)
	adminID := req.AdminID
	if scope.Role != models.RoleSuperAdmin {
		// 普通管理员只能登记自己负责的设备
		adminID = &scope.UserID
	}

	device, err := c.service().CreateDevice(services.DeviceInput{
		DeviceID:        req.DeviceID,
		Name:            req.Name,
		Location:        req.Location,
		EstablishmentID: req.EstablishmentID,
		AdminID:         adminID,
	})
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Created(c.Ctx, "设备已创建", gin.H{"device": device})
}

// 3. UpdateDevice 更新设备信息
// @Summary      更新设备
// @Tags         Device
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        deviceId path string true "设备编号"
// @Param        request body DeviceRequest true "设备信息"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/devices/{deviceId} [put]
func (c *DeviceController) UpdateDevice() {
	var req DeviceRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}
	device, ok := c.ownedDevice(c.Ctx.Param("deviceId"))
	if !ok {
		return
	}

	input := services.DeviceInput{
		Name:            req.Name,
		Location:        req.Location,
		EstablishmentID: req.EstablishmentID,
	}
	if middleware.GetRole(c.Ctx) == models.RoleSuperAdmin {
		input.AdminID = req.AdminID
	}

	updated, err := c.service().UpdateDevice(device.DeviceID, input)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "设备已更新", gin.H{"device": updated})
}

// 4. DeleteDevice 删除设备，同时撤销用户的访问权限
// @Summary      删除设备
// @Tags         Device
// @Produce      json
// @Security     BearerAuth
// @Param        deviceId path string true "设备编号"
// @Success      200  {object}  SuccessResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/devices/{deviceId} [delete]
func (c *DeviceController) DeleteDevice() {
	device, ok := c.ownedDevice(c.Ctx.Param("deviceId"))
	if !ok {
		return
	}
	if err := c.service().DeleteDevice(device.DeviceID); err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.SuccessWithMessage(c.Ctx, "设备已删除", nil)
}

// 5. GetAssignedEstablishments 当前管理员负责的机构
// @Summary      负责的机构
// @Tags         Establishment
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /admin/assigned-establishments [get]
func (c *DeviceController) GetAssignedEstablishments() {
	list, err := c.service().AssignedEstablishments(middleware.GetScope(c.Ctx))
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"establishments": list})
}

// 6. GetEstablishment 机构详情
// @Summary      机构详情
// @Tags         Establishment
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "机构ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /establishments/{id} [get]
func (c *DeviceController) GetEstablishment() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}
	est, err := c.service().GetEstablishment(id)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"establishment": est})
}

// 7. CreateEstablishment 创建机构
// @Summary      创建机构
// @Tags         Establishment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body EstablishmentRequest true "机构信息"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /admin/establishments [post]
func (c *DeviceController) CreateEstablishment() {
	var req EstablishmentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	scope := middleware.GetScope(c.Ctx)
	est := &models.Establishment{
		Name:     req.Name,
		Location: strings.TrimSpace(req.Location),
		AdminID:  req.AdminID,
	}
	if scope.Role != models.RoleSuperAdmin || est.AdminID == nil {
		est.AdminID = &scope.UserID
	}

	if err := c.service().CreateEstablishment(est); err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Created(c.Ctx, "机构已创建", gin.H{"establishment": est})
}

// 8. GetTotalUsersByDevice 已获准访问设备的用户数
// @Summary      设备用户数
// @Tags         Device
// @Produce      json
// @Security     BearerAuth
// @Param        deviceId path string true "设备编号"
// @Success      200  {object}  map[string]interface{}
// @Router       /total-users-by-device/{deviceId} [get]
func (c *DeviceController) GetTotalUsersByDevice() {
	deviceID := strings.TrimSpace(c.Ctx.Param("deviceId"))
	if deviceID == "" {
		response.Fail(c.Ctx, code.ErrDeviceIDRequired, nil)
		return
	}
	userService := c.Container.GetService("user").(services.InterfaceUserService)
	count, err := userService.CountUsersByDevice(deviceID)
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"deviceId": deviceID, "totalUsers": count})
}

// 9. GetTotalEstablishments 机构总数
// @Summary      机构总数
// @Tags         Establishment
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /total-establishments [get]
func (c *DeviceController) GetTotalEstablishments() {
	count, err := c.service().CountEstablishments()
	if err != nil {
		failWithError(c.Ctx, err, code.ErrDatabase)
		return
	}
	response.Success(c.Ctx, gin.H{"totalEstablishments": count})
}
