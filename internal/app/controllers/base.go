package controllers

import (
	"errors"
	"strconv"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/error/response"
	Logger "aquasense-http-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 表示错误响应
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Code    int    `json:"code" example:"106001"`
	Message string `json:"message" example:"访问申请已处理，不能重复操作"`
}

// SuccessResponse 表示只有结果消息的成功响应
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Code    int    `json:"code" example:"100000"`
	Message string `json:"message" example:"成功"`
}

// serviceErrorCodes 业务错误到错误码的映射，按顺序匹配
var serviceErrorCodes = []struct {
	err  error
	code int
}{
	{services.ErrUserNotFound, code.ErrUserNotFound},
	{services.ErrUserAlreadyExist, code.ErrUserAlreadyExist},
	{services.ErrInvalidCredentials, code.ErrUserPasswordIncorrect},
	{services.ErrUserMismatch, code.ErrUserMismatch},
	{services.ErrPermissionDenied, code.ErrPermissionDenied},
	{services.ErrValidation, code.ErrValidation},
	{services.ErrDeviceIDRequired, code.ErrDeviceIDRequired},
	{services.ErrDeviceNotFound, code.ErrDeviceNotFound},
	{services.ErrDeviceAlreadyExist, code.ErrDeviceAlreadyExist},
	{services.ErrEstablishmentNotFound, code.ErrEstablishmentNotFound},
	{services.ErrAccessRequestNotFound, code.ErrAccessRequestNotFound},
	{services.ErrNotPending, code.ErrAccessRequestNotPending},
	{services.ErrDuplicatePending, code.ErrAccessRequestDuplicate},
	{services.ErrAlreadyVerified, code.ErrAccessAlreadyGranted},
	{services.ErrNotificationNotFound, code.ErrNotificationNotFound},
	{services.ErrNotificationTypeInvalid, code.ErrNotificationTypeInvalid},
	{services.ErrOTPInvalid, code.ErrOTPInvalid},
	{services.ErrOTPUnavailable, code.ErrOTPUnavailable},
	{services.ErrRedisUnavailable, code.ErrOTPUnavailable},
	{services.ErrTokenRevoked, code.ErrTokenInvalid},
	{models.ErrInvalidFilter, code.ErrValidation},
	{models.ErrInvalidTransition, code.ErrAccessRequestNotPending},
}

// errorCode 返回业务错误对应的错误码，未知错误返回 0
func errorCode(err error) int {
	for _, m := range serviceErrorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return 0
}

// failWithError 输出业务错误；未知错误记日志并返回 fallback
func failWithError(c *gin.Context, err error, fallback int) {
	if errorCode := errorCode(err); errorCode != 0 {
		// 参数类错误带上具体原因
		if errorCode == code.ErrValidation {
			response.FailWithMessage(c, errorCode, err.Error(), nil)
			return
		}
		response.Fail(c, errorCode, nil)
		return
	}
	Logger.Error("%s %s 处理失败: %v", c.Request.Method, c.FullPath(), err)
	response.Fail(c, fallback, nil)
}

// parseUintParam 解析路径中的数字ID
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ParamError(c, "无效的"+name)
		return 0, false
	}
	return uint(id), true
}
