package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aquasense-http-service/internal/error/code"
)

// Response 定义统一的响应格式，业务字段平铺在顶层
type Response struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func build(success bool, errorCode int, message string, payload gin.H) gin.H {
	body := gin.H{}
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	body["code"] = errorCode
	body["message"] = message
	return body
}

// Success 成功响应
func Success(c *gin.Context, payload gin.H) {
	c.JSON(http.StatusOK, build(true, code.ErrSuccess, code.GetMessage(code.ErrSuccess), payload))
}

// SuccessWithMessage 成功响应（自定义消息）
func SuccessWithMessage(c *gin.Context, message string, payload gin.H) {
	c.JSON(http.StatusOK, build(true, code.ErrSuccess, message, payload))
}

// Created 创建成功响应
func Created(c *gin.Context, message string, payload gin.H) {
	c.JSON(http.StatusCreated, build(true, code.ErrSuccess, message, payload))
}

// Fail 失败响应
func Fail(c *gin.Context, errorCode int, payload gin.H) {
	c.JSON(code.GetStatus(errorCode), build(false, errorCode, code.GetMessage(errorCode), payload))
}

// FailWithMessage 失败响应（自定义消息）
func FailWithMessage(c *gin.Context, errorCode int, message string, payload gin.H) {
	c.JSON(code.GetStatus(errorCode), build(false, errorCode, message, payload))
}

// AbortWithCode 失败响应并中止后续处理，供中间件使用
func AbortWithCode(c *gin.Context, errorCode int, message string) {
	if message == "" {
		message = code.GetMessage(errorCode)
	}
	c.AbortWithStatusJSON(code.GetStatus(errorCode), build(false, errorCode, message, nil))
}

// ParamError 参数错误响应
func ParamError(c *gin.Context, message string) {
	FailWithMessage(c, code.ErrValidation, message, nil)
}

// ServerError 服务器错误响应
func ServerError(c *gin.Context) {
	Fail(c, code.ErrUnknown, nil)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "资源不存在"
	}
	FailWithMessage(c, code.ErrRecordNotFound, message, nil)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context) {
	Fail(c, code.ErrTokenInvalid, nil)
}
