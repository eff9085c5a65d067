package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:          "成功",
	ErrUnknown:          "未知错误",
	ErrBind:             "请求参数绑定错误",
	ErrValidation:       "请求参数验证错误",
	ErrTokenInvalid:     "无效的认证令牌",
	ErrTooManyRequests:  "请求频率过高，请稍后再试",
	ErrPermissionDenied: "权限不足",

	// 用户相关错误码
	ErrUserNotFound:          "用户不存在",
	ErrUserAlreadyExist:      "用户已存在",
	ErrUserPasswordIncorrect: "用户名或密码错误",
	ErrUserMismatch:          "请求用户与当前登录用户不一致",

	// 设备相关错误码
	ErrDeviceNotFound:        "设备不存在",
	ErrDeviceAlreadyExist:    "设备已存在",
	ErrDeviceIDRequired:      "请输入有效的设备ID",
	ErrEstablishmentNotFound: "机构不存在",

	// 数据库相关错误码
	ErrDatabase:       "数据库错误",
	ErrRecordNotFound: "记录不存在",

	// 访问申请相关错误码
	ErrAccessRequestNotFound:   "访问申请不存在",
	ErrAccessRequestNotPending: "访问申请已处理，不能重复操作",
	ErrAccessRequestDuplicate:  "该设备已有待审批的访问申请",
	ErrAccessAlreadyGranted:    "已获得设备访问权限，无需重复申请",

	// 通知相关错误码
	ErrNotificationNotFound:    "通知不存在",
	ErrNotificationTypeInvalid: "通知类型无效",

	// 验证码相关错误码
	ErrOTPInvalid:     "验证码错误或已过期",
	ErrOTPSendFailed:  "验证码发送失败",
	ErrOTPUnavailable: "验证码服务不可用",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:          StatusOK,
	ErrUnknown:          StatusInternalServerError,
	ErrBind:             StatusBadRequest,
	ErrValidation:       StatusBadRequest,
	ErrTokenInvalid:     StatusUnauthorized,
	ErrTooManyRequests:  StatusTooManyRequests,
	ErrPermissionDenied: StatusForbidden,

	// 用户相关错误码
	ErrUserNotFound:          StatusNotFound,
	ErrUserAlreadyExist:      StatusBadRequest,
	ErrUserPasswordIncorrect: StatusUnauthorized,
	ErrUserMismatch:          StatusForbidden,

	// 设备相关错误码
	ErrDeviceNotFound:        StatusNotFound,
	ErrDeviceAlreadyExist:    StatusBadRequest,
	ErrDeviceIDRequired:      StatusBadRequest,
	ErrEstablishmentNotFound: StatusNotFound,

	// 数据库相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,

	// 访问申请相关错误码
	ErrAccessRequestNotFound:   StatusNotFound,
	ErrAccessRequestNotPending: StatusConflict,
	ErrAccessRequestDuplicate:  StatusConflict,
	ErrAccessAlreadyGranted:    StatusConflict,

	// 通知相关错误码
	ErrNotificationNotFound:    StatusNotFound,
	ErrNotificationTypeInvalid: StatusBadRequest,

	// 验证码相关错误码
	ErrOTPInvalid:     StatusBadRequest,
	ErrOTPSendFailed:  StatusInternalServerError,
	ErrOTPUnavailable: StatusInternalServerError,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "未知错误"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
