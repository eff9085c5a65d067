package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusCreated - 201: 已创建.
	StatusCreated = 201
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409: 状态冲突.
	StatusConflict = 409
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
	// ErrPermissionDenied - 403: 权限不足.
	ErrPermissionDenied
)

// 用户相关错误码 (101xxx).
const (
	// ErrUserNotFound - 404: 用户不存在.
	ErrUserNotFound int = iota + 101000
	// ErrUserAlreadyExist - 400: 用户已存在.
	ErrUserAlreadyExist
	// ErrUserPasswordIncorrect - 401: 用户密码错误.
	ErrUserPasswordIncorrect
	// ErrUserMismatch - 403: 请求中的用户与令牌不一致.
	ErrUserMismatch
)

// 设备相关错误码 (102xxx).
const (
	// ErrDeviceNotFound - 404: 设备不存在.
	ErrDeviceNotFound int = iota + 102000
	// ErrDeviceAlreadyExist - 400: 设备已存在.
	ErrDeviceAlreadyExist
	// ErrDeviceIDRequired - 400: 设备ID不能为空.
	ErrDeviceIDRequired
	// ErrEstablishmentNotFound - 404: 机构不存在.
	ErrEstablishmentNotFound
)

// 数据库相关错误码 (105xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)

// 访问申请相关错误码 (106xxx).
const (
	// ErrAccessRequestNotFound - 404: 访问申请不存在.
	ErrAccessRequestNotFound int = iota + 106000
	// ErrAccessRequestNotPending - 409: 访问申请已处理.
	ErrAccessRequestNotPending
	// ErrAccessRequestDuplicate - 409: 已存在待处理的访问申请.
	ErrAccessRequestDuplicate
	// ErrAccessAlreadyGranted - 409: 用户已获得设备访问权限.
	ErrAccessAlreadyGranted
)

// 通知相关错误码 (107xxx).
const (
	// ErrNotificationNotFound - 404: 通知不存在.
	ErrNotificationNotFound int = iota + 107000
	// ErrNotificationTypeInvalid - 400: 通知类型无效.
	ErrNotificationTypeInvalid
)

// 验证码相关错误码 (108xxx).
const (
	// ErrOTPInvalid - 400: 验证码错误或已过期.
	ErrOTPInvalid int = iota + 108000
	// ErrOTPSendFailed - 500: 验证码发送失败.
	ErrOTPSendFailed
	// ErrOTPUnavailable - 500: 验证码服务不可用.
	ErrOTPUnavailable
)
