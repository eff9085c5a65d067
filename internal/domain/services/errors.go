package services

import "errors"

// 业务错误，控制器通过 errors.Is 映射为错误码
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExist   = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email/username or password")
	ErrUserMismatch       = errors.New("user does not match the request")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrValidation         = errors.New("validation failed")

	ErrDeviceIDRequired      = errors.New("device id is required")
	ErrDeviceNotFound        = errors.New("device not found")
	ErrDeviceAlreadyExist    = errors.New("device already exists")
	ErrEstablishmentNotFound = errors.New("establishment not found")

	ErrAccessRequestNotFound = errors.New("access request not found")
	ErrNotPending            = errors.New("access request is no longer pending")
	ErrDuplicatePending      = errors.New("a pending request for this device already exists")
	ErrAlreadyVerified       = errors.New("user already has verified device access")

	ErrNotificationNotFound    = errors.New("notification not found")
	ErrNotificationTypeInvalid = errors.New("invalid notification type")

	ErrOTPInvalid       = errors.New("verification code is invalid or expired")
	ErrOTPUnavailable   = errors.New("verification code service unavailable")
	ErrRedisUnavailable = errors.New("redis is not configured")
	ErrTokenRevoked     = errors.New("token has been revoked")
)
