package client

import (
	"errors"
	"fmt"
)

// Kind 客户端错误分类
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindUnauthorized   Kind = "unauthorized"
	KindNetwork        Kind = "network_error"
	KindServerRejected Kind = "server_rejected"
)

// ErrLegacyVerification 服务端返回的 isVerified 不是布尔值
var ErrLegacyVerification = errors.New("isVerified is not a boolean")

// Error 调用API失败时返回的错误；Code 为服务端错误码，网络错误时为0
type Error struct {
	Kind    Kind
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("%s: %s (status %d, code %d)", e.Kind, e.Message, e.Status, e.Code)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// CodeOf 返回服务端错误码，非服务端错误返回0
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func invalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}
