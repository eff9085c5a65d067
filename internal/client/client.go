// Package client 访问 Aquasense HTTP API 的客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"aquasense-http-service/internal/domain/models"
)

const maxResponseSize = 4 << 20

// Feed 通知来源，管理员与普通用户使用不同的接口
type Feed string

const (
	FeedAdmin Feed = "/admin/notifications"
	FeedUser  Feed = "/notifications"
)

// Client 调用 /api 下的接口，baseURL 形如 http://localhost:8080/api
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 使用指定的 http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithToken 使用已有的登录令牌
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New 创建客户端
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token 当前令牌
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken 替换当前令牌
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type envelope struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// do 发送请求并把响应解码到 out；所有失败都返回 *Error
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (string, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", &Error{Kind: KindInvalidInput, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", &Error{Kind: KindInvalidInput, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Message: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "read response", Err: err}
	}

	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return "", &Error{Kind: KindServerRejected, Status: resp.StatusCode, Message: "decode response", Err: err}
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	case resp.StatusCode >= http.StatusBadRequest || !env.Success:
		return "", &Error{Kind: KindServerRejected, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return "", &Error{Kind: KindServerRejected, Status: resp.StatusCode, Message: "decode " + path, Err: err}
		}
	}
	return env.Message, nil
}

// AuthResult 登录或注册的结果
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login 使用邮箱或用户名登录，成功后保存令牌
func (c *Client) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return nil, invalidInput("identifier and password are required")
	}
	var out AuthResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"identifier": strings.TrimSpace(identifier),
		"password":   password,
	}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Register 注册普通用户，成功后保存令牌
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	var out AuthResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Logout 注销令牌；无论服务端是否成功，本地令牌都会清除
func (c *Client) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

// Me 获取服务端保存的当前用户
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/user/me", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &Error{Kind: KindServerRejected, Status: http.StatusOK, Message: "response has no user"}
	}
	return out.User, nil
}

// AccessRequestInput 提交访问申请的参数；FromUser/FromUserID 为空时由服务端根据令牌确定
type AccessRequestInput struct {
	FromUser   string
	FromUserID uint
	DeviceID   string
}

// SubmitResult 提交访问申请的结果
type SubmitResult struct {
	Message string                `json:"message"`
	State   models.AdmissionState `json:"state"`
	Request *models.Notification  `json:"request"`
	User    *User                 `json:"user"`
	Token   string                `json:"token"`
}

// SubmitAccessRequest 提交设备访问申请。设备ID去掉空白后为空时直接返回 InvalidInput，不发送请求
func (c *Client) SubmitAccessRequest(ctx context.Context, input AccessRequestInput) (*SubmitResult, error) {
	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" {
		return nil, invalidInput("please enter a valid device ID")
	}

	body := map[string]interface{}{"deviceId": deviceID}
	if input.FromUser != "" {
		body["fromUser"] = input.FromUser
	}
	if input.FromUserID != 0 {
		body["fromUserId"] = input.FromUserID
	}

	var out SubmitResult
	message, err := c.do(ctx, http.MethodPost, "/access-requests", body, &out)
	if err != nil {
		return nil, err
	}
	out.Message = message
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return &out, nil
}

// AccessStatus 当前用户的准入状态
type AccessStatus struct {
	State           models.AdmissionState `json:"state"`
	Request         *models.Notification  `json:"request"`
	ShowAccessModal bool                  `json:"showAccessModal"`
}

// AccessStatus 查询当前用户的准入状态
func (c *Client) AccessStatus(ctx context.Context) (*AccessStatus, error) {
	var out AccessStatus
	if _, err := c.do(ctx, http.MethodGet, "/access-requests/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Decision 管理员审批结果
type Decision struct {
	Message string               `json:"message"`
	Request *models.Notification `json:"request"`
	User    *User                `json:"user"`
}

// Approve 批准访问申请
func (c *Client) Approve(ctx context.Context, requestID, userID uint) (*Decision, error) {
	return c.decide(ctx, requestID, userID, "approve")
}

// Decline 拒绝访问申请
func (c *Client) Decline(ctx context.Context, requestID, userID uint) (*Decision, error) {
	return c.decide(ctx, requestID, userID, "decline")
}

func (c *Client) decide(ctx context.Context, requestID, userID uint, action string) (*Decision, error) {
	if requestID == 0 || userID == 0 {
		return nil, invalidInput("request id and user id are required")
	}
	var out Decision
	path := fmt.Sprintf("/admin/access-requests/%d/%s", requestID, action)
	message, err := c.do(ctx, http.MethodPut, path, map[string]uint{"userId": userID}, &out)
	if err != nil {
		return nil, err
	}
	out.Message = message
	return &out, nil
}

// Notifications 按过滤条件获取通知
func (c *Client) Notifications(ctx context.Context, feed Feed, filter string) ([]models.Notification, error) {
	path := string(feed)
	if filter != "" {
		path += "?" + url.Values{"filter": {filter}}.Encode()
	}
	var out struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Notifications == nil {
		out.Notifications = []models.Notification{}
	}
	return out.Notifications, nil
}

// AdminNotifications 管理员通知列表
func (c *Client) AdminNotifications(ctx context.Context, filter string) ([]models.Notification, error) {
	return c.Notifications(ctx, FeedAdmin, filter)
}

// MarkRead 标记通知为已读
func (c *Client) MarkRead(ctx context.Context, feed Feed, ids ...uint) error {
	if len(ids) == 0 {
		return invalidInput("no notification ids")
	}
	_, err := c.do(ctx, http.MethodPost, string(feed)+"/mark-read", map[string][]uint{"ids": ids}, nil)
	return err
}

// MarkAllRead 标记全部通知为已读
func (c *Client) MarkAllRead(ctx context.Context, feed Feed) error {
	_, err := c.do(ctx, http.MethodPost, string(feed)+"/mark-all-read", nil, nil)
	return err
}

// DeleteNotification 删除一条通知
func (c *Client) DeleteNotification(ctx context.Context, feed Feed, id uint) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", feed, id), nil, nil)
	return err
}

// DeleteAllNotifications 清空管理员通知
func (c *Client) DeleteAllNotifications(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, string(FeedAdmin)+"/delete-all", nil, nil)
	return err
}
