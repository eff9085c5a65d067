package reconcile

import (
	"context"
	"errors"
	"strings"

	"aquasense-http-service/internal/client"
	"aquasense-http-service/internal/client/localstore"
	"aquasense-http-service/internal/domain/models"
	Logger "aquasense-http-service/pkg/logger"
)

// AccessAPI 准入流程用到的接口
type AccessAPI interface {
	UserFetcher
	SubmitAccessRequest(ctx context.Context, input client.AccessRequestInput) (*client.SubmitResult, error)
	Logout(ctx context.Context) error
}

// WorkflowStore 准入流程使用的本地存储
type WorkflowStore interface {
	SessionStore
	ClearSession() error
}

// Workflow 客户端的设备准入流程：提交申请、等待审批、退出登录
type Workflow struct {
	api   AccessAPI
	store WorkflowStore
	loop  *Loop
}

// NewWorkflow 创建准入流程
func NewWorkflow(api AccessAPI, store WorkflowStore, opts Options) *Workflow {
	return &Workflow{
		api:   api,
		store: store,
		loop:  NewLoop(api, store, opts),
	}
}

// Loop 返回后台轮询任务
func (w *Workflow) Loop() *Loop {
	return w.loop
}

// 1 Submit 提交设备访问申请，成功后把会话原子地切换到 pending 并开始轮询
func (w *Workflow) Submit(ctx context.Context, deviceID string) (*client.SubmitResult, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, &client.Error{Kind: client.KindInvalidInput, Message: "please enter a valid device ID"}
	}

	sess, err := w.store.LoadSession()
	if err != nil {
		if errors.Is(err, localstore.ErrNoSession) {
			return nil, &client.Error{Kind: client.KindUnauthorized, Message: "not logged in"}
		}
		return nil, err
	}

	input := client.AccessRequestInput{DeviceID: deviceID}
	if sess.User != nil {
		input.FromUser = sess.User.Username
		input.FromUserID = sess.User.ID
	}
	result, err := w.api.SubmitAccessRequest(ctx, input)
	if err != nil {
		return nil, err
	}

	err = w.store.UpdateSession(func(s *localstore.Session) error {
		next, err := s.State.Next(models.EventSubmit)
		if err != nil {
			return err
		}
		s.State = next
		if result.User != nil {
			s.User = result.User
		}
		if result.Token != "" {
			s.Token = result.Token
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if err := w.loop.Start(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// 2 Resume 重新打开客户端时，会话仍为 pending 则继续轮询
func (w *Workflow) Resume(ctx context.Context) error {
	err := w.loop.Start(ctx)
	if errors.Is(err, ErrNotPending) || errors.Is(err, localstore.ErrNoSession) {
		return nil
	}
	return err
}

// 3 CloseModal 关闭申请窗口时停止轮询，会话保持 pending，下次 Resume 时继续
func (w *Workflow) CloseModal() {
	w.loop.Stop()
}

// 4 Logout 停止轮询，通知服务端注销令牌，清除本地会话
func (w *Workflow) Logout(ctx context.Context) error {
	w.loop.Stop()
	if err := w.api.Logout(ctx); err != nil {
		Logger.Warning("[Reconcile] 服务端注销失败: %v", err)
	}
	return w.store.ClearSession()
}

// State 当前准入状态，没有会话时为空
func (w *Workflow) State() models.AdmissionState {
	sess, err := w.store.LoadSession()
	if err != nil {
		return ""
	}
	return sess.State
}

// ShowAccessModal 是否需要显示设备申请窗口
func (w *Workflow) ShowAccessModal() bool {
	sess, err := w.store.LoadSession()
	if err != nil {
		return false
	}
	return sess.ShowAccessModal()
}
