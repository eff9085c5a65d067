// Package reconcile 让客户端的本地会话与服务端的用户记录保持一致
package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"aquasense-http-service/internal/client"
	"aquasense-http-service/internal/client/localstore"
	"aquasense-http-service/internal/domain/models"
	Logger "aquasense-http-service/pkg/logger"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 4 * time.Second
)

// ErrNotPending 只有等待审批时才能启动轮询
var ErrNotPending = errors.New("access request is not pending")

// Outcome 单次轮询的结果
type Outcome int

const (
	// OutcomePending 服务端仍未验证
	OutcomePending Outcome = iota
	// OutcomeVerified 已验证，轮询结束
	OutcomeVerified
	// OutcomeFallback 请求失败，使用本地缓存的用户
	OutcomeFallback
	// OutcomeSkipped 上一次请求还未返回
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeVerified:
		return "verified"
	case OutcomeFallback:
		return "fallback"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

// UserFetcher 获取服务端的当前用户
type UserFetcher interface {
	Me(ctx context.Context) (*client.User, error)
}

// SessionStore 本地会话存储
type SessionStore interface {
	LoadSession() (*localstore.Session, error)
	UpdateSession(fn func(*localstore.Session) error) error
}

// Options 轮询参数
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// OnVerified 验证完成时调用一次
	OnVerified func(*client.User)
}

// Loop 固定间隔拉取 /api/user/me，服务端的记录覆盖本地记录，isVerified 为 true 时结束
type Loop struct {
	fetcher UserFetcher
	store   SessionStore
	opts    Options

	inFlight     atomic.Bool
	verified     atomic.Bool
	verifiedOnce sync.Once

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewLoop 创建轮询任务
func NewLoop(fetcher UserFetcher, store SessionStore, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Loop{fetcher: fetcher, store: store, opts: opts}
}

// 1 Start 会话处于 pending 时启动后台轮询；已经在运行时直接返回
func (l *Loop) Start(ctx context.Context) error {
	sess, err := l.store.LoadSession()
	if err != nil {
		return err
	}
	if sess.State != models.AdmissionPending {
		return ErrNotPending
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running() {
		return nil
	}
	l.verified.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go l.run(runCtx, cancel, done)
	Logger.Info("[Reconcile] 开始轮询，间隔 %s", l.opts.Interval)
	return nil
}

func (l *Loop) running() bool {
	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

func (l *Loop) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l.Tick(ctx) == OutcomeVerified {
				return
			}
		}
	}
}

// 2 Stop 停止轮询并等待后台任务退出
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// 3 Done 返回当前轮询结束时关闭的通道；没有运行时返回已关闭的通道
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.done
}

// Verified 是否已经确认验证完成
func (l *Loop) Verified() bool {
	return l.verified.Load()
}

// LastError 最近一次失败的原因，成功后清空
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Loop) setLastErr(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
}

// 4 Tick 执行一次轮询。同一时间只有一个请求在进行，验证完成后不再请求
func (l *Loop) Tick(ctx context.Context) Outcome {
	if l.verified.Load() {
		return OutcomeVerified
	}
	if !l.inFlight.CompareAndSwap(false, true) {
		return OutcomeSkipped
	}
	defer l.inFlight.Store(false)

	tickCtx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	user, err := l.fetcher.Me(tickCtx)
	cancel()
	if err != nil {
		l.setLastErr(err)
		return l.fallback(err)
	}
	l.setLastErr(nil)

	err = l.store.UpdateSession(func(sess *localstore.Session) error {
		sess.User = user
		if user.IsVerified {
			sess.State = models.AdmissionApproved
		}
		return nil
	})
	if err != nil {
		Logger.Error("[Reconcile] 保存用户失败: %v", err)
	}

	if !user.IsVerified {
		return OutcomePending
	}
	return l.complete(user)
}

// fallback 请求失败时按本地缓存的用户重新判断验证状态
func (l *Loop) fallback(fetchErr error) Outcome {
	cached, err := l.store.LoadSession()
	if err != nil || cached.User == nil {
		Logger.Warning("[Reconcile] 获取用户失败: %v", fetchErr)
		return OutcomeFallback
	}
	Logger.Warning("[Reconcile] 获取用户失败，使用本地缓存的用户%d: %v", cached.User.ID, fetchErr)
	if !cached.User.IsVerified {
		return OutcomeFallback
	}

	err = l.store.UpdateSession(func(sess *localstore.Session) error {
		sess.State = models.AdmissionApproved
		return nil
	})
	if err != nil {
		Logger.Error("[Reconcile] 保存准入状态失败: %v", err)
	}
	return l.complete(cached.User)
}

func (l *Loop) complete(user *client.User) Outcome {
	l.verified.Store(true)
	l.verifiedOnce.Do(func() {
		Logger.Info("[Reconcile] 用户%d已获准访问设备%s", user.ID, user.DeviceIDValue())
		if l.opts.OnVerified != nil {
			l.opts.OnVerified(user)
		}
	})
	return OutcomeVerified
}

// 5 Refresh 手动检查审批状态，与定时轮询共用同一个并发保护
func (l *Loop) Refresh(ctx context.Context) Outcome {
	return l.Tick(ctx)
}
