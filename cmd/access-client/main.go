// access-client 设备访问申请的命令行客户端
//
//	access-client [-server URL] [-store FILE] <command> [args]
//
// 命令: login <identifier> <password>, request <deviceId>, wait, status,
// notifications [filter], approve <id> <userId>, decline <id> <userId>, logout
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"aquasense-http-service/internal/client"
	"aquasense-http-service/internal/client/localstore"
	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/reconcile"
	Logger "aquasense-http-service/pkg/logger"
)

// 默认服务地址，可用 AQUASENSE_API_URL 环境变量或 -server 覆盖
var serverBaseURL = "http://localhost:8080/api"

type app struct {
	api   *client.Client
	store *localstore.Store
}

func main() {
	serverFlag := flag.String("server", "", "服务地址，例如 https://api.example.com/api")
	storeFlag := flag.String("store", "", "本地存储文件，默认 $AQUASENSE_STATE_DIR/client.db 或 ~/.aquasense/client.db")
	interval := flag.Duration("interval", reconcile.DefaultInterval, "wait 命令的轮询间隔")
	flag.Usage = usage
	flag.Parse()

	if env := os.Getenv("AQUASENSE_API_URL"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	storePath, err := resolveStorePath(*storeFlag)
	if err != nil {
		fail(err)
	}
	store, err := localstore.Open(storePath)
	if err != nil {
		fail(err)
	}
	defer store.Close()

	a := &app{store: store}
	token := ""
	if sess, err := store.LoadSession(); err == nil {
		token = sess.Token
	}
	a.api = client.New(serverBaseURL, client.WithToken(token))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	switch args[0] {
	case "login":
		err = a.login(ctx, args[1:])
	case "request":
		err = a.request(ctx, args[1:], *interval)
	case "wait":
		err = a.wait(ctx, *interval)
	case "status":
		err = a.status(ctx)
	case "notifications":
		err = a.notifications(ctx, args[1:])
	case "approve", "decline":
		err = a.decide(ctx, args[0], args[1:])
	case "logout":
		err = reconcile.NewWorkflow(a.api, a.store, reconcile.Options{}).Logout(ctx)
		if err == nil {
			fmt.Println("已退出登录")
		}
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `用法: access-client [选项] <命令> [参数]

命令:
  login <邮箱或用户名> <密码>   登录并保存会话
  request <设备ID>              提交设备访问申请并等待审批
  wait                          继续等待审批结果
  status                        显示当前账号与准入状态
  notifications [过滤条件]      all、unread、pending 或通知类型
  approve <申请ID> <用户ID>     批准访问申请（管理员）
  decline <申请ID> <用户ID>     拒绝访问申请（管理员）
  logout                        退出登录并清除本地会话

选项:
`)
	flag.PrintDefaults()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "错误:", err)
	os.Exit(1)
}

func resolveStorePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	dir := os.Getenv("AQUASENSE_STATE_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".aquasense")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "client.db"), nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("login 需要 <邮箱或用户名> <密码>")
	}
	res, err := a.api.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	state := models.AdmissionNoDevice
	if status, err := a.api.AccessStatus(ctx); err == nil {
		state = status.State
	} else if res.User.CanViewDeviceData() {
		state = models.AdmissionApproved
	}
	err = a.store.SaveSession(&localstore.Session{
		User:         res.User,
		Token:        res.Token,
		State:        state,
		AuthProvider: res.User.AuthProvider,
	})
	if err != nil {
		return err
	}
	fmt.Printf("已登录: %s (%s)，准入状态: %s\n", res.User.Username, res.User.Role, state)
	return nil
}

func (a *app) workflow(interval time.Duration) *reconcile.Workflow {
	return reconcile.NewWorkflow(a.api, a.store, reconcile.Options{
		Interval: interval,
		OnVerified: func(u *client.User) {
			fmt.Printf("审批通过，已可以查看设备 %s 的数据\n", u.DeviceIDValue())
		},
	})
}

func (a *app) request(ctx context.Context, args []string, interval time.Duration) error {
	if len(args) != 1 {
		return errors.New("request 需要 <设备ID>")
	}
	wf := a.workflow(interval)
	res, err := wf.Submit(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(res.Message)
	return waitLoop(ctx, wf)
}

func (a *app) wait(ctx context.Context, interval time.Duration) error {
	wf := a.workflow(interval)
	if err := wf.Resume(ctx); err != nil {
		return err
	}
	if wf.State() != models.AdmissionPending {
		fmt.Printf("没有等待审批的申请，当前状态: %s\n", wf.State())
		return nil
	}
	return waitLoop(ctx, wf)
}

// waitLoop 等待轮询结束，Ctrl+C 时停止轮询但保留 pending 状态
func waitLoop(ctx context.Context, wf *reconcile.Workflow) error {
	fmt.Println("等待管理员审批，按 Ctrl+C 停止...")
	select {
	case <-wf.Loop().Done():
	case <-ctx.Done():
		wf.CloseModal()
		fmt.Println("已停止等待，可稍后使用 wait 命令继续")
		return nil
	}
	if !wf.Loop().Verified() {
		if err := wf.Loop().LastError(); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) status(ctx context.Context) error {
	sess, err := a.store.LoadSession()
	if err != nil {
		return err
	}
	// 手动检查一次，失败时显示本地缓存
	if sess.State == models.AdmissionPending {
		outcome := a.workflow(reconcile.DefaultInterval).Loop().Refresh(ctx)
		if outcome == reconcile.OutcomeFallback {
			fmt.Println("(离线，显示本地缓存)")
		}
		if sess, err = a.store.LoadSession(); err != nil {
			return err
		}
	} else if me, err := a.api.Me(ctx); err == nil {
		sess.User = me
	}

	if sess.User != nil {
		fmt.Printf("用户: %s <%s> 角色: %s\n", sess.User.Username, sess.User.Email, sess.User.Role)
		fmt.Printf("已验证: %v 设备: %s\n", sess.User.IsVerified, sess.User.DeviceIDValue())
	}
	fmt.Printf("准入状态: %s\n", sess.State)
	return nil
}

func (a *app) notifications(ctx context.Context, args []string) error {
	sess, err := a.store.LoadSession()
	if err != nil {
		return err
	}
	role := models.RoleUser
	if sess.User != nil {
		role = sess.User.Role
	}
	feed, scope := reconcile.ScopeForRole(role)
	mirror := reconcile.NewNotificationMirror(a.api, a.store, feed, scope)

	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}
	list, stale, err := mirror.List(ctx, filter)
	if err != nil {
		return err
	}
	if stale {
		fmt.Println("(离线，显示本地缓存)")
	}
	for _, n := range list {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		status := ""
		if n.Status != "" {
			status = " [" + string(n.Status) + "]"
		}
		fmt.Printf("%s %4d %-9s%s %s\n", mark, n.ID, n.Type, status, n.Message)
	}
	fmt.Printf("共 %d 条\n", len(list))
	return nil
}

func (a *app) decide(ctx context.Context, action string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%s 需要 <申请ID> <用户ID>", action)
	}
	requestID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("无效的申请ID: %s", args[0])
	}
	userID, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("无效的用户ID: %s", args[1])
	}

	var res *client.Decision
	if action == "approve" {
		res, err = a.api.Approve(ctx, uint(requestID), uint(userID))
	} else {
		res, err = a.api.Decline(ctx, uint(requestID), uint(userID))
	}
	if err != nil {
		return err
	}
	Logger.Info("[Client] %s 申请%d (用户%d)", action, requestID, userID)
	fmt.Println(res.Message)
	return nil
}
