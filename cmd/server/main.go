// @title           Aquasense HTTP Service API
// @version         1.0
// @description     Water-quality monitoring backend: device access requests, admin approval and notifications

// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer ` prefix
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"aquasense-http-service/internal/app/routes"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/domain/services/container"
	"aquasense-http-service/internal/infrastructure/config"
	"aquasense-http-service/internal/infrastructure/database"
	Logger "aquasense-http-service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func main() {
	// 设置最大处理器数量，提高并发性能
	runtime.GOMAXPROCS(runtime.NumCPU())

	// 初始化日志配置
	if err := Logger.SetupLogger(); err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}
	defer Logger.Close()

	// 加载.env文件
	if err := godotenv.Load(); err != nil {
		Logger.Warning("无法加载.env文件: %v", err)
		// 即使加载失败也继续执行，可能环境变量已经通过其他方式设置
	} else {
		Logger.Info("成功加载.env文件")
	}

	// 获取配置
	cfg := config.GetConfig()

	// 创建数据库连接池
	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		log.Fatalf("无法创建数据库连接池: %v", err)
	}
	defer pool.Close()

	// 根据配置执行不同的数据库迁移
	if err := database.Migrate(pool.GetDB(), cfg.DBMigrationMode); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	svc := container.NewServiceContainer(pool.GetDB(), cfg, newRedisClient(cfg))
	defer svc.Close()

	// 确保系统中有超级管理员账户
	userService := svc.GetService("user").(services.InterfaceUserService)
	if err := userService.EnsureSuperAdmin(); err != nil {
		log.Fatalf("%v", err)
	}

	r := routes.SetupRouter(svc)

	// 打印系统信息
	printSystemInfo(pool)

	// 监听所有接口(0.0.0.0)而不是只监听localhost
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		Logger.Info("服务器启动在: http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("启动服务器失败: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	Logger.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Logger.Error("服务器关闭失败: %v", err)
	}
}

// newRedisClient 启用Redis时创建客户端，连接失败由容器降级处理
func newRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled {
		Logger.Info("Redis未启用，未读数缓存与令牌注销不可用")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// printSystemInfo 打印系统信息
func printSystemInfo(pool *database.ConnectionPool) {
	// 打印数据库连接池信息
	stats, err := pool.Stats()
	if err == nil {
		log.Printf("数据库连接池状态: %+v", stats)
	}

	// 打印系统资源信息
	log.Printf("系统CPU核心数: %d", runtime.NumCPU())
	log.Printf("当前Go协程数: %d", runtime.NumGoroutine())

	// 打印内存信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.Printf("系统内存使用: Alloc=%v MiB, TotalAlloc=%v MiB, Sys=%v MiB",
		m.Alloc/1024/1024, m.TotalAlloc/1024/1024, m.Sys/1024/1024)
}
