// Package testutil 为各层测试提供 sqlite 数据库、miniredis 和测试配置
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"aquasense-http-service/internal/infrastructure/config"
	"aquasense-http-service/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 在临时目录创建 sqlite 数据库并完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "aquasense.db")
	pool, err := database.NewConnectionPoolWithDialector(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), logger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// sqlite 只允许一个写连接
	pool.MaxOpenConns = 1
	pool.MaxIdleConns = 1
	if err := pool.ConfigurePool(); err != nil {
		t.Fatalf("configure pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := database.AutoMigrate(pool.GetDB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool.GetDB()
}

// NewRedis 启动 miniredis 并返回连接它的客户端
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// Config 测试用配置，关闭外部依赖并放宽限流
func Config() *config.Config {
	return &config.Config{
		EnvType:           "LOCAL",
		ServerPort:        "0",
		CORSAllowedOrigin: "*",
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
		MQTTTopicPrefix:   "aquasense/",
		JWTSecretKey:      "test-secret",
		JWTTTL:            time.Hour,
		OTPTTL:            10 * time.Minute,
		OTPLength:         6,

		DefaultSuperAdminEmail:    "root@aquasense.test",
		DefaultSuperAdminPassword: "root-password",
	}
}
