package config

import (
	"testing"
	"time"
)

func TestLoadConfigLocalPrefixWins(t *testing.T) {
	t.Setenv("ENV_TYPE", "local")
	t.Setenv("DB_HOST", "generic-host")
	t.Setenv("LOCAL_DB_HOST", "local-host")
	t.Setenv("LOCAL_SERVER_PORT", "18080")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("OTP_LENGTH", "8")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := LoadConfig()
	if cfg.EnvType != "LOCAL" {
		t.Fatalf("expected LOCAL env, got %s", cfg.EnvType)
	}
	if cfg.DBHost != "local-host" {
		t.Fatalf("expected LOCAL_DB_HOST override, got %s", cfg.DBHost)
	}
	if cfg.ServerPort != "18080" {
		t.Fatalf("expected LOCAL_SERVER_PORT override, got %s", cfg.ServerPort)
	}
	if cfg.JWTTTL != 90*time.Minute {
		t.Fatalf("expected JWT_TTL 90m, got %s", cfg.JWTTTL)
	}
	if cfg.OTPLength != 8 {
		t.Fatalf("expected OTP_LENGTH 8, got %d", cfg.OTPLength)
	}
	if !cfg.MQTTEnabled {
		t.Fatalf("expected MQTT_ENABLED true")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected RATE_LIMIT_RPS 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadConfigServerFallsBackToGenericKeys(t *testing.T) {
	t.Setenv("ENV_TYPE", "SERVER")
	t.Setenv("DB_NAME", "generic_db")
	t.Setenv("SERVER_DB_USER", "server_user")
	t.Setenv("EMAIL_USER", "mailer@example.com")
	t.Setenv("JWT_TTL", "not-a-duration")

	cfg := LoadConfig()
	if !cfg.IsServer() {
		t.Fatalf("expected SERVER env")
	}
	if cfg.DBName != "generic_db" {
		t.Fatalf("expected generic DB_NAME fallback, got %s", cfg.DBName)
	}
	if cfg.DBUser != "server_user" {
		t.Fatalf("expected SERVER_DB_USER, got %s", cfg.DBUser)
	}
	if cfg.SMTPUser != "mailer@example.com" {
		t.Fatalf("expected EMAIL_USER fallback for SMTP user, got %s", cfg.SMTPUser)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("expected default JWT TTL on bad input, got %s", cfg.JWTTTL)
	}
}

func TestUnknownEnvTypeDefaultsToLocal(t *testing.T) {
	t.Setenv("ENV_TYPE", "staging")
	cfg := LoadConfig()
	if cfg.EnvType != "LOCAL" {
		t.Fatalf("expected LOCAL fallback, got %s", cfg.EnvType)
	}
}

func TestDSNAndRedisAddr(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "d", RedisHost: "r", RedisPort: "6379"}
	if got := cfg.GetDSN(); got != "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local&allowNativePasswords=true" {
		t.Fatalf("unexpected DSN %s", got)
	}
	if got := cfg.GetRedisAddr(); got != "r:6379" {
		t.Fatalf("unexpected redis addr %s", got)
	}
}
