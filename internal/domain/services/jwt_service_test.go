package services

import (
	"errors"
	"testing"
	"time"

	"aquasense-http-service/internal/domain/models"
)

func TestLoginAndClaims(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", models.RoleUser)

	if _, err := env.jwt.Login(user.Email, "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.jwt.Login("ghost@aquasense.test", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	result, err := env.jwt.Login("ALICE@aquasense.test", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.ID != user.ID || result.User.LastLoginAt == nil {
		t.Fatalf("unexpected login result %+v", result.User)
	}

	claims, err := env.jwt.ExtractClaims(result.Token)
	if err != nil {
		t.Fatalf("extract claims: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != models.RoleUser || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokensFromOtherSecretsAreRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", models.RoleUser)

	cfg := *env.cfg
	cfg.JWTSecretKey = "another-secret"
	foreign := NewJWTService(&cfg, env.db, env.redis)
	token, _ := foreign.GenerateToken(user)
	if _, err := env.jwt.ExtractClaims(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	cfg.JWTSecretKey = env.cfg.JWTSecretKey
	cfg.JWTTTL = time.Nanosecond
	shortLived := NewJWTService(&cfg, env.db, env.redis)
	expired, _ := shortLived.GenerateToken(user)
	time.Sleep(time.Second)
	if _, err := env.jwt.ExtractClaims(expired); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestRevokeToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", models.RoleUser)
	token, _ := env.jwt.GenerateToken(user)
	claims, _ := env.jwt.ExtractClaims(token)

	if env.jwt.IsRevoked(claims.ID) {
		t.Fatal("fresh token should not be revoked")
	}
	if err := env.jwt.Revoke(claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !env.jwt.IsRevoked(claims.ID) {
		t.Fatal("token should be revoked")
	}
	// 黑名单随令牌过期
	env.mr.FastForward(2 * time.Hour)
	if env.jwt.IsRevoked(claims.ID) {
		t.Fatal("revocation should expire with the token")
	}

	// 未配置Redis时注销为空操作
	noRedis := NewJWTService(env.cfg, env.db, NewRedisService(nil))
	if err := noRedis.Revoke(claims); err != nil || noRedis.IsRevoked(claims.ID) {
		t.Fatalf("revocation without redis should be a no-op, got %v", err)
	}
}
