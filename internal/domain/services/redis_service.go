package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyRevokedToken = "revoked_token:"
	keyUnreadCount  = "unread_count:"
	keyOTP          = "otp:"
)

// InterfaceRedisService defines the Redis service interface
type InterfaceRedisService interface {
	Available() bool
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
	Delete(keys ...string) error
	RevokeToken(jti string, expiration time.Duration) error
	IsTokenRevoked(jti string) (bool, error)
	CacheUnreadCount(scopeKey string, count int64, expiration time.Duration) error
	GetUnreadCount(scopeKey string) (int64, error)
	InvalidateUnreadCounts() error
}

// RedisService handles Redis operations; Client 为空时所有操作返回 ErrRedisUnavailable
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(client *redis.Client) InterfaceRedisService {
	return &RedisService{
		Client: client,
		Ctx:    context.Background(),
	}
}

// 1 Available 是否配置了Redis
func (s *RedisService) Available() bool {
	return s.Client != nil
}

// 2 Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	if !s.Available() {
		return ErrRedisUnavailable
	}
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// 3 Get gets a value from Redis by key; 不存在时返回 redis.Nil
func (s *RedisService) Get(key string, dest interface{}) error {
	if !s.Available() {
		return ErrRedisUnavailable
	}
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// 4 Delete deletes keys from Redis
func (s *RedisService) Delete(keys ...string) error {
	if !s.Available() {
		return ErrRedisUnavailable
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(s.Ctx, keys...).Err()
}

// 5 RevokeToken 把令牌ID加入黑名单，直到令牌本身过期
func (s *RedisService) RevokeToken(jti string, expiration time.Duration) error {
	if !s.Available() {
		return ErrRedisUnavailable
	}
	if expiration <= 0 {
		return nil
	}
	return s.Client.Set(s.Ctx, keyRevokedToken+jti, 1, expiration).Err()
}

// 6 IsTokenRevoked 令牌是否已注销
func (s *RedisService) IsTokenRevoked(jti string) (bool, error) {
	if !s.Available() {
		return false, ErrRedisUnavailable
	}
	n, err := s.Client.Exists(s.Ctx, keyRevokedToken+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// 7 CacheUnreadCount 缓存未读通知数
func (s *RedisService) CacheUnreadCount(scopeKey string, count int64, expiration time.Duration) error {
	if !s.Available() {
		return ErrRedisUnavailable
	}
	return s.Client.Set(s.Ctx, keyUnreadCount+scopeKey, count, expiration).Err()
}

// 8 GetUnreadCount 读取缓存的未读通知数
func (s *RedisService) GetUnreadCount(scopeKey string) (int64, error) {
	if !s.Available() {
		return 0, ErrRedisUnavailable
	}
	return s.Client.Get(s.Ctx, keyUnreadCount+scopeKey).Int64()
}

// 9 InvalidateUnreadCounts 通知变化时清除全部未读数缓存
func (s *RedisService) InvalidateUnreadCounts() error {
	if !s.Available() {
		return ErrRedisUnavailable
	}
	iter := s.Client.Scan(s.Ctx, 0, keyUnreadCount+"*", 100).Iterator()
	var keys []string
	for iter.Next(s.Ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan unread counts: %w", err)
	}
	return s.Delete(keys...)
}

func otpKey(purpose, email string) string {
	return keyOTP + purpose + ":" + email
}
