package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aquasense-http-service/internal/infrastructure/config"
	"aquasense-http-service/internal/infrastructure/mailer"
	Logger "aquasense-http-service/pkg/logger"
	"aquasense-http-service/utils"

	"github.com/go-redis/redis/v8"
)

// OTPPurpose 验证码用途
type OTPPurpose string

const (
	OTPSignup        OTPPurpose = "signup"
	OTPPasswordReset OTPPurpose = "password_reset"
)

// Valid 是否为已知用途
func (p OTPPurpose) Valid() bool {
	return p == OTPSignup || p == OTPPasswordReset
}

const otpMaxAttempts = 5

// 存入Redis的验证码记录，只保存哈希
type otpRecord struct {
	Hash     string `json:"hash"`
	Attempts int    `json:"attempts"`
}

// InterfaceOTPService 邮箱验证码服务接口
type InterfaceOTPService interface {
	Send(email string, purpose OTPPurpose) error
	Verify(email string, purpose OTPPurpose, code string) error
}

// OTPService 邮箱验证码服务
type OTPService struct {
	Config *config.Config
	Redis  InterfaceRedisService
	Mailer mailer.Mailer
}

// NewOTPService 创建验证码服务
func NewOTPService(cfg *config.Config, redis InterfaceRedisService, m mailer.Mailer) InterfaceOTPService {
	return &OTPService{
		Config: cfg,
		Redis:  redis,
		Mailer: m,
	}
}

// 1 Send 生成验证码，哈希后存入Redis并发送邮件
func (s *OTPService) Send(email string, purpose OTPPurpose) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !purpose.Valid() {
		return fmt.Errorf("%w: email and a valid purpose are required", ErrValidation)
	}
	if s.Redis == nil || !s.Redis.Available() {
		return ErrOTPUnavailable
	}

	code, err := utils.RandomDigits(s.Config.OTPLength)
	if err != nil {
		return err
	}
	hash, err := utils.HashSecret(code)
	if err != nil {
		return err
	}

	ttl := s.Config.OTPTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if err := s.Redis.Set(otpKey(string(purpose), email), otpRecord{Hash: hash}, ttl); err != nil {
		return fmt.Errorf("保存验证码失败: %w", err)
	}

	body := fmt.Sprintf(`<p>Your Aquasense verification code is:</p><h2>%s</h2><p>The code expires in %d minutes.</p>`,
		code, int(ttl.Minutes()))
	if err := s.Mailer.SendOTPEmail(email, "Your Aquasense verification code", body); err != nil {
		// 邮件没有发出，验证码作废
		s.Redis.Delete(otpKey(string(purpose), email))
		return err
	}
	Logger.Info("已发送%s验证码到%s", purpose, email)
	return nil
}

// 2 Verify 校验验证码，成功后立即作废；错误次数过多同样作废
func (s *OTPService) Verify(email string, purpose OTPPurpose, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if s.Redis == nil || !s.Redis.Available() {
		return ErrOTPUnavailable
	}

	key := otpKey(string(purpose), email)
	var record otpRecord
	if err := s.Redis.Get(key, &record); err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrOTPInvalid
		}
		return err
	}

	if !utils.CheckPasswordHash(strings.TrimSpace(code), record.Hash) {
		record.Attempts++
		if record.Attempts >= otpMaxAttempts {
			s.Redis.Delete(key)
		} else {
			s.Redis.Set(key, record, s.remaining(key))
		}
		return ErrOTPInvalid
	}

	return s.Redis.Delete(key)
}

// 保留原有的过期时间
func (s *OTPService) remaining(key string) time.Duration {
	if rs, ok := s.Redis.(*RedisService); ok {
		if ttl, err := rs.Client.TTL(rs.Ctx, key).Result(); err == nil && ttl > 0 {
			return ttl
		}
	}
	return s.Config.OTPTTL
}
