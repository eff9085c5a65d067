package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/config"
	Logger "aquasense-http-service/pkg/logger"
	"aquasense-http-service/utils"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InterfaceJWTService 定义JWT服务接口
type InterfaceJWTService interface {
	GenerateToken(user *models.User) (string, error)
	ValidateToken(tokenString string) (*jwt.Token, error)
	ExtractClaims(tokenString string) (*JWTClaims, error)
	Login(identifier, password string) (*LoginResult, error)
	Revoke(claims *JWTClaims) error
	IsRevoked(jti string) bool
}

// LoginResult 表示登录结果
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// JWTService 提供JWT相关服务
type JWTService struct {
	secretKey string
	issuer    string
	ttl       time.Duration
	DB        *gorm.DB
	Redis     InterfaceRedisService
}

// JWTClaims 定义JWT令牌的声明结构，RegisteredClaims.ID 为令牌ID(jti)
type JWTClaims struct {
	UserID   uint        `json:"user_id"`
	Role     models.Role `json:"role"`
	DeviceID *string     `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTService 创建一个新的JWT服务
func NewJWTService(cfg *config.Config, db *gorm.DB, redis InterfaceRedisService) InterfaceJWTService {
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{
		secretKey: cfg.JWTSecretKey,
		issuer:    "aquasense-http-service",
		ttl:       ttl,
		DB:        db,
		Redis:     redis,
	}
}

// 1 GenerateToken 生成JWT令牌，默认有效期24小时
func (s *JWTService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		DeviceID: user.DeviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// 2 ValidateToken 验证JWT令牌
func (s *JWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
}

// 3 ExtractClaims 从令牌中提取声明
func (s *JWTService) ExtractClaims(tokenString string) (*JWTClaims, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Issuer != s.issuer {
		return nil, errors.New("invalid token issuer")
	}
	return claims, nil
}

// 4 Login 使用邮箱或用户名登录
func (s *JWTService) Login(identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.DB.Where("email = ?", strings.ToLower(identifier)).
		Or("username = ?", identifier).
		Order("id").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 第三方登录账户没有密码
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.DB.Model(&user).Update("last_login_at", now).Error; err != nil {
		Logger.Warning("更新用户%d最后登录时间失败: %v", user.ID, err)
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: &user}, nil
}

// 5 Revoke 注销令牌；未配置Redis时令牌只能等待过期
func (s *JWTService) Revoke(claims *JWTClaims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	if s.Redis == nil || !s.Redis.Available() {
		Logger.Warning("Redis未配置，令牌%s无法提前注销", claims.ID)
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	return s.Redis.RevokeToken(claims.ID, ttl)
}

// 6 IsRevoked 检查令牌是否已注销，Redis出错时视为未注销
func (s *JWTService) IsRevoked(jti string) bool {
	if jti == "" || s.Redis == nil || !s.Redis.Available() {
		return false
	}
	revoked, err := s.Redis.IsTokenRevoked(jti)
	if err != nil {
		Logger.Warning("检查令牌注销状态失败: %v", err)
		return false
	}
	return revoked
}
