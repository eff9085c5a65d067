package middleware

import (
	"strings"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextClaims = "claims"
	ContextToken  = "token"
)

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(authHeader)
}

// authenticate 校验令牌并把声明写入上下文，allow 为空表示任何角色均可
func authenticate(jwtService services.InterfaceJWTService, allow func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortWithCode(c, code.ErrTokenInvalid, "缺少Authorization请求头")
			return
		}

		tokenString := extractToken(authHeader)
		if tokenString == "" {
			response.AbortWithCode(c, code.ErrTokenInvalid, "令牌格式错误")
			return
		}

		claims, err := jwtService.ExtractClaims(tokenString)
		if err != nil {
			response.AbortWithCode(c, code.ErrTokenInvalid, "无效或已过期的令牌")
			return
		}

		// 已注销的令牌
		if jwtService.IsRevoked(claims.ID) {
			response.AbortWithCode(c, code.ErrTokenInvalid, "令牌已注销，请重新登录")
			return
		}

		if !claims.Role.Valid() {
			response.AbortWithCode(c, code.ErrPermissionDenied, "未知的用户角色")
			return
		}
		if allow != nil && !allow(claims.Role) {
			response.AbortWithCode(c, code.ErrPermissionDenied, "")
			return
		}

		// 存储claims到上下文
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextClaims, claims)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

// AuthenticateUser 验证任意已登录用户
func AuthenticateUser(jwtService services.InterfaceJWTService) gin.HandlerFunc {
	return authenticate(jwtService, nil)
}

// AuthenticateAdmin 验证管理员权限，超级管理员同样可以访问
func AuthenticateAdmin(jwtService services.InterfaceJWTService) gin.HandlerFunc {
	return authenticate(jwtService, func(role models.Role) bool {
		return role.IsAdmin()
	})
}

// AuthenticateSuperAdmin 验证超级管理员权限
func AuthenticateSuperAdmin(jwtService services.InterfaceJWTService) gin.HandlerFunc {
	return authenticate(jwtService, func(role models.Role) bool {
		return role == models.RoleSuperAdmin
	})
}

// GetUserID 从上下文读取当前用户ID
func GetUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetRole 从上下文读取当前用户角色
func GetRole(c *gin.Context) models.Role {
	if v, ok := c.Get(ContextRole); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return ""
}

// GetClaims 从上下文读取令牌声明
func GetClaims(c *gin.Context) *services.JWTClaims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*services.JWTClaims); ok {
			return claims
		}
	}
	return nil
}

// GetScope 当前请求对应的通知可见范围
func GetScope(c *gin.Context) services.Scope {
	return services.Scope{UserID: GetUserID(c), Role: GetRole(c)}
}
