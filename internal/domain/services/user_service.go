package services

import (
	"errors"
	"fmt"
	"strings"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/config"
	Logger "aquasense-http-service/pkg/logger"
	"aquasense-http-service/utils"

	"gorm.io/gorm"
)

// RegisterInput 注册参数
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

// ProfileInput 个人资料更新，nil 字段不修改
type ProfileInput struct {
	Username        *string
	Email           *string
	EstablishmentID *uint
}

// InterfaceUserService 用户服务接口
type InterfaceUserService interface {
	CheckPassword(password, hash string) bool
	Register(input RegisterInput) (*models.User, error)
	CreateUser(input RegisterInput) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetAllUsers(q models.PaginationQuery) ([]models.User, int64, error)
	UpdateProfile(id uint, input ProfileInput) (*models.User, error)
	ChangePassword(id uint, oldPassword, newPassword string) error
	ResetPassword(email, newPassword string) error
	ConfirmEmail(email string) error
	CountUsersByDevice(deviceID string) (int64, error)
	EnsureSuperAdmin() error
}

// UserService 提供用户相关的服务
type UserService struct {
	DB            *gorm.DB
	Config        *config.Config
	Notifications InterfaceNotificationService
}

// NewUserService 创建一个新的用户服务
func NewUserService(db *gorm.DB, cfg *config.Config, notifications InterfaceNotificationService) InterfaceUserService {
	return &UserService{
		DB:            db,
		Config:        cfg,
		Notifications: notifications,
	}
}

// 1 CheckPassword 验证密码是否匹配
func (s *UserService) CheckPassword(password, hash string) bool {
	return utils.CheckPasswordHash(password, hash)
}

// 2 Register 注册普通用户，并通知管理员有新用户
func (s *UserService) Register(input RegisterInput) (*models.User, error) {
	input.Role = models.RoleUser
	user, err := s.CreateUser(input)
	if err != nil {
		return nil, err
	}

	if s.Notifications != nil {
		n := &models.Notification{
			Type:       models.NotificationNewUser,
			Message:    fmt.Sprintf("New user %s (%s) has registered", user.Username, user.Email),
			Audience:   models.AudienceAdmin,
			FromUserID: &user.ID,
			FromUser:   user.Username,
		}
		if err := s.Notifications.Create(n); err != nil {
			Logger.Warning("创建新用户通知失败: %v", err)
		}
	}
	return user, nil
}

// 3 CreateUser 创建指定角色的用户
func (s *UserService) CreateUser(input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" || len(input.Password) < 6 {
		return nil, fmt.Errorf("%w: username, email and a password of at least 6 characters are required", ErrValidation)
	}
	if input.Role == "" {
		input.Role = models.RoleUser
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, input.Role)
	}

	// 验证邮箱唯一性
	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserAlreadyExist
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Password:     hashedPassword,
		Role:         input.Role,
		AuthProvider: models.AuthProviderLocal,
	}
	if err := s.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// 4 GetUserByID 根据ID获取用户
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// 5 GetUserByEmail 根据邮箱获取用户
func (s *UserService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// 6 GetAllUsers 获取所有用户，支持分页和搜索
func (s *UserService) GetAllUsers(q models.PaginationQuery) ([]models.User, int64, error) {
	q = q.Normalize()
	var users []models.User
	var total int64

	query := s.DB.Model(&models.User{})
	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR device_id LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id").Offset(q.Offset()).Limit(q.PageSize).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// 7 UpdateProfile 更新用户名、邮箱或所属机构
func (s *UserService) UpdateProfile(id uint, input ProfileInput) (*models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Username != nil {
		name := strings.TrimSpace(*input.Username)
		if name == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", ErrValidation)
		}
		updates["username"] = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			var count int64
			if err := s.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrUserAlreadyExist
			}
			updates["email"] = email
			updates["email_confirmed"] = false
		}
	}
	if input.EstablishmentID != nil {
		var count int64
		if err := s.DB.Model(&models.Establishment{}).Where("id = ?", *input.EstablishmentID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrEstablishmentNotFound
		}
		updates["establishment_id"] = *input.EstablishmentID
	}

	if len(updates) > 0 {
		if err := s.DB.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetUserByID(id)
}

// 8 ChangePassword 校验旧密码后修改密码
func (s *UserService) ChangePassword(id uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(id)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(oldPassword, user.Password) {
		return ErrInvalidCredentials
	}
	return s.setPassword(user, newPassword)
}

// 9 ResetPassword 验证码校验通过后重置密码
func (s *UserService) ResetPassword(email, newPassword string) error {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		return err
	}
	return s.setPassword(user, newPassword)
}

func (s *UserService) setPassword(user *models.User, password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("密码加密失败: %v", err)
	}
	return s.DB.Model(user).Update("password", hashed).Error
}

// 10 ConfirmEmail 标记邮箱已验证
func (s *UserService) ConfirmEmail(email string) error {
	result := s.DB.Model(&models.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Update("email_confirmed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// 11 CountUsersByDevice 统计已获准访问某设备的用户数
func (s *UserService) CountUsersByDevice(deviceID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.User{}).
		Where("device_id = ? AND is_verified = ?", deviceID, true).
		Count(&count).Error
	return count, err
}

// 12 EnsureSuperAdmin 系统中没有超级管理员时创建默认账户
func (s *UserService) EnsureSuperAdmin() error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	user, err := s.CreateUser(RegisterInput{
		Username: "superadmin",
		Email:    s.Config.DefaultSuperAdminEmail,
		Password: s.Config.DefaultSuperAdminPassword,
		Role:     models.RoleSuperAdmin,
	})
	if err != nil {
		return fmt.Errorf("创建默认超级管理员失败: %w", err)
	}
	if err := s.DB.Model(user).Update("email_confirmed", true).Error; err != nil {
		return err
	}
	Logger.Info("已创建默认超级管理员账户: %s", user.Email)
	return nil
}
