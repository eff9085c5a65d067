package services

import (
	"errors"
	"fmt"
	"strings"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/config"
	Logger "aquasense-http-service/pkg/logger"

	"gorm.io/gorm"
)

// DeviceInput 创建或更新设备的参数
type DeviceInput struct {
	DeviceID        string
	Name            *string
	Location        *string
	EstablishmentID *uint
	AdminID         *uint
}

// InterfaceDeviceService defines the device service interface
type InterfaceDeviceService interface {
	GetAllDevices(scope Scope) ([]models.Device, error)
	GetDeviceByDeviceID(deviceID string) (*models.Device, error)
	CreateDevice(input DeviceInput) (*models.Device, error)
	UpdateDevice(deviceID string, input DeviceInput) (*models.Device, error)
	DeleteDevice(deviceID string) error
	CreateEstablishment(est *models.Establishment) error
	AssignedEstablishments(scope Scope) ([]models.Establishment, error)
	GetEstablishment(id uint) (*models.Establishment, error)
	CountEstablishments() (int64, error)
}

// DeviceService 提供设备与机构相关的服务
type DeviceService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewDeviceService 创建一个新的设备服务
func NewDeviceService(db *gorm.DB, cfg *config.Config) InterfaceDeviceService {
	return &DeviceService{
		DB:     db,
		Config: cfg,
	}
}

// 1 GetAllDevices 管理员只看到自己负责的设备，超级管理员看到全部
func (s *DeviceService) GetAllDevices(scope Scope) ([]models.Device, error) {
	var devices []models.Device
	query := s.DB.Preload("Establishment").Order("device_id")
	if scope.Role != models.RoleSuperAdmin {
		query = query.Where("admin_id = ?", scope.UserID)
	}
	if err := query.Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// 2 GetDeviceByDeviceID 根据设备编号获取设备
func (s *DeviceService) GetDeviceByDeviceID(deviceID string) (*models.Device, error) {
	var device models.Device
	if err := s.DB.Preload("Establishment").Where("device_id = ?", strings.TrimSpace(deviceID)).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

// 3 CreateDevice 创建新设备
func (s *DeviceService) CreateDevice(input DeviceInput) (*models.Device, error) {
	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}

	// 验证设备编号唯一性
	var count int64
	if err := s.DB.Model(&models.Device{}).Where("device_id = ?", deviceID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDeviceAlreadyExist
	}

	device := &models.Device{DeviceID: deviceID, AdminID: input.AdminID}
	if input.Name != nil {
		device.Name = *input.Name
	}
	if input.Location != nil {
		device.Location = *input.Location
	}
	if input.EstablishmentID != nil {
		est, err := s.GetEstablishment(*input.EstablishmentID)
		if err != nil {
			return nil, err
		}
		device.EstablishmentID = &est.ID
		// 未指定管理员时继承机构的管理员
		if device.AdminID == nil {
			device.AdminID = est.AdminID
		}
	}

	if err := s.DB.Create(device).Error; err != nil {
		return nil, err
	}
	return s.GetDeviceByDeviceID(deviceID)
}

// 4 UpdateDevice 更新设备信息，设备编号不可修改
func (s *DeviceService) UpdateDevice(deviceID string, input DeviceInput) (*models.Device, error) {
	device, err := s.GetDeviceByDeviceID(deviceID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.AdminID != nil {
		updates["admin_id"] = *input.AdminID
	}
	if input.EstablishmentID != nil {
		if _, err := s.GetEstablishment(*input.EstablishmentID); err != nil {
			return nil, err
		}
		updates["establishment_id"] = *input.EstablishmentID
	}

	if len(updates) > 0 {
		if err := s.DB.Model(device).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetDeviceByDeviceID(device.DeviceID)
}

// 5 DeleteDevice 删除设备，并撤销所有用户对它的访问权限
func (s *DeviceService) DeleteDevice(deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	return s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("device_id = ?", deviceID).Delete(&models.Device{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDeviceNotFound
		}

		revoked := tx.Model(&models.User{}).
			Where("device_id = ?", deviceID).
			Updates(map[string]interface{}{"is_verified": false, "device_id": nil})
		if revoked.Error != nil {
			return fmt.Errorf("撤销设备访问权限失败: %w", revoked.Error)
		}
		if revoked.RowsAffected > 0 {
			Logger.Info("设备%s已删除，撤销了%d个用户的访问权限", deviceID, revoked.RowsAffected)
		}
		return nil
	})
}

// 6 CreateEstablishment 创建机构
func (s *DeviceService) CreateEstablishment(est *models.Establishment) error {
	est.Name = strings.TrimSpace(est.Name)
	if est.Name == "" {
		return fmt.Errorf("%w: establishment name is required", ErrValidation)
	}
	return s.DB.Create(est).Error
}

// 7 AssignedEstablishments 管理员负责的机构，超级管理员返回全部
func (s *DeviceService) AssignedEstablishments(scope Scope) ([]models.Establishment, error) {
	var list []models.Establishment
	query := s.DB.Preload("Devices").Order("id")
	if scope.Role != models.RoleSuperAdmin {
		query = query.Where("admin_id = ?", scope.UserID)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// 8 GetEstablishment 根据ID获取机构
func (s *DeviceService) GetEstablishment(id uint) (*models.Establishment, error) {
	var est models.Establishment
	if err := s.DB.Preload("Devices").First(&est, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEstablishmentNotFound
		}
		return nil, err
	}
	return &est, nil
}

// 9 CountEstablishments 机构总数
func (s *DeviceService) CountEstablishments() (int64, error) {
	var count int64
	err := s.DB.Model(&models.Establishment{}).Count(&count).Error
	return count, err
}
