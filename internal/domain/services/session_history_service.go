package services

import (
	"fmt"
	"io"
	"time"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/config"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	userHistoryLimit = 20
	allHistoryLimit  = 100
)

// InterfaceSessionHistoryService 登录历史服务接口
type InterfaceSessionHistoryService interface {
	Record(user *models.User, sessionType models.SessionType, ip, deviceInfo string) error
	ListByUser(userID uint) ([]models.SessionHistory, error)
	ListAll() ([]models.SessionHistory, error)
	ClearUser(userID uint) (int64, error)
	ExportXLSX(w io.Writer) error
}

// SessionHistoryService 记录登录与登出
type SessionHistoryService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewSessionHistoryService 创建登录历史服务
func NewSessionHistoryService(db *gorm.DB, cfg *config.Config) InterfaceSessionHistoryService {
	return &SessionHistoryService{
		DB:     db,
		Config: cfg,
	}
}

// 1 Record 记录一次登录或登出
func (s *SessionHistoryService) Record(user *models.User, sessionType models.SessionType, ip, deviceInfo string) error {
	if len(deviceInfo) > 255 {
		deviceInfo = deviceInfo[:255]
	}
	return s.DB.Create(&models.SessionHistory{
		UserID:      user.ID,
		Username:    user.Username,
		SessionType: sessionType,
		IPAddress:   ip,
		DeviceInfo:  deviceInfo,
		Timestamp:   time.Now(),
	}).Error
}

// 2 ListByUser 用户最近的20条记录
func (s *SessionHistoryService) ListByUser(userID uint) ([]models.SessionHistory, error) {
	var list []models.SessionHistory
	err := s.DB.Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC").
		Limit(userHistoryLimit).
		Find(&list).Error
	return list, err
}

// 3 ListAll 所有用户最近的100条记录
func (s *SessionHistoryService) ListAll() ([]models.SessionHistory, error) {
	var list []models.SessionHistory
	err := s.DB.Order("timestamp DESC, id DESC").Limit(allHistoryLimit).Find(&list).Error
	return list, err
}

// 4 ClearUser 清除某个用户的全部记录
func (s *SessionHistoryService) ClearUser(userID uint) (int64, error) {
	result := s.DB.Where("user_id = ?", userID).Delete(&models.SessionHistory{})
	return result.RowsAffected, result.Error
}

// 5 ExportXLSX 导出最近的记录为Excel
func (s *SessionHistoryService) ExportXLSX(w io.Writer) error {
	list, err := s.ListAll()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sessions"
	f.SetSheetName("Sheet1", sheet)
	headers := []interface{}{"ID", "User ID", "Username", "Type", "IP Address", "Device", "Time"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, h := range list {
		row := []interface{}{h.ID, h.UserID, h.Username, string(h.SessionType), h.IPAddress, h.DeviceInfo, h.Timestamp.Format(time.RFC3339)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("导出登录历史失败: %w", err)
	}
	return nil
}
