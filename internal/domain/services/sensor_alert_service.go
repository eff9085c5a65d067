package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aquasense-http-service/internal/domain/models"
	Logger "aquasense-http-service/pkg/logger"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SensorAlert 传感器告警消息
type SensorAlert struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

// InterfaceSensorAlertService 传感器告警服务接口
type InterfaceSensorAlertService interface {
	HandleAlert(deviceID string, alert SensorAlert) (*models.Notification, error)
	HandleMessage(topic string, payload []byte)
}

// SensorAlertService 把设备告警转换为管理员通知
type SensorAlertService struct {
	DB            *gorm.DB
	Notifications InterfaceNotificationService
}

// NewSensorAlertService 创建告警服务
func NewSensorAlertService(db *gorm.DB, notifications InterfaceNotificationService) InterfaceSensorAlertService {
	return &SensorAlertService{
		DB:            db,
		Notifications: notifications,
	}
}

// 1 HandleAlert 为设备的管理员创建 sensor 通知，未登记的设备广播给所有管理员
func (s *SensorAlertService) HandleAlert(deviceID string, alert SensorAlert) (*models.Notification, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if strings.TrimSpace(alert.Message) == "" {
		return nil, fmt.Errorf("%w: alert message is required", ErrValidation)
	}

	n := &models.Notification{
		Type:     models.NotificationSensor,
		Message:  fmt.Sprintf("Device %s: %s", deviceID, alert.Message),
		Audience: models.AudienceAdmin,
		DeviceID: &deviceID,
	}
	if alert.Level != "" {
		meta, _ := json.Marshal(map[string]string{"level": alert.Level})
		n.Metadata = datatypes.JSON(meta)
	}

	var device models.Device
	err := s.DB.Where("device_id = ?", deviceID).First(&device).Error
	switch {
	case err == nil:
		n.RecipientID = device.AdminID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if err := s.Notifications.Create(n); err != nil {
		return nil, err
	}
	return n, nil
}

// 2 HandleMessage 处理 sensors/<deviceID>/alert 主题的消息
func (s *SensorAlertService) HandleMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "sensors" || parts[2] != "alert" {
		Logger.Warning("[MQTT] 忽略无法识别的告警主题: %s", topic)
		return
	}

	var alert SensorAlert
	if err := json.Unmarshal(payload, &alert); err != nil {
		Logger.Warning("[MQTT] 解析告警消息失败: %v", err)
		return
	}
	if _, err := s.HandleAlert(parts[1], alert); err != nil {
		Logger.Error("[MQTT] 处理设备%s告警失败: %v", parts[1], err)
	}
}
